package types

// TallyVisibility governs how vote counts are exposed before a poll ends.
// It is fixed by the poll's configuration at creation time.
type TallyVisibility string

const (
	// TallyHidden exposes only the total number of votes cast.
	TallyHidden TallyVisibility = "hidden"
	// TallyAnonymous exposes per-option counts without voter identities.
	TallyAnonymous TallyVisibility = "anonymous"
	// TallyVisible exposes per-option voter lists.
	TallyVisible TallyVisibility = "visible"
)

// PollConfig is fixed when the poll message is created.
type PollConfig struct {
	Text                      string          `json:"text,omitempty"`
	Options                   []string        `json:"options"`
	EndDate                   TimestampMillis `json:"end_date,omitempty"` // 0 = no scheduled end
	Anonymous                 bool            `json:"anonymous,omitempty"`
	ShowVotesBeforeEndDate    bool            `json:"show_votes_before_end_date,omitempty"`
	AllowMultipleVotesPerUser bool            `json:"allow_multiple_votes_per_user,omitempty"`
}

// PollContent is the full poll state carried by a poll message. Votes holds
// every registered vote; queries project it through the tally visibility
// rules before returning it to a viewer.
type PollContent struct {
	Config PollConfig          `json:"config"`
	Votes  map[UserID][]uint32 `json:"votes,omitempty"`
	Ended  bool                `json:"ended,omitempty"`
	// Tally is populated only on hydrated copies, in place of the raw votes.
	Tally *PollVotes `json:"tally,omitempty"`
}

// TotalVotes is the viewer-independent part of a hydrated tally. Exactly one
// of the three value fields is populated, matching Visibility.
type TotalVotes struct {
	Visibility TallyVisibility     `json:"visibility"`
	Hidden     uint32              `json:"hidden,omitempty"`
	Anonymous  map[uint32]uint32   `json:"anonymous,omitempty"`
	Visible    map[uint32][]UserID `json:"visible,omitempty"`
}

// PollVotes is a tally projected for one viewer: the total votes under the
// poll's visibility mode plus the option indexes the viewer voted for.
type PollVotes struct {
	Total TotalVotes `json:"total"`
	User  []uint32   `json:"user,omitempty"`
}

// VoteOperation selects between registering and deleting a vote.
type VoteOperation uint8

const (
	RegisterVote VoteOperation = iota
	DeleteVote
)

// PollVoteOutcome classifies the result of applying a vote operation.
type PollVoteOutcome uint8

const (
	VoteChanged PollVoteOutcome = iota
	VoteNoChange
	VotePollEnded
	VoteOptionOutOfRange
)

// visibility resolves the effective tally visibility. A hidden tally becomes
// anonymous or visible once the poll has ended.
func (p *PollContent) visibility() TallyVisibility {
	if !p.Ended && p.Config.EndDate != 0 && !p.Config.ShowVotesBeforeEndDate {
		return TallyHidden
	}
	if p.Config.Anonymous {
		return TallyAnonymous
	}
	return TallyVisible
}

// ApplyVote registers or deletes one user's vote for an option. The bool
// result reports whether an existing vote was displaced to make room for the
// new one (single-vote polls only).
func (p *PollContent) ApplyVote(user UserID, optionIndex uint32, op VoteOperation) (PollVoteOutcome, bool) {
	if p.Ended {
		return VotePollEnded, false
	}
	if int(optionIndex) >= len(p.Config.Options) {
		return VoteOptionOutOfRange, false
	}

	existing := p.Votes[user]
	has := false
	for _, o := range existing {
		if o == optionIndex {
			has = true
			break
		}
	}

	switch op {
	case RegisterVote:
		if has {
			return VoteNoChange, false
		}
		if p.Votes == nil {
			p.Votes = make(map[UserID][]uint32)
		}
		if !p.Config.AllowMultipleVotesPerUser && len(existing) > 0 {
			p.Votes[user] = []uint32{optionIndex}
			return VoteChanged, true
		}
		p.Votes[user] = append(existing, optionIndex)
		return VoteChanged, false
	default: // DeleteVote
		if !has {
			return VoteNoChange, false
		}
		kept := existing[:0]
		for _, o := range existing {
			if o != optionIndex {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			delete(p.Votes, user)
		} else {
			p.Votes[user] = kept
		}
		return VoteChanged, false
	}
}

// Hydrate returns a viewer-scoped copy of the poll with the raw vote map
// replaced by the projected tally.
func (p PollContent) Hydrate(viewer UserID) PollContent {
	tally := p.TallyFor(viewer)
	return PollContent{Config: p.Config, Ended: p.Ended, Tally: &tally}
}

// TallyFor projects the poll's votes for the given viewer under the
// effective visibility mode.
func (p *PollContent) TallyFor(viewer UserID) PollVotes {
	out := PollVotes{User: append([]uint32(nil), p.Votes[viewer]...)}
	switch p.visibility() {
	case TallyHidden:
		var n uint32
		for _, votes := range p.Votes {
			n += uint32(len(votes))
		}
		out.Total = TotalVotes{Visibility: TallyHidden, Hidden: n}
	case TallyAnonymous:
		counts := make(map[uint32]uint32)
		for _, votes := range p.Votes {
			for _, o := range votes {
				counts[o]++
			}
		}
		out.Total = TotalVotes{Visibility: TallyAnonymous, Anonymous: counts}
	default:
		byOption := make(map[uint32][]UserID)
		for user, votes := range p.Votes {
			for _, o := range votes {
				byOption[o] = append(byOption[o], user)
			}
		}
		out.Total = TotalVotes{Visibility: TallyVisible, Visible: byOption}
	}
	return out
}
