package ledger

import "chatledger/pkg/types"

// Metrics is the aggregate counter set for one ledger (and, in the per-user
// map, for one user within it). Counters are updated in the same logical
// step as the event write, never out of band, so they can also be rebuilt
// deterministically by replaying the event sequence.
type Metrics struct {
	TextMessages     uint64                `json:"text_messages,omitempty"`
	ImageMessages    uint64                `json:"image_messages,omitempty"`
	VideoMessages    uint64                `json:"video_messages,omitempty"`
	AudioMessages    uint64                `json:"audio_messages,omitempty"`
	FileMessages     uint64                `json:"file_messages,omitempty"`
	Polls            uint64                `json:"polls,omitempty"`
	CryptoMessages   uint64                `json:"crypto_messages,omitempty"`
	GiphyMessages    uint64                `json:"giphy_messages,omitempty"`
	ProposalMessages uint64                `json:"proposal_messages,omitempty"`
	PrizeMessages    uint64                `json:"prize_messages,omitempty"`
	CustomMessages   uint64                `json:"custom_messages,omitempty"`
	DeletedMessages  uint64                `json:"deleted_messages,omitempty"`
	Replies          uint64                `json:"replies,omitempty"`
	Edits            uint64                `json:"edits,omitempty"`
	Reactions        uint64                `json:"reactions,omitempty"`
	PollVotes        uint64                `json:"poll_votes,omitempty"`
	TotalEvents      uint64                `json:"total_events,omitempty"`
	LastActive       types.TimestampMillis `json:"last_active,omitempty"`
}

// contentCounter maps a content kind to its message counter, or nil when the
// kind is not counted (deletion markers, prize winner records).
func (m *Metrics) contentCounter(kind types.ContentKind) *uint64 {
	switch kind {
	case types.ContentText:
		return &m.TextMessages
	case types.ContentImage:
		return &m.ImageMessages
	case types.ContentVideo:
		return &m.VideoMessages
	case types.ContentAudio:
		return &m.AudioMessages
	case types.ContentFile:
		return &m.FileMessages
	case types.ContentPoll:
		return &m.Polls
	case types.ContentCrypto:
		return &m.CryptoMessages
	case types.ContentGiphy:
		return &m.GiphyMessages
	case types.ContentProposal:
		return &m.ProposalMessages
	case types.ContentPrize:
		return &m.PrizeMessages
	case types.ContentCustom:
		return &m.CustomMessages
	default:
		return nil
	}
}

func (m *Metrics) addMessage(msg *MessageInternal) {
	if c := m.contentCounter(msg.Content.Kind()); c != nil {
		*c++
	}
	if msg.ReplyTarget != nil {
		m.Replies++
	}
}

// removeMessage undoes addMessage when a message is deleted.
func (m *Metrics) removeMessage(msg *MessageInternal) {
	if c := m.contentCounter(msg.Content.Kind()); c != nil && *c > 0 {
		*c--
	}
	if msg.ReplyTarget != nil && m.Replies > 0 {
		m.Replies--
	}
}

// replaceContent moves a message's contribution between content-kind
// counters when an edit changes the kind. The journal stores the rewritten
// message, so replay counts it under the new kind; the live counters must
// move with it.
func (m *Metrics) replaceContent(oldKind, newKind types.ContentKind) {
	if c := m.contentCounter(oldKind); c != nil && *c > 0 {
		*c--
	}
	if c := m.contentCounter(newKind); c != nil {
		*c++
	}
}

// addEvent applies one payload's contribution. Used identically on push and
// on replay.
func (m *Metrics) addEvent(p EventPayload, now types.TimestampMillis) {
	switch v := p.(type) {
	case MessagePayload:
		// A replayed message that was later deleted contributes to the
		// deleted counter via its MessageDeleted event instead.
		if v.Message.DeletedBy == nil {
			m.addMessage(v.Message)
		}
	case MessageEdited:
		m.Edits++
	case MessageDeleted:
		m.DeletedMessages++
	case ReactionAdded:
		m.Reactions++
	case ReactionRemoved:
		if m.Reactions > 0 {
			m.Reactions--
		}
	case PollVoteRegistered:
		m.PollVotes++
	case PollVoteDeleted:
		if m.PollVotes > 0 {
			m.PollVotes--
		}
	}
	m.TotalEvents++
	if now > m.LastActive {
		m.LastActive = now
	}
}
