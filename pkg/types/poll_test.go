package types

import "testing"

func newPoll(multi bool, endDate TimestampMillis, anonymous, showBeforeEnd bool) PollContent {
	return PollContent{Config: PollConfig{
		Options:                   []string{"a", "b", "c"},
		EndDate:                   endDate,
		Anonymous:                 anonymous,
		ShowVotesBeforeEndDate:    showBeforeEnd,
		AllowMultipleVotesPerUser: multi,
	}}
}

func TestApplyVote(t *testing.T) {
	t.Run("RegisterAndRepeat", func(t *testing.T) {
		p := newPoll(false, 0, false, true)
		outcome, displaced := p.ApplyVote("u1", 0, RegisterVote)
		if outcome != VoteChanged || displaced {
			t.Fatalf("first vote: outcome=%d displaced=%v", outcome, displaced)
		}
		outcome, _ = p.ApplyVote("u1", 0, RegisterVote)
		if outcome != VoteNoChange {
			t.Fatalf("repeat vote should be a no-op, got %d", outcome)
		}
	})

	t.Run("SingleVoteDisplacement", func(t *testing.T) {
		p := newPoll(false, 0, false, true)
		p.ApplyVote("u1", 0, RegisterVote)
		outcome, displaced := p.ApplyVote("u1", 1, RegisterVote)
		if outcome != VoteChanged || !displaced {
			t.Fatalf("switching options should displace, got outcome=%d displaced=%v", outcome, displaced)
		}
		if got := p.Votes["u1"]; len(got) != 1 || got[0] != 1 {
			t.Fatalf("expected single vote for option 1, got %v", got)
		}
	})

	t.Run("MultipleVotesAllowed", func(t *testing.T) {
		p := newPoll(true, 0, false, true)
		p.ApplyVote("u1", 0, RegisterVote)
		outcome, displaced := p.ApplyVote("u1", 2, RegisterVote)
		if outcome != VoteChanged || displaced {
			t.Fatalf("multi-vote poll should accept a second option")
		}
		if got := p.Votes["u1"]; len(got) != 2 {
			t.Fatalf("expected two votes, got %v", got)
		}
	})

	t.Run("DeleteVote", func(t *testing.T) {
		p := newPoll(false, 0, false, true)
		p.ApplyVote("u1", 0, RegisterVote)
		outcome, _ := p.ApplyVote("u1", 0, DeleteVote)
		if outcome != VoteChanged {
			t.Fatalf("delete of an existing vote should change, got %d", outcome)
		}
		if _, ok := p.Votes["u1"]; ok {
			t.Fatalf("user entry should be dropped when their last vote is deleted")
		}
		outcome, _ = p.ApplyVote("u1", 0, DeleteVote)
		if outcome != VoteNoChange {
			t.Fatalf("deleting a missing vote should be a no-op, got %d", outcome)
		}
	})

	t.Run("EndedPoll", func(t *testing.T) {
		p := newPoll(false, 0, false, true)
		p.Ended = true
		if outcome, _ := p.ApplyVote("u1", 0, RegisterVote); outcome != VotePollEnded {
			t.Fatalf("ended poll should reject votes, got %d", outcome)
		}
	})

	t.Run("OptionOutOfRange", func(t *testing.T) {
		p := newPoll(false, 0, false, true)
		if outcome, _ := p.ApplyVote("u1", 3, RegisterVote); outcome != VoteOptionOutOfRange {
			t.Fatalf("option 3 of 3 should be out of range, got %d", outcome)
		}
	})
}

func TestTallyVisibility(t *testing.T) {
	t.Run("HiddenBeforeEnd", func(t *testing.T) {
		p := newPoll(false, 1000, false, false)
		p.ApplyVote("u1", 0, RegisterVote)
		p.ApplyVote("u2", 1, RegisterVote)

		tally := p.TallyFor("u1")
		if tally.Total.Visibility != TallyHidden {
			t.Fatalf("expected hidden tally, got %s", tally.Total.Visibility)
		}
		if tally.Total.Hidden != 2 {
			t.Fatalf("expected 2 hidden votes, got %d", tally.Total.Hidden)
		}
		if len(tally.User) != 1 || tally.User[0] != 0 {
			t.Fatalf("viewer should still see their own votes, got %v", tally.User)
		}
	})

	t.Run("HiddenFlipsAfterEnd", func(t *testing.T) {
		p := newPoll(false, 1000, false, false)
		p.ApplyVote("u1", 0, RegisterVote)
		p.Ended = true
		tally := p.TallyFor("u2")
		if tally.Total.Visibility != TallyVisible {
			t.Fatalf("hidden tally should become visible after end, got %s", tally.Total.Visibility)
		}
		if got := tally.Total.Visible[0]; len(got) != 1 || got[0] != "u1" {
			t.Fatalf("expected voter list for option 0, got %v", got)
		}
	})

	t.Run("Anonymous", func(t *testing.T) {
		p := newPoll(false, 0, true, true)
		p.ApplyVote("u1", 1, RegisterVote)
		p.ApplyVote("u2", 1, RegisterVote)
		tally := p.TallyFor("u3")
		if tally.Total.Visibility != TallyAnonymous {
			t.Fatalf("expected anonymous tally, got %s", tally.Total.Visibility)
		}
		if tally.Total.Anonymous[1] != 2 {
			t.Fatalf("expected 2 votes on option 1, got %d", tally.Total.Anonymous[1])
		}
		if tally.Total.Visible != nil {
			t.Fatalf("anonymous tally must not expose voter lists")
		}
	})
}

func TestPollHydrate(t *testing.T) {
	p := newPoll(false, 0, false, true)
	p.ApplyVote("u1", 0, RegisterVote)

	h := p.Hydrate("u1")
	if h.Votes != nil {
		t.Fatalf("hydrated poll must not carry the raw vote map")
	}
	if h.Tally == nil {
		t.Fatalf("hydrated poll must carry a tally")
	}
	if len(h.Tally.User) != 1 || h.Tally.User[0] != 0 {
		t.Fatalf("tally should reflect the viewer's own votes, got %v", h.Tally.User)
	}
}
