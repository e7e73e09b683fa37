package ledger

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"chatledger/pkg/types"
)

// roundTrip pushes every event through the JSON codec, as the journal does.
func roundTrip(t *testing.T, events []Event) []Event {
	t.Helper()
	out := make([]Event, len(events))
	for i, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal event %d: %v", ev.Index, err)
		}
		if err := json.Unmarshal(data, &out[i]); err != nil {
			t.Fatalf("unmarshal event %d: %v", ev.Index, err)
		}
	}
	return out
}

func TestReplayRoundTrip(t *testing.T) {
	l := NewGroup("g", "general", "a place", "alice", 1)
	textID, _, _ := pushText(t, l, "alice", "hello there", 2)
	pollMsg, _ := l.PushMessage(PushMessageArgs{
		Sender:    "bob",
		MessageID: uuid.New(),
		Content:   types.PollContent{Config: types.PollConfig{Options: []string{"a", "b"}, ShowVotesBeforeEndDate: true}},
		Now:       3,
	})
	l.ToggleReaction("bob", textID, "👍", 4)
	l.RegisterPollVote("carol", pollMsg.MessageIndex, 1, types.RegisterVote, 5)
	l.EditMessage("alice", textID, types.TextContent{Text: "hello again"}, 6)
	delID, _, _ := pushText(t, l, "bob", "delete me", 7)
	l.DeleteMessage("bob", false, delID, 8)

	events := l.Since(0, 0)
	replayed, err := Replay(ScopeGroup, "g", roundTrip(t, events))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if replayed.Len() != l.Len() {
		t.Fatalf("length diverged: %d vs %d", replayed.Len(), l.Len())
	}
	if !reflect.DeepEqual(replayed.Metrics(), l.Metrics()) {
		t.Fatalf("metrics diverged:\nlive:     %+v\nreplayed: %+v", l.Metrics(), replayed.Metrics())
	}
	for _, user := range []types.UserID{"alice", "bob", "carol"} {
		lm, lok := l.UserMetrics(user, 0)
		rm, rok := replayed.UserMetrics(user, 0)
		if lok != rok || !reflect.DeepEqual(lm, rm) {
			t.Fatalf("user metrics for %s diverged:\nlive:     %+v\nreplayed: %+v", user, lm, rm)
		}
	}

	if _, ok := replayed.EventIndexByMessageID(textID); !ok {
		t.Fatalf("message id lookup lost in replay")
	}
	_, liveLatest, _ := l.LatestMessage("alice")
	_, replayedLatest, _ := replayed.LatestMessage("alice")
	if liveLatest.MessageIndex != replayedLatest.MessageIndex {
		t.Fatalf("latest message diverged: %d vs %d", liveLatest.MessageIndex, replayedLatest.MessageIndex)
	}

	// The replayed ledger accepts further writes where the live one does.
	if res := l.EditMessage("alice", textID, types.TextContent{Text: "v3"}, 9); res != EditSuccess {
		t.Fatalf("live edit failed: %d", res)
	}
	if res := replayed.EditMessage("alice", textID, types.TextContent{Text: "v3"}, 9); res != EditSuccess {
		t.Fatalf("replayed edit failed: %d", res)
	}
}

func TestReplayAfterKindChangingEdit(t *testing.T) {
	l := NewDirect("c", 1)
	id, _, _ := pushText(t, l, "alice", "caption to come", 2)
	img := types.ImageContent{MimeType: "image/png", BlobReference: &types.BlobReference{CanisterID: "b", BlobID: 1}}
	if res := l.EditMessage("alice", id, img, 3); res != EditSuccess {
		t.Fatalf("edit to image failed: %d", res)
	}

	m := l.Metrics()
	if m.TextMessages != 0 || m.ImageMessages != 1 || m.Edits != 1 {
		t.Fatalf("live counters did not follow the kind change: %+v", m)
	}

	replayed, err := Replay(ScopeDirect, "c", roundTrip(t, l.Since(0, 0)))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !reflect.DeepEqual(replayed.Metrics(), l.Metrics()) {
		t.Fatalf("metrics diverged:\nlive:     %+v\nreplayed: %+v", l.Metrics(), replayed.Metrics())
	}
	lm, _ := l.UserMetrics("alice", 0)
	rm, _ := replayed.UserMetrics("alice", 0)
	if !reflect.DeepEqual(lm, rm) {
		t.Fatalf("user metrics diverged:\nlive:     %+v\nreplayed: %+v", lm, rm)
	}
}

func TestReplayRejectsCorruptSequences(t *testing.T) {
	base := func() []Event {
		l := NewDirect("c", 1)
		pushText(t, l, "alice", "one", 2)
		pushText(t, l, "bob", "two", 3)
		return l.Since(0, 0)
	}

	t.Run("GapInEventIndexes", func(t *testing.T) {
		events := base()
		events[2].Index = 5
		if _, err := Replay(ScopeDirect, "c", events); err == nil {
			t.Fatalf("expected error for gapped indexes")
		}
	})

	t.Run("DuplicateMessageID", func(t *testing.T) {
		events := base()
		mp1 := events[1].Payload.(MessagePayload)
		mp2 := events[2].Payload.(MessagePayload)
		mp2.Message.MessageID = mp1.Message.MessageID
		if _, err := Replay(ScopeDirect, "c", events); err == nil {
			t.Fatalf("expected error for duplicate message id")
		}
	})

	t.Run("MessageIndexOutOfOrder", func(t *testing.T) {
		events := base()
		events[2].Payload.(MessagePayload).Message.MessageIndex = 7
		if _, err := Replay(ScopeDirect, "c", events); err == nil {
			t.Fatalf("expected error for out-of-order message index")
		}
	})

	t.Run("WrongScope", func(t *testing.T) {
		if _, err := Replay(ScopeThread, "c", base()); err == nil {
			t.Fatalf("chat-created event inside a thread should be rejected")
		}
	})
}
