package maintenance

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"chatledger/pkg/config"
	"chatledger/pkg/ledger"
	"chatledger/pkg/registry"
	"chatledger/pkg/store"
	"chatledger/pkg/types"
)

func setupRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("store.Close: %v", err)
		}
	})
	r := registry.New()
	if err := r.CreateGroup("g1", "general", "", "alice", 1); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return r
}

func TestRunOnce(t *testing.T) {
	r := setupRegistry(t)

	// A poll already overdue and a message deleted long ago.
	poll, _, err := r.PushMessage("g1", nil, ledger.PushMessageArgs{
		Sender:    "alice",
		MessageID: uuid.New(),
		Content:   types.PollContent{Config: types.PollConfig{Options: []string{"a", "b"}, EndDate: 2}},
		Now:       2,
	})
	if err != nil {
		t.Fatalf("push poll: %v", err)
	}
	delID := uuid.New()
	if _, _, err := r.PushMessage("g1", nil, ledger.PushMessageArgs{
		Sender: "alice", MessageID: delID, Content: types.TextContent{Text: "old"}, Now: 3,
	}); err != nil {
		t.Fatalf("push message: %v", err)
	}
	if _, err := r.DeleteMessage("g1", nil, "alice", false, delID, 4); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	cfg := &config.Config{}
	cfg.Maintenance.Enabled = true
	cfg.Maintenance.PurgeDeletedAfter = "1ms"

	if err := RunOnce(context.Background(), cfg, r); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	_, msg, ok, err := r.MessageByIndex("g1", nil, poll.MessageIndex, "alice")
	if err != nil || !ok {
		t.Fatalf("poll lookup: ok=%v err=%v", ok, err)
	}
	if pc, ok := msg.Content.(types.PollContent); !ok || !pc.Ended {
		t.Fatalf("overdue poll should be ended, got %#v", msg.Content)
	}

	events, err := r.EventsSince("g1", nil, 0, 0)
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	var purgedStored bool
	for _, ev := range events {
		if mp, ok := ev.Payload.(ledger.MessagePayload); ok {
			if _, deleted := mp.Message.Content.(types.DeletedContent); deleted {
				purgedStored = true
			}
		}
	}
	if !purgedStored {
		t.Fatalf("deleted message body should be excised from the stored record")
	}
}

func TestStartDisabled(t *testing.T) {
	r := setupRegistry(t)

	cfg := &config.Config{}
	cancel, err := Start(context.Background(), cfg, r)
	if err != nil {
		t.Fatalf("Start with maintenance disabled should be a no-op: %v", err)
	}
	cancel()
}

func TestStartRejectsBadCron(t *testing.T) {
	r := setupRegistry(t)

	cfg := &config.Config{}
	cfg.Maintenance.Enabled = true
	cfg.Maintenance.Cron = "not a cron"
	if _, err := Start(context.Background(), cfg, r); err == nil {
		t.Fatalf("invalid cron expression should be rejected")
	}
}
