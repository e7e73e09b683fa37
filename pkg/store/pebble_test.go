package store

import (
	"testing"

	"github.com/google/uuid"

	"chatledger/pkg/ledger"
	"chatledger/pkg/types"
)

func openTemp(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})
}

func buildEvents(t *testing.T, texts ...string) []ledger.Event {
	t.Helper()
	l := ledger.NewDirect("c1", 1)
	for i, text := range texts {
		l.PushMessage(ledger.PushMessageArgs{
			Sender:    "alice",
			MessageID: uuid.New(),
			Content:   types.TextContent{Text: text},
			Now:       types.TimestampMillis(2 + i),
		})
	}
	return l.Since(0, 0)
}

func TestStoreLifecycle(t *testing.T) {
	if Ready() {
		t.Fatalf("store should not be ready before Open")
	}
	openTemp(t)
	if !Ready() {
		t.Fatalf("store should be ready after Open")
	}
}

func TestWriteAndLoadEvents(t *testing.T) {
	openTemp(t)

	events := buildEvents(t, "one", "two", "three")
	if err := WriteEvents("c1", nil, events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	got, err := LoadEvents("c1", nil)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(got))
	}
	for i, ev := range got {
		if ev.Index != types.EventIndex(i) {
			t.Fatalf("events out of order at %d: index %d", i, ev.Index)
		}
	}

	// Rewriting one record in place replaces it, not appends.
	if err := WriteEvents("c1", nil, events[1:2]); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err = LoadEvents("c1", nil)
	if err != nil {
		t.Fatalf("LoadEvents after rewrite: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("rewrite must not grow the sequence: %d vs %d", len(got), len(events))
	}
}

func TestThreadEventsAreSeparate(t *testing.T) {
	openTemp(t)

	main := buildEvents(t, "root")
	if err := WriteEvents("c1", nil, main); err != nil {
		t.Fatalf("write main: %v", err)
	}

	tl := ledger.NewThread("c1")
	tl.PushMessage(ledger.PushMessageArgs{Sender: "bob", MessageID: uuid.New(), Content: types.TextContent{Text: "reply"}, Now: 5})
	root := types.MessageIndex(0)
	if err := WriteEvents("c1", &root, tl.Since(0, 0)); err != nil {
		t.Fatalf("write thread: %v", err)
	}

	mainGot, err := LoadEvents("c1", nil)
	if err != nil {
		t.Fatalf("load main: %v", err)
	}
	if len(mainGot) != len(main) {
		t.Fatalf("thread events leaked into the main ledger: %d vs %d", len(mainGot), len(main))
	}

	threadGot, err := LoadEvents("c1", &root)
	if err != nil {
		t.Fatalf("load thread: %v", err)
	}
	if len(threadGot) != 1 {
		t.Fatalf("expected 1 thread event, got %d", len(threadGot))
	}

	roots, err := ListThreads("c1")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(roots) != 1 || roots[0] != 0 {
		t.Fatalf("expected thread root [0], got %v", roots)
	}
}

func TestChatMeta(t *testing.T) {
	openTemp(t)

	for _, meta := range []ChatMeta{
		{ID: "beta", Scope: "group", Name: "b", CreatedAt: 2},
		{ID: "alpha", Scope: "direct", CreatedAt: 1},
	} {
		if err := SaveChatMeta(meta); err != nil {
			t.Fatalf("SaveChatMeta(%s): %v", meta.ID, err)
		}
	}

	metas, err := ListChats()
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(metas) != 2 || metas[0].ID != "alpha" || metas[1].ID != "beta" {
		t.Fatalf("expected sorted [alpha beta], got %v", metas)
	}
	if metas[1].Name != "b" || metas[1].Scope != "group" {
		t.Fatalf("meta fields lost: %+v", metas[1])
	}
}

func TestNotOpened(t *testing.T) {
	if err := WriteEvents("c", nil, nil); err == nil {
		t.Fatalf("WriteEvents without Open should error")
	}
	if _, err := LoadEvents("c", nil); err == nil {
		t.Fatalf("LoadEvents without Open should error")
	}
	if _, err := ListChats(); err == nil {
		t.Fatalf("ListChats without Open should error")
	}
}
