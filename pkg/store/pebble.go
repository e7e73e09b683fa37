// Package store persists each chat's event sequence in a Pebble database.
// Keys sort by event index, so a prefix scan yields the sequence in order.
// Only the sequence is the source of truth: lookup maps and metrics are
// rebuilt by replay at load time.
//
// Key layout:
//
//	chat:<id>:meta                                chat metadata (JSON)
//	chat:<id>:event:<index, zero padded>          main ledger event (JSON)
//	chat:<id>:thread:<root idx>:event:<index>     thread ledger event (JSON)
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"

	"chatledger/pkg/ledger"
	"chatledger/pkg/logger"
	"chatledger/pkg/types"
)

var (
	db     *pebble.DB
	dbPath string
)

// ChatMeta is the persisted description of one chat.
type ChatMeta struct {
	ID          types.ChatID          `json:"id"`
	Scope       string                `json:"scope"`
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	CreatedAt   types.TimestampMillis `json:"created_at"`
}

// Open opens (or creates) the Pebble database at the given path and keeps a
// package-level handle.
func Open(path string) error {
	var err error
	logger.Info("opening_journal", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("journal_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	return nil
}

// Close closes the opened database if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("journal_closed")
	return nil
}

// Ready reports whether the store is opened.
func Ready() bool { return db != nil }

func metaKey(chat types.ChatID) []byte {
	return []byte(fmt.Sprintf("chat:%s:meta", chat))
}

func eventPrefix(chat types.ChatID, thread *types.MessageIndex) []byte {
	if thread != nil {
		return []byte(fmt.Sprintf("chat:%s:thread:%010d:event:", chat, *thread))
	}
	return []byte(fmt.Sprintf("chat:%s:event:", chat))
}

func eventKey(chat types.ChatID, thread *types.MessageIndex, index types.EventIndex) []byte {
	return append(eventPrefix(chat, thread), []byte(fmt.Sprintf("%012d", index))...)
}

// SaveChatMeta writes chat metadata.
func SaveChatMeta(meta ChatMeta) error {
	if db == nil {
		return fmt.Errorf("journal not opened; call store.Open first")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal chat meta: %w", err)
	}
	return db.Set(metaKey(meta.ID), data, pebble.Sync)
}

// ListChats returns the metadata of every persisted chat.
func ListChats() ([]ChatMeta, error) {
	if db == nil {
		return nil, fmt.Errorf("journal not opened; call store.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []ChatMeta
	prefix := []byte("chat:")
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if !bytes.HasSuffix(key, []byte(":meta")) {
			continue
		}
		var meta ChatMeta
		if err := json.Unmarshal(iter.Value(), &meta); err != nil {
			return nil, fmt.Errorf("invalid chat meta at %s: %w", key, err)
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WriteEvents writes the given event records in one atomic batch. It is used
// both to append new events and to rewrite a message event in place after a
// mutation, so a mutation's full effect hits the journal or none of it does.
func WriteEvents(chat types.ChatID, thread *types.MessageIndex, events []ledger.Event) error {
	if db == nil {
		return fmt.Errorf("journal not opened; call store.Open first")
	}
	batch := db.NewBatch()
	defer batch.Close()
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", ev.Index, err)
		}
		if err := batch.Set(eventKey(chat, thread, ev.Index), data, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// LoadEvents reads one ledger's full event sequence in index order.
func LoadEvents(chat types.ChatID, thread *types.MessageIndex) ([]ledger.Event, error) {
	if db == nil {
		return nil, fmt.Errorf("journal not opened; call store.Open first")
	}
	prefix := eventPrefix(chat, thread)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []ledger.Event
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var ev ledger.Event
		if err := json.Unmarshal(append([]byte(nil), iter.Value()...), &ev); err != nil {
			return nil, fmt.Errorf("invalid event at %s: %w", iter.Key(), err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// ListThreads returns the root message indexes of every thread journal under
// the chat.
func ListThreads(chat types.ChatID) ([]types.MessageIndex, error) {
	if db == nil {
		return nil, fmt.Errorf("journal not opened; call store.Open first")
	}
	prefix := []byte(fmt.Sprintf("chat:%s:thread:", chat))
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	seen := map[types.MessageIndex]struct{}{}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		rest := string(key[len(prefix):])
		root, _, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(root, 10, 32)
		if err != nil {
			continue
		}
		seen[types.MessageIndex(n)] = struct{}{}
	}
	out := make([]types.MessageIndex, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// JournalSizeBytes returns the best-effort on-disk size of the journal.
func JournalSizeBytes() uint64 {
	if dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
