// Package registry holds every loaded chat ledger and keeps the Pebble
// journal in step with it. Each mutation appends its new events and rewrites
// the stored record of any message it touched in a single batch, so a replay
// of the journal always reproduces the in-memory state.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"chatledger/pkg/ledger"
	"chatledger/pkg/logger"
	"chatledger/pkg/search"
	"chatledger/pkg/store"
	"chatledger/pkg/telemetry"
	"chatledger/pkg/types"
)

// Chat is one loaded chat: the main ledger plus one ledger per thread,
// keyed by the thread root's message index.
type Chat struct {
	Meta    store.ChatMeta
	Main    *ledger.Ledger
	Threads map[types.MessageIndex]*ledger.Ledger
}

// Registry is the concurrency-safe set of loaded chats.
type Registry struct {
	mu    sync.RWMutex
	chats map[types.ChatID]*Chat
}

func New() *Registry {
	return &Registry{chats: make(map[types.ChatID]*Chat)}
}

// Load replays every persisted chat (and its threads) from the journal.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	metas, err := store.ListChats()
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for _, meta := range metas {
		scope := ledger.ScopeDirect
		if meta.Scope == ledger.ScopeGroup.String() {
			scope = ledger.ScopeGroup
		}
		events, err := store.LoadEvents(meta.ID, nil)
		if err != nil {
			return fmt.Errorf("load chat %s: %w", meta.ID, err)
		}
		main, err := ledger.Replay(scope, meta.ID, events)
		if err != nil {
			return fmt.Errorf("replay chat %s: %w", meta.ID, err)
		}
		chat := &Chat{Meta: meta, Main: main, Threads: make(map[types.MessageIndex]*ledger.Ledger)}

		roots, err := store.ListThreads(meta.ID)
		if err != nil {
			return fmt.Errorf("list threads of %s: %w", meta.ID, err)
		}
		for _, root := range roots {
			tev, err := store.LoadEvents(meta.ID, &root)
			if err != nil {
				return fmt.Errorf("load thread %s/%d: %w", meta.ID, root, err)
			}
			tl, err := ledger.Replay(ledger.ScopeThread, meta.ID, tev)
			if err != nil {
				return fmt.Errorf("replay thread %s/%d: %w", meta.ID, root, err)
			}
			chat.Threads[root] = tl
		}
		r.chats[meta.ID] = chat
		logger.Info("chat_loaded", "chat", meta.ID, "scope", meta.Scope, "events", main.Len(), "threads", len(chat.Threads))
	}
	telemetry.ChatsOpen.Set(float64(len(r.chats)))
	return nil
}

// CreateDirect opens a new direct chat and persists its creation event.
func (r *Registry) CreateDirect(id types.ChatID, now types.TimestampMillis) error {
	return r.create(store.ChatMeta{ID: id, Scope: ledger.ScopeDirect.String(), CreatedAt: now}, func() *ledger.Ledger {
		return ledger.NewDirect(id, now)
	})
}

// CreateGroup opens a new group chat and persists its creation event.
func (r *Registry) CreateGroup(id types.ChatID, name, description string, createdBy types.UserID, now types.TimestampMillis) error {
	meta := store.ChatMeta{ID: id, Scope: ledger.ScopeGroup.String(), Name: name, Description: description, CreatedAt: now}
	return r.create(meta, func() *ledger.Ledger {
		return ledger.NewGroup(id, name, description, createdBy, now)
	})
}

func (r *Registry) create(meta store.ChatMeta, build func() *ledger.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chats[meta.ID]; exists {
		return fmt.Errorf("chat %s already exists", meta.ID)
	}
	main := build()
	if err := store.SaveChatMeta(meta); err != nil {
		return fmt.Errorf("save chat meta: %w", err)
	}
	if err := persist(meta.ID, nil, main, 0); err != nil {
		return err
	}
	r.chats[meta.ID] = &Chat{Meta: meta, Main: main, Threads: make(map[types.MessageIndex]*ledger.Ledger)}
	telemetry.ChatsOpen.Set(float64(len(r.chats)))
	logger.Info("chat_created", "chat", meta.ID, "scope", meta.Scope)
	return nil
}

// persist writes the events appended at or after from, plus the stored
// records of any touched message events, in one batch. New events are also
// counted toward telemetry.
func persist(chat types.ChatID, thread *types.MessageIndex, l *ledger.Ledger, from types.EventIndex, touched ...types.EventIndex) error {
	var out []ledger.Event
	written := make(map[types.EventIndex]struct{})
	for i := from; i < l.NextEventIndex(); i++ {
		ev, ok := l.Get(i)
		if !ok {
			break
		}
		out = append(out, ev)
		written[i] = struct{}{}
		telemetry.EventsAppended.WithLabelValues(l.Scope().String(), string(ev.Payload.EventKind())).Inc()
	}
	for _, t := range touched {
		if _, dup := written[t]; dup {
			continue
		}
		if ev, ok := l.Get(t); ok {
			out = append(out, ev)
			written[t] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	if err := store.WriteEvents(chat, thread, out); err != nil {
		return fmt.Errorf("persist chat %s: %w", chat, err)
	}
	return nil
}

func (r *Registry) chat(id types.ChatID) (*Chat, error) {
	c, ok := r.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s not found", id)
	}
	return c, nil
}

// resolve returns the target ledger: the chat's main ledger, or the thread
// ledger rooted at *thread. A nil result with nil error never happens.
func (r *Registry) resolve(id types.ChatID, thread *types.MessageIndex) (*ledger.Ledger, error) {
	c, err := r.chat(id)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return c.Main, nil
	}
	tl, ok := c.Threads[*thread]
	if !ok {
		return nil, fmt.Errorf("chat %s has no thread rooted at message index %d", id, *thread)
	}
	return tl, nil
}

// PushMessage validates and appends a message. With a non-nil thread root it
// lands in the thread's ledger and the root message's thread summary on the
// main ledger is updated in the same call.
func (r *Registry) PushMessage(chat types.ChatID, thread *types.MessageIndex, args ledger.PushMessageArgs) (types.Message, types.EventIndex, error) {
	if err := types.ValidateNewContent(args.Content, args.Forwarded); err != nil {
		return types.Message{}, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.chat(chat)
	if err != nil {
		return types.Message{}, 0, err
	}

	if thread == nil {
		from := c.Main.NextEventIndex()
		msg, idx := c.Main.PushMessage(args)
		if err := persist(chat, nil, c.Main, from); err != nil {
			return types.Message{}, 0, err
		}
		telemetry.MessagesPushed.WithLabelValues(string(args.Content.Kind())).Inc()
		return msg, idx, nil
	}

	rootEvent, ok := c.Main.EventIndexByMessageIndex(*thread)
	if !ok {
		return types.Message{}, 0, fmt.Errorf("chat %s has no message at index %d to thread under", chat, *thread)
	}
	tl, ok := c.Threads[*thread]
	if !ok {
		tl = ledger.NewThread(chat)
		c.Threads[*thread] = tl
	}

	from := tl.NextEventIndex()
	msg, idx := tl.PushMessage(args)
	if err := persist(chat, thread, tl, from); err != nil {
		return types.Message{}, 0, err
	}

	mainFrom := c.Main.NextEventIndex()
	c.Main.AddReplyToThread(ledger.ReplyToThreadArgs{
		ThreadMessageIndex: *thread,
		Sender:             args.Sender,
		LatestEventIndex:   idx,
		Now:                args.Now,
	})
	if err := persist(chat, nil, c.Main, mainFrom, rootEvent); err != nil {
		return types.Message{}, 0, err
	}
	telemetry.MessagesPushed.WithLabelValues(string(args.Content.Kind())).Inc()
	return msg, idx, nil
}

// EditMessage replaces a message's content, if the caller sent it.
func (r *Registry) EditMessage(chat types.ChatID, thread *types.MessageIndex, sender types.UserID, messageID types.MessageID, content types.Content, now types.TimestampMillis) (ledger.EditMessageResult, error) {
	if err := types.ValidateNewContent(content, false); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return 0, err
	}
	from := l.NextEventIndex()
	res := l.EditMessage(sender, messageID, content, now)
	if res != ledger.EditSuccess {
		return res, nil
	}
	touched, _ := l.EventIndexByMessageID(messageID)
	return res, persist(chat, thread, l, from, touched)
}

// DeleteMessage soft-deletes a message.
func (r *Registry) DeleteMessage(chat types.ChatID, thread *types.MessageIndex, caller types.UserID, isPrivileged bool, messageID types.MessageID, now types.TimestampMillis) (ledger.DeleteMessageResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return ledger.DeleteMessageResult{}, err
	}
	from := l.NextEventIndex()
	res := l.DeleteMessage(caller, isPrivileged, messageID, now)
	if res.Outcome != ledger.DeleteSuccess {
		return res, nil
	}
	telemetry.MessagesDeleted.Inc()
	touched, _ := l.EventIndexByMessageID(messageID)
	return res, persist(chat, thread, l, from, touched)
}

// ToggleReaction flips the caller's reaction on a message.
func (r *Registry) ToggleReaction(chat types.ChatID, thread *types.MessageIndex, user types.UserID, messageID types.MessageID, reaction types.Reaction, now types.TimestampMillis) (ledger.ToggleOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return 0, err
	}
	from := l.NextEventIndex()
	outcome, _ := l.ToggleReaction(user, messageID, reaction, now)
	if outcome == ledger.ReactionMessageNotFound {
		return outcome, nil
	}
	direction := "added"
	if outcome == ledger.ReactionRemovedOutcome {
		direction = "removed"
	}
	telemetry.ReactionToggles.WithLabelValues(direction).Inc()
	touched, _ := l.EventIndexByMessageID(messageID)
	return outcome, persist(chat, thread, l, from, touched)
}

// RegisterPollVote applies a vote operation to the poll at the given message
// index.
func (r *Registry) RegisterPollVote(chat types.ChatID, thread *types.MessageIndex, user types.UserID, messageIndex types.MessageIndex, optionIndex uint32, op types.VoteOperation, now types.TimestampMillis) (ledger.RegisterVoteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return ledger.RegisterVoteResult{}, err
	}
	from := l.NextEventIndex()
	res := l.RegisterPollVote(user, messageIndex, optionIndex, op, now)
	if res.Outcome != ledger.VoteSuccess {
		return res, nil
	}
	telemetry.PollVotes.Inc()
	touched, _ := l.EventIndexByMessageIndex(messageIndex)
	return res, persist(chat, thread, l, from, touched)
}

// EndPoll closes a poll ahead of or at its scheduled end date.
func (r *Registry) EndPoll(chat types.ChatID, thread *types.MessageIndex, messageIndex types.MessageIndex, now types.TimestampMillis) (ledger.EndPollOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return 0, err
	}
	from := l.NextEventIndex()
	outcome := l.EndPoll(messageIndex, now)
	if outcome != ledger.EndPollSuccess {
		return outcome, nil
	}
	telemetry.PollsEnded.Inc()
	touched, _ := l.EventIndexByMessageIndex(messageIndex)
	return outcome, persist(chat, thread, l, from, touched)
}

// ChatIDs returns the ids of every loaded chat, sorted.
func (r *Registry) ChatIDs() []types.ChatID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ChatID, 0, len(r.chats))
	for id := range r.chats {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SweepChat runs the maintenance pass over one chat and every one of its
// threads: overdue polls are ended and long-deleted message bodies are
// excised. It returns the number of polls ended and records purged.
func (r *Registry) SweepChat(chat types.ChatID, now types.TimestampMillis, purgeCutoff types.TimestampMillis) (pollsEnded, purged int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.chat(chat)
	if err != nil {
		return 0, 0, err
	}

	sweep := func(thread *types.MessageIndex, l *ledger.Ledger) error {
		from := l.NextEventIndex()
		var touched []types.EventIndex
		for _, idx := range l.EndOverduePolls(now) {
			pollsEnded++
			if e, ok := l.EventIndexByMessageIndex(idx); ok {
				touched = append(touched, e)
			}
		}
		for _, idx := range l.PurgeDeletedContent(purgeCutoff) {
			purged++
			if e, ok := l.EventIndexByMessageIndex(idx); ok {
				touched = append(touched, e)
			}
		}
		return persist(chat, thread, l, from, touched...)
	}

	if err := sweep(nil, c.Main); err != nil {
		return pollsEnded, purged, err
	}
	roots := make([]types.MessageIndex, 0, len(c.Threads))
	for root := range c.Threads {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	for _, root := range roots {
		root := root
		if err := sweep(&root, c.Threads[root]); err != nil {
			return pollsEnded, purged, err
		}
	}
	telemetry.PollsEnded.Add(float64(pollsEnded))
	telemetry.PurgedContent.Add(float64(purged))
	return pollsEnded, purged, nil
}

// EventsSince returns the events at or after from, respecting the caller's
// visibility floor.
func (r *Registry) EventsSince(chat types.ChatID, thread *types.MessageIndex, from, minVisible types.EventIndex) ([]ledger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return nil, err
	}
	return l.Since(from, minVisible), nil
}

// EventsRange returns the events in [from, to].
func (r *Registry) EventsRange(chat types.ChatID, thread *types.MessageIndex, from, to, minVisible types.EventIndex) ([]ledger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return nil, err
	}
	return l.Range(from, to, minVisible), nil
}

// EventsByIndex returns the events at the requested indexes.
func (r *Registry) EventsByIndex(chat types.ChatID, thread *types.MessageIndex, indexes []types.EventIndex, minVisible types.EventIndex) ([]ledger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return nil, err
	}
	return l.GetByIndex(indexes, minVisible), nil
}

// EventsFromIndex pages through the ledger in either direction.
func (r *Registry) EventsFromIndex(chat types.ChatID, thread *types.MessageIndex, start types.EventIndex, ascending bool, maxEvents int, minVisible types.EventIndex) ([]ledger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return nil, err
	}
	return l.FromIndex(start, ascending, maxEvents, minVisible), nil
}

// EventsWindow returns a window of events centred on a mid point.
func (r *Registry) EventsWindow(chat types.ChatID, thread *types.MessageIndex, midPoint types.EventIndex, maxEvents int, minVisible types.EventIndex) ([]ledger.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return nil, err
	}
	return l.Window(midPoint, maxEvents, minVisible), nil
}

// AffectedSince returns the indexes of events whose content changed after the
// given time.
func (r *Registry) AffectedSince(chat types.ChatID, thread *types.MessageIndex, since types.TimestampMillis, maxResults int) ([]types.EventIndex, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return nil, err
	}
	return l.AffectedSince(since, maxResults), nil
}

// SearchMessages scores the chat's messages against the query.
func (r *Registry) SearchMessages(chat types.ChatID, now types.TimestampMillis, minVisible types.EventIndex, query search.Query, maxResults int, viewer types.UserID) ([]ledger.MessageMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, err := r.chat(chat)
	if err != nil {
		return nil, err
	}
	telemetry.SearchQueries.Inc()
	return c.Main.SearchMessages(now, minVisible, query, maxResults, viewer), nil
}

// LatestMessage returns the chat's latest message hydrated for the viewer.
func (r *Registry) LatestMessage(chat types.ChatID, thread *types.MessageIndex, viewer types.UserID) (ledger.Event, types.Message, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return ledger.Event{}, types.Message{}, false, err
	}
	ev, msg, ok := l.LatestMessage(viewer)
	return ev, msg, ok, nil
}

// MessageByIndex returns the hydrated message at a message index.
func (r *Registry) MessageByIndex(chat types.ChatID, thread *types.MessageIndex, idx types.MessageIndex, viewer types.UserID) (ledger.Event, types.Message, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return ledger.Event{}, types.Message{}, false, err
	}
	ev, msg, ok := l.MessageByMessageIndex(idx, viewer)
	return ev, msg, ok, nil
}

// Metrics returns a chat ledger's aggregate counters.
func (r *Registry) Metrics(chat types.ChatID, thread *types.MessageIndex) (ledger.Metrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return ledger.Metrics{}, err
	}
	return l.Metrics(), nil
}

// UserMetrics returns one user's counters in a chat, honouring the
// incremental-sync cutoff.
func (r *Registry) UserMetrics(chat types.ChatID, thread *types.MessageIndex, user types.UserID, ifUpdatedSince types.TimestampMillis) (ledger.Metrics, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, err := r.resolve(chat, thread)
	if err != nil {
		return ledger.Metrics{}, false, err
	}
	m, ok := l.UserMetrics(user, ifUpdatedSince)
	return m, ok, nil
}

// ChatStats is the ops-endpoint summary of one chat.
type ChatStats struct {
	ID      types.ChatID   `json:"id"`
	Scope   string         `json:"scope"`
	Events  int            `json:"events"`
	Threads int            `json:"threads"`
	Metrics ledger.Metrics `json:"metrics"`
}

// Stats summarises every loaded chat.
func (r *Registry) Stats() []ChatStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChatStats, 0, len(r.chats))
	for _, c := range r.chats {
		out = append(out, ChatStats{
			ID:      c.Meta.ID,
			Scope:   c.Meta.Scope,
			Events:  c.Main.Len(),
			Threads: len(c.Threads),
			Metrics: c.Main.Metrics(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
