// Package ledger implements the per-chat append-only event ledger: the
// ordered event sequence, the message-id and message-index lookup maps
// derived from it, and the aggregate and per-user activity metrics. One
// Ledger instance backs one chat or one thread; instances share nothing and
// are mutated strictly sequentially by their owner.
package ledger

import (
	"fmt"

	"chatledger/pkg/types"
)

// Scope restricts which payload kinds a ledger accepts.
type Scope uint8

const (
	ScopeDirect Scope = iota
	ScopeGroup
	ScopeThread
)

func (s Scope) String() string {
	switch s {
	case ScopeDirect:
		return "direct"
	case ScopeGroup:
		return "group"
	case ScopeThread:
		return "thread"
	default:
		return "unknown"
	}
}

// Ledger is one chat's event sequence plus its derived lookup state. The
// maps and metrics are a cache over the sequence: they are rebuilt
// identically when the ledger is reconstructed from its persisted events.
type Ledger struct {
	scope  Scope
	chatID types.ChatID

	events          []Event
	messageIDMap    map[types.MessageID]types.EventIndex
	messageIndexMap map[types.MessageIndex]types.EventIndex

	latestMessageEventIndex types.EventIndex
	latestMessageIndex      types.MessageIndex
	hasMessages             bool

	metrics Metrics
	perUser map[types.UserID]*Metrics
}

func newLedger(scope Scope, chatID types.ChatID) *Ledger {
	return &Ledger{
		scope:           scope,
		chatID:          chatID,
		messageIDMap:    make(map[types.MessageID]types.EventIndex),
		messageIndexMap: make(map[types.MessageIndex]types.EventIndex),
		perUser:         make(map[types.UserID]*Metrics),
	}
}

// NewDirect creates the ledger for a direct conversation, seeding it with
// the chat-created event at index zero.
func NewDirect(chatID types.ChatID, now types.TimestampMillis) *Ledger {
	l := newLedger(ScopeDirect, chatID)
	l.PushEvent(DirectChatCreated{}, now)
	return l
}

// NewGroup creates the ledger for a group or community channel.
func NewGroup(chatID types.ChatID, name, description string, createdBy types.UserID, now types.TimestampMillis) *Ledger {
	l := newLedger(ScopeGroup, chatID)
	l.PushEvent(GroupChatCreated{Name: name, Description: description, CreatedBy: createdBy}, now)
	return l
}

// NewThread creates the ledger for a thread. Threads start empty; the root
// message lives in the parent ledger.
func NewThread(chatID types.ChatID) *Ledger {
	return newLedger(ScopeThread, chatID)
}

func (l *Ledger) ChatID() types.ChatID { return l.chatID }
func (l *Ledger) Scope() Scope         { return l.scope }
func (l *Ledger) Len() int             { return len(l.events) }
func (l *Ledger) IsEmpty() bool        { return len(l.events) == 0 }

// NextEventIndex is the index the next pushed event will be assigned.
func (l *Ledger) NextEventIndex() types.EventIndex {
	return types.EventIndex(len(l.events))
}

// NextMessageIndex is the message index the next pushed message will be
// assigned.
func (l *Ledger) NextMessageIndex() types.MessageIndex {
	if !l.hasMessages {
		return 0
	}
	return l.latestMessageIndex.Incr()
}

// LatestMessageIndex returns the most recently assigned message index.
func (l *Ledger) LatestMessageIndex() (types.MessageIndex, bool) {
	return l.latestMessageIndex, l.hasMessages
}

// PushEvent validates the payload against the ledger's scope, assigns the
// next event index, updates the lookup maps and metrics, and appends. A
// payload that is illegal for the scope, or a message id that was already
// used, is a broken caller contract and panics.
func (l *Ledger) PushEvent(payload EventPayload, now types.TimestampMillis) types.EventIndex {
	if !validForScope(payload.EventKind(), l.scope) {
		panic(fmt.Sprintf("ledger %s: payload kind %q is not valid for %s scope", l.chatID, payload.EventKind(), l.scope))
	}

	index := l.NextEventIndex()
	if mp, ok := payload.(MessagePayload); ok {
		m := mp.Message
		if _, used := l.messageIDMap[m.MessageID]; used {
			panic(fmt.Sprintf("ledger %s: message id %s already used", l.chatID, m.MessageID))
		}
		l.messageIDMap[m.MessageID] = index
		l.messageIndexMap[m.MessageIndex] = index
		l.latestMessageIndex = m.MessageIndex
		l.latestMessageEventIndex = index
		l.hasMessages = true
	}

	l.metrics.addEvent(payload, now)
	if user, ok := actor(payload); ok {
		l.userMetrics(user).addEvent(payload, now)
	}

	l.events = append(l.events, Event{Index: index, Timestamp: now, Payload: payload})
	return index
}

// PushMessageArgs are the caller-resolved inputs to PushMessage.
type PushMessageArgs struct {
	Sender      types.UserID
	MessageID   types.MessageID
	Content     types.Content
	ReplyTarget *types.ReplyContext
	Now         types.TimestampMillis
	Forwarded   bool
}

// PushMessage assigns the next message index, stores the message, and
// returns the hydrated projection (scoped to the sender) together with the
// assigned event index.
func (l *Ledger) PushMessage(args PushMessageArgs) (types.Message, types.EventIndex) {
	m := &MessageInternal{
		MessageIndex: l.NextMessageIndex(),
		MessageID:    args.MessageID,
		Sender:       args.Sender,
		Content:      args.Content,
		ReplyTarget:  args.ReplyTarget,
		Forwarded:    args.Forwarded,
	}
	hydrated := m.Hydrate(args.Sender)
	index := l.PushEvent(MessagePayload{Message: m}, args.Now)
	return hydrated, index
}

// EditMessageResult classifies the outcome of EditMessage.
type EditMessageResult uint8

const (
	EditSuccess EditMessageResult = iota
	EditNotAuthorized
	EditNotFound
)

// EditMessage replaces a message's content and appends a MessageEdited
// event. Only the original sender may edit, and deleted messages read as
// not found.
func (l *Ledger) EditMessage(sender types.UserID, messageID types.MessageID, content types.Content, now types.TimestampMillis) EditMessageResult {
	m := l.messageByID(messageID)
	if m == nil {
		return EditNotFound
	}
	if m.Sender != sender {
		return EditNotAuthorized
	}
	if m.DeletedBy != nil {
		return EditNotFound
	}
	if oldKind := m.Content.Kind(); oldKind != content.Kind() {
		l.metrics.replaceContent(oldKind, content.Kind())
		l.userMetrics(sender).replaceContent(oldKind, content.Kind())
	}
	m.Content = content
	m.LastUpdated = now
	m.LastEdited = now
	l.PushEvent(MessageEdited{UpdatedBy: sender, MessageID: messageID}, now)
	return EditSuccess
}

// DeleteMessageOutcome classifies the outcome of DeleteMessage.
type DeleteMessageOutcome uint8

const (
	DeleteSuccess DeleteMessageOutcome = iota
	DeleteAlreadyDeleted
	DeleteTypeCannotBeDeleted
	DeleteNotAuthorized
	DeleteNotFound
)

// DeleteMessageResult carries the outcome plus, on success, the hydrated
// content as it was before deletion (for downstream use such as scheduling
// the delayed permanent purge).
type DeleteMessageResult struct {
	Outcome    DeleteMessageOutcome
	OldContent types.Content
}

// DeleteMessage soft-deletes a message: its metrics contribution is removed
// and its content reads as a deletion marker, but its id and index mappings
// stay addressable. Content kinds carrying completed transfers are never
// deletable.
func (l *Ledger) DeleteMessage(caller types.UserID, isPrivileged bool, messageID types.MessageID, now types.TimestampMillis) DeleteMessageResult {
	m := l.messageByID(messageID)
	if m == nil {
		return DeleteMessageResult{Outcome: DeleteNotFound}
	}
	if m.Sender != caller && !isPrivileged {
		return DeleteMessageResult{Outcome: DeleteNotAuthorized}
	}
	if m.DeletedBy != nil {
		return DeleteMessageResult{Outcome: DeleteAlreadyDeleted}
	}
	if _, ok := m.Content.(types.DeletedContent); ok {
		return DeleteMessageResult{Outcome: DeleteAlreadyDeleted}
	}
	if types.Undeletable(m.Content) {
		return DeleteMessageResult{Outcome: DeleteTypeCannotBeDeleted}
	}

	l.metrics.removeMessage(m)
	l.userMetrics(m.Sender).removeMessage(m)

	old := m.Hydrate(caller).Content
	m.LastUpdated = now
	m.DeletedBy = &types.DeletedBy{DeletedBy: caller, Timestamp: now}

	l.PushEvent(MessageDeleted{UpdatedBy: caller, MessageID: messageID}, now)
	return DeleteMessageResult{Outcome: DeleteSuccess, OldContent: old}
}

// RegisterVoteOutcome classifies the outcome of RegisterPollVote.
type RegisterVoteOutcome uint8

const (
	VoteSuccess RegisterVoteOutcome = iota
	VoteSuccessNoChange
	VotePollEnded
	VotePollNotFound
	VoteOptionIndexOutOfRange
)

// RegisterVoteResult carries the outcome plus, on (no-)change success, the
// recomputed tally scoped to the voter.
type RegisterVoteResult struct {
	Outcome RegisterVoteOutcome
	Votes   types.PollVotes
}

// RegisterPollVote applies a vote operation to the poll at the given message
// index. Option bounds and end-state checking are delegated to the poll's
// own tally logic.
func (l *Ledger) RegisterPollVote(user types.UserID, messageIndex types.MessageIndex, optionIndex uint32, op types.VoteOperation, now types.TimestampMillis) RegisterVoteResult {
	m := l.messageByIndex(messageIndex)
	if m == nil {
		return RegisterVoteResult{Outcome: VotePollNotFound}
	}
	poll, ok := m.Content.(types.PollContent)
	if !ok {
		return RegisterVoteResult{Outcome: VotePollNotFound}
	}

	outcome, existingVoteRemoved := poll.ApplyVote(user, optionIndex, op)
	switch outcome {
	case types.VoteChanged:
		m.Content = poll
		m.LastUpdated = now
		votes := poll.TallyFor(user)
		var payload EventPayload
		if op == types.RegisterVote {
			payload = PollVoteRegistered{UserID: user, MessageID: m.MessageID, ExistingVoteRemoved: existingVoteRemoved}
		} else {
			payload = PollVoteDeleted{UpdatedBy: user, MessageID: m.MessageID}
		}
		l.PushEvent(payload, now)
		return RegisterVoteResult{Outcome: VoteSuccess, Votes: votes}
	case types.VoteNoChange:
		return RegisterVoteResult{Outcome: VoteSuccessNoChange, Votes: poll.TallyFor(user)}
	case types.VotePollEnded:
		return RegisterVoteResult{Outcome: VotePollEnded}
	default:
		return RegisterVoteResult{Outcome: VoteOptionIndexOutOfRange}
	}
}

// EndPollOutcome classifies the outcome of EndPoll.
type EndPollOutcome uint8

const (
	EndPollSuccess EndPollOutcome = iota
	EndPollNotFound
	EndPollUnable
)

// EndPoll marks a poll ended. Only legal once, and only for polls with a
// scheduled end date.
func (l *Ledger) EndPoll(messageIndex types.MessageIndex, now types.TimestampMillis) EndPollOutcome {
	m := l.messageByIndex(messageIndex)
	if m == nil {
		return EndPollNotFound
	}
	poll, ok := m.Content.(types.PollContent)
	if !ok {
		return EndPollNotFound
	}
	if poll.Ended || poll.Config.EndDate == 0 {
		return EndPollUnable
	}
	poll.Ended = true
	m.Content = poll
	m.LastUpdated = now
	l.PushEvent(PollEnded{MessageIndex: messageIndex}, now)
	return EndPollSuccess
}

// EndOverduePolls ends every poll whose scheduled end date has passed and
// returns the affected message indexes.
func (l *Ledger) EndOverduePolls(now types.TimestampMillis) []types.MessageIndex {
	var overdue []types.MessageIndex
	for i := range l.events {
		mp, ok := l.events[i].Payload.(MessagePayload)
		if !ok {
			continue
		}
		if p, ok := mp.Message.Content.(types.PollContent); ok {
			if !p.Ended && p.Config.EndDate != 0 && p.Config.EndDate < now {
				overdue = append(overdue, mp.Message.MessageIndex)
			}
		}
	}
	for _, idx := range overdue {
		l.EndPoll(idx, now)
	}
	return overdue
}

// ToggleOutcome classifies the outcome of ToggleReaction.
type ToggleOutcome uint8

const (
	ReactionAddedOutcome ToggleOutcome = iota
	ReactionRemovedOutcome
	ReactionMessageNotFound
)

// ToggleReaction adds the user to the reaction's set, or removes them if
// already present (dropping the reaction entry when its set empties). Two
// consecutive toggles by the same user are a no-op pair. A structurally
// invalid reaction is a broken caller contract and panics.
func (l *Ledger) ToggleReaction(user types.UserID, messageID types.MessageID, reaction types.Reaction, now types.TimestampMillis) (ToggleOutcome, types.EventIndex) {
	if !reaction.IsValid() {
		panic(fmt.Sprintf("ledger %s: invalid reaction %q", l.chatID, reaction))
	}

	m := l.messageByID(messageID)
	if m == nil {
		return ReactionMessageNotFound, 0
	}
	m.LastUpdated = now

	added := true
	if entry := m.reaction(reaction); entry != nil {
		pos := -1
		for i, u := range entry.Users {
			if u == user {
				pos = i
				break
			}
		}
		if pos >= 0 {
			entry.Users = append(entry.Users[:pos], entry.Users[pos+1:]...)
			if len(entry.Users) == 0 {
				kept := m.Reactions[:0]
				for _, r := range m.Reactions {
					if r.Reaction != reaction {
						kept = append(kept, r)
					}
				}
				m.Reactions = kept
			}
			added = false
		} else {
			entry.Users = append(entry.Users, user)
		}
	} else {
		m.Reactions = append(m.Reactions, MessageReaction{Reaction: reaction, Users: []types.UserID{user}})
	}

	if added {
		idx := l.PushEvent(ReactionAdded{UpdatedBy: user, MessageID: messageID}, now)
		return ReactionAddedOutcome, idx
	}
	idx := l.PushEvent(ReactionRemoved{UpdatedBy: user, MessageID: messageID}, now)
	return ReactionRemovedOutcome, idx
}

// ReactionExists reports whether the user currently has the reaction on the
// message.
func (l *Ledger) ReactionExists(user types.UserID, messageID types.MessageID, reaction types.Reaction) bool {
	m := l.messageByID(messageID)
	if m == nil {
		return false
	}
	entry := m.reaction(reaction)
	if entry == nil {
		return false
	}
	for _, u := range entry.Users {
		if u == user {
			return true
		}
	}
	return false
}

// ReplyToThreadArgs are the caller-resolved inputs to AddReplyToThread,
// applied to the parent ledger after a reply landed in the thread's own
// ledger.
type ReplyToThreadArgs struct {
	ThreadMessageIndex types.MessageIndex
	Sender             types.UserID
	LatestEventIndex   types.EventIndex
	Now                types.TimestampMillis
}

// AddReplyToThread updates the thread summary on the thread's root message
// and appends a ThreadUpdated event. A missing root message is a broken
// caller contract and panics.
func (l *Ledger) AddReplyToThread(args ReplyToThreadArgs) types.ThreadSummary {
	root := l.messageByIndex(args.ThreadMessageIndex)
	if root == nil {
		panic(fmt.Sprintf("ledger %s: thread root message not found at message index %d", l.chatID, args.ThreadMessageIndex))
	}

	if root.ThreadSummary == nil {
		root.ThreadSummary = &types.ThreadSummary{}
	}
	s := root.ThreadSummary
	s.ReplyCount++
	s.LatestEventIndex = args.LatestEventIndex
	s.LatestEventTimestamp = args.Now

	seen := false
	for _, p := range s.ParticipantIDs {
		if p == args.Sender {
			seen = true
			break
		}
	}
	if !seen {
		s.ParticipantIDs = append(s.ParticipantIDs, args.Sender)
	}

	out := *s
	out.ParticipantIDs = append([]types.UserID(nil), s.ParticipantIDs...)

	l.PushEvent(ThreadUpdated{UpdatedBy: args.Sender, MessageIndex: args.ThreadMessageIndex}, args.Now)
	return out
}

// PurgeDeletedContent permanently replaces the retained content of messages
// soft-deleted before the cutoff with the deletion marker, and returns the
// affected message indexes. No event is appended: readers already see the
// marker, this only drops the retained bytes.
func (l *Ledger) PurgeDeletedContent(cutoff types.TimestampMillis) []types.MessageIndex {
	var purged []types.MessageIndex
	for i := range l.events {
		mp, ok := l.events[i].Payload.(MessagePayload)
		if !ok {
			continue
		}
		m := mp.Message
		if m.DeletedBy == nil || m.DeletedBy.Timestamp >= cutoff {
			continue
		}
		if _, already := m.Content.(types.DeletedContent); already {
			continue
		}
		m.Content = types.DeletedContent{DeletedBy: m.DeletedBy.DeletedBy, Timestamp: m.DeletedBy.Timestamp}
		purged = append(purged, m.MessageIndex)
	}
	return purged
}

// Metrics returns the ledger's aggregate counters.
func (l *Ledger) Metrics() Metrics { return l.metrics }

// UserMetrics returns one user's counters. With a non-zero ifUpdatedSince it
// returns false unless the user was active after that timestamp, which lets
// incremental-sync callers skip unchanged users.
func (l *Ledger) UserMetrics(user types.UserID, ifUpdatedSince types.TimestampMillis) (Metrics, bool) {
	m, ok := l.perUser[user]
	if !ok {
		return Metrics{}, false
	}
	if ifUpdatedSince != 0 && m.LastActive <= ifUpdatedSince {
		return Metrics{}, false
	}
	return *m, true
}

func (l *Ledger) userMetrics(user types.UserID) *Metrics {
	m, ok := l.perUser[user]
	if !ok {
		m = &Metrics{}
		l.perUser[user] = m
	}
	return m
}

// Get returns the event at the given index.
func (l *Ledger) Get(index types.EventIndex) (Event, bool) {
	if int(index) >= len(l.events) {
		return Event{}, false
	}
	return l.events[index], true
}

// EventIndexByMessageID resolves a message id through the derived index.
func (l *Ledger) EventIndexByMessageID(id types.MessageID) (types.EventIndex, bool) {
	e, ok := l.messageIDMap[id]
	return e, ok
}

// EventIndexByMessageIndex resolves a message index through the derived
// index.
func (l *Ledger) EventIndexByMessageIndex(idx types.MessageIndex) (types.EventIndex, bool) {
	e, ok := l.messageIndexMap[idx]
	return e, ok
}

// MessageByMessageIndex returns the hydrated message at the given message
// index, wrapped with its event index and timestamp.
func (l *Ledger) MessageByMessageIndex(idx types.MessageIndex, viewer types.UserID) (Event, types.Message, bool) {
	e, ok := l.messageIndexMap[idx]
	if !ok {
		return Event{}, types.Message{}, false
	}
	ev := l.events[e]
	mp, ok := ev.Payload.(MessagePayload)
	if !ok {
		return Event{}, types.Message{}, false
	}
	return ev, mp.Message.Hydrate(viewer), true
}

// LatestMessage returns the hydrated latest message, if any message exists.
func (l *Ledger) LatestMessage(viewer types.UserID) (Event, types.Message, bool) {
	if !l.hasMessages {
		return Event{}, types.Message{}, false
	}
	ev := l.events[l.latestMessageEventIndex]
	mp := ev.Payload.(MessagePayload)
	return ev, mp.Message.Hydrate(viewer), true
}

func (l *Ledger) messageByID(id types.MessageID) *MessageInternal {
	e, ok := l.messageIDMap[id]
	if !ok {
		return nil
	}
	if mp, ok := l.events[e].Payload.(MessagePayload); ok {
		return mp.Message
	}
	return nil
}

func (l *Ledger) messageByIndex(idx types.MessageIndex) *MessageInternal {
	e, ok := l.messageIndexMap[idx]
	if !ok {
		return nil
	}
	if mp, ok := l.events[e].Payload.(MessagePayload); ok {
		return mp.Message
	}
	return nil
}
