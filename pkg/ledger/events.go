package ledger

import "chatledger/pkg/types"

// EventKind discriminates the closed set of event payload variants.
type EventKind string

const (
	KindMessage            EventKind = "message"
	KindMessageEdited      EventKind = "message_edited"
	KindMessageDeleted     EventKind = "message_deleted"
	KindReactionAdded      EventKind = "reaction_added"
	KindReactionRemoved    EventKind = "reaction_removed"
	KindPollVoteRegistered EventKind = "poll_vote_registered"
	KindPollVoteDeleted    EventKind = "poll_vote_deleted"
	KindPollEnded          EventKind = "poll_ended"
	KindThreadUpdated      EventKind = "thread_updated"
	KindDirectChatCreated  EventKind = "direct_chat_created"
	KindGroupChatCreated   EventKind = "group_chat_created"
	KindNameChanged        EventKind = "name_changed"
	KindDescriptionChanged EventKind = "description_changed"
	KindParticipantsAdded  EventKind = "participants_added"
	KindParticipantsLeft   EventKind = "participants_left"
)

// EventPayload is one entry's payload in a ledger's event sequence. The set
// of implementations is closed.
type EventPayload interface {
	EventKind() EventKind
}

// Event is one record of the append-only sequence.
type Event struct {
	Index     types.EventIndex
	Timestamp types.TimestampMillis
	Payload   EventPayload
}

// MessagePayload carries the message state itself. The pointer is shared with
// the ledger's indices; mutating operations update it in place.
type MessagePayload struct {
	Message *MessageInternal `json:"message"`
}

// MessageEdited records that a message was edited. It carries only the
// pointer back to the message, not the diff.
type MessageEdited struct {
	UpdatedBy types.UserID    `json:"updated_by"`
	MessageID types.MessageID `json:"message_id"`
}

type MessageDeleted struct {
	UpdatedBy types.UserID    `json:"updated_by"`
	MessageID types.MessageID `json:"message_id"`
}

type ReactionAdded struct {
	UpdatedBy types.UserID    `json:"updated_by"`
	MessageID types.MessageID `json:"message_id"`
}

type ReactionRemoved struct {
	UpdatedBy types.UserID    `json:"updated_by"`
	MessageID types.MessageID `json:"message_id"`
}

type PollVoteRegistered struct {
	UserID              types.UserID    `json:"user_id"`
	MessageID           types.MessageID `json:"message_id"`
	ExistingVoteRemoved bool            `json:"existing_vote_removed,omitempty"`
}

type PollVoteDeleted struct {
	UpdatedBy types.UserID    `json:"updated_by"`
	MessageID types.MessageID `json:"message_id"`
}

type PollEnded struct {
	MessageIndex types.MessageIndex `json:"message_index"`
}

type ThreadUpdated struct {
	UpdatedBy    types.UserID       `json:"updated_by"`
	MessageIndex types.MessageIndex `json:"message_index"`
}

// Administrative events occupy index slots and participate in ordering but
// are otherwise opaque to the ledger's own logic.

type DirectChatCreated struct{}

type GroupChatCreated struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	CreatedBy   types.UserID `json:"created_by"`
}

type NameChanged struct {
	NewName   string       `json:"new_name"`
	ChangedBy types.UserID `json:"changed_by"`
}

type DescriptionChanged struct {
	NewDescription string       `json:"new_description"`
	ChangedBy      types.UserID `json:"changed_by"`
}

type ParticipantsAdded struct {
	UserIDs []types.UserID `json:"user_ids"`
	AddedBy types.UserID   `json:"added_by"`
}

type ParticipantsLeft struct {
	UserIDs []types.UserID `json:"user_ids"`
}

func (MessagePayload) EventKind() EventKind     { return KindMessage }
func (MessageEdited) EventKind() EventKind      { return KindMessageEdited }
func (MessageDeleted) EventKind() EventKind     { return KindMessageDeleted }
func (ReactionAdded) EventKind() EventKind      { return KindReactionAdded }
func (ReactionRemoved) EventKind() EventKind    { return KindReactionRemoved }
func (PollVoteRegistered) EventKind() EventKind { return KindPollVoteRegistered }
func (PollVoteDeleted) EventKind() EventKind    { return KindPollVoteDeleted }
func (PollEnded) EventKind() EventKind          { return KindPollEnded }
func (ThreadUpdated) EventKind() EventKind      { return KindThreadUpdated }
func (DirectChatCreated) EventKind() EventKind  { return KindDirectChatCreated }
func (GroupChatCreated) EventKind() EventKind   { return KindGroupChatCreated }
func (NameChanged) EventKind() EventKind        { return KindNameChanged }
func (DescriptionChanged) EventKind() EventKind { return KindDescriptionChanged }
func (ParticipantsAdded) EventKind() EventKind  { return KindParticipantsAdded }
func (ParticipantsLeft) EventKind() EventKind   { return KindParticipantsLeft }

// validForScope reports whether a payload kind may be appended to a ledger of
// the given scope. Thread-reply notifications only exist in parent ledgers,
// and chat-creation or membership events never appear inside a thread.
func validForScope(kind EventKind, scope Scope) bool {
	switch kind {
	case KindMessage, KindMessageEdited, KindMessageDeleted,
		KindReactionAdded, KindReactionRemoved,
		KindPollVoteRegistered, KindPollVoteDeleted, KindPollEnded:
		return true
	case KindDirectChatCreated:
		return scope == ScopeDirect
	case KindThreadUpdated:
		return scope != ScopeThread
	case KindGroupChatCreated, KindNameChanged, KindDescriptionChanged,
		KindParticipantsAdded, KindParticipantsLeft:
		return scope == ScopeGroup
	default:
		return false
	}
}

// actor returns the user a payload should be attributed to in the per-user
// metrics, if any.
func actor(p EventPayload) (types.UserID, bool) {
	switch v := p.(type) {
	case MessagePayload:
		return v.Message.Sender, true
	case MessageEdited:
		return v.UpdatedBy, true
	case MessageDeleted:
		return v.UpdatedBy, true
	case ReactionAdded:
		return v.UpdatedBy, true
	case ReactionRemoved:
		return v.UpdatedBy, true
	case PollVoteRegistered:
		return v.UserID, true
	case PollVoteDeleted:
		return v.UpdatedBy, true
	case ThreadUpdated:
		return v.UpdatedBy, true
	case GroupChatCreated:
		return v.CreatedBy, true
	case NameChanged:
		return v.ChangedBy, true
	case DescriptionChanged:
		return v.ChangedBy, true
	case ParticipantsAdded:
		return v.AddedBy, true
	default:
		return "", false
	}
}
