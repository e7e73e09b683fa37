package types

import "encoding/json"

// ReplyContext points at the message being replied to. ChatID is set only
// when the reply crosses into another chat.
type ReplyContext struct {
	EventIndex EventIndex `json:"event_index"`
	ChatID     ChatID     `json:"chat_id,omitempty"`
}

// DeletedBy records who deleted a message and when.
type DeletedBy struct {
	DeletedBy UserID          `json:"deleted_by"`
	Timestamp TimestampMillis `json:"timestamp"`
}

// ThreadSummary lives on a thread's root message in the parent ledger and is
// updated in place whenever a reply lands in the thread's own ledger.
type ThreadSummary struct {
	ReplyCount           uint32          `json:"reply_count"`
	ParticipantIDs       []UserID        `json:"participant_ids"`
	LatestEventIndex     EventIndex      `json:"latest_event_index"`
	LatestEventTimestamp TimestampMillis `json:"latest_event_timestamp"`
}

// ReactionSummary is one reaction with the flattened list of users who
// applied it.
type ReactionSummary struct {
	Reaction Reaction `json:"reaction"`
	Users    []UserID `json:"users"`
}

// Message is the hydrated, externally visible projection of a message:
// deletion markers substituted for content, reaction sets flattened, poll
// tallies scoped to the viewer.
type Message struct {
	MessageIndex  MessageIndex      `json:"message_index"`
	MessageID     MessageID         `json:"message_id"`
	Sender        UserID            `json:"sender"`
	Content       Content           `json:"-"`
	ReplyTarget   *ReplyContext     `json:"reply_target,omitempty"`
	Reactions     []ReactionSummary `json:"reactions,omitempty"`
	Edited        bool              `json:"edited,omitempty"`
	Forwarded     bool              `json:"forwarded,omitempty"`
	ThreadSummary *ThreadSummary    `json:"thread_summary,omitempty"`
}

type messageJSON struct {
	MessageIndex  MessageIndex      `json:"message_index"`
	MessageID     MessageID         `json:"message_id"`
	Sender        UserID            `json:"sender"`
	Content       json.RawMessage   `json:"content"`
	ReplyTarget   *ReplyContext     `json:"reply_target,omitempty"`
	Reactions     []ReactionSummary `json:"reactions,omitempty"`
	Edited        bool              `json:"edited,omitempty"`
	Forwarded     bool              `json:"forwarded,omitempty"`
	ThreadSummary *ThreadSummary    `json:"thread_summary,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	content, err := MarshalContent(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		MessageIndex:  m.MessageIndex,
		MessageID:     m.MessageID,
		Sender:        m.Sender,
		Content:       content,
		ReplyTarget:   m.ReplyTarget,
		Reactions:     m.Reactions,
		Edited:        m.Edited,
		Forwarded:     m.Forwarded,
		ThreadSummary: m.ThreadSummary,
	})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := UnmarshalContent(raw.Content)
	if err != nil {
		return err
	}
	*m = Message{
		MessageIndex:  raw.MessageIndex,
		MessageID:     raw.MessageID,
		Sender:        raw.Sender,
		Content:       content,
		ReplyTarget:   raw.ReplyTarget,
		Reactions:     raw.Reactions,
		Edited:        raw.Edited,
		Forwarded:     raw.Forwarded,
		ThreadSummary: raw.ThreadSummary,
	}
	return nil
}
