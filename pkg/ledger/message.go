package ledger

import (
	"encoding/json"

	"chatledger/pkg/types"
)

// MessageReaction is one reaction and the set of users who applied it,
// stored as an ordered slice so serialization stays deterministic.
type MessageReaction struct {
	Reaction types.Reaction `json:"reaction"`
	Users    []types.UserID `json:"users"`
}

// MessageInternal is the ledger's stored message state. Queries never return
// it directly; they return the hydrated projection.
type MessageInternal struct {
	MessageIndex  types.MessageIndex
	MessageID     types.MessageID
	Sender        types.UserID
	Content       types.Content
	ReplyTarget   *types.ReplyContext
	Reactions     []MessageReaction
	LastUpdated   types.TimestampMillis // 0 = never
	LastEdited    types.TimestampMillis // 0 = never
	DeletedBy     *types.DeletedBy
	ThreadSummary *types.ThreadSummary
	Forwarded     bool
}

// Hydrate projects the stored state into the externally visible shape for
// one viewer: deletion marker substituted, reactions flattened, poll tally
// scoped to the viewer.
func (m *MessageInternal) Hydrate(viewer types.UserID) types.Message {
	content := m.Content
	if m.DeletedBy != nil {
		content = types.DeletedContent{DeletedBy: m.DeletedBy.DeletedBy, Timestamp: m.DeletedBy.Timestamp}
	} else if p, ok := content.(types.PollContent); ok {
		content = p.Hydrate(viewer)
	}

	var reactions []types.ReactionSummary
	for _, r := range m.Reactions {
		reactions = append(reactions, types.ReactionSummary{
			Reaction: r.Reaction,
			Users:    append([]types.UserID(nil), r.Users...),
		})
	}

	var summary *types.ThreadSummary
	if m.ThreadSummary != nil {
		s := *m.ThreadSummary
		s.ParticipantIDs = append([]types.UserID(nil), m.ThreadSummary.ParticipantIDs...)
		summary = &s
	}

	return types.Message{
		MessageIndex:  m.MessageIndex,
		MessageID:     m.MessageID,
		Sender:        m.Sender,
		Content:       content,
		ReplyTarget:   m.ReplyTarget,
		Reactions:     reactions,
		Edited:        m.LastEdited != 0,
		Forwarded:     m.Forwarded,
		ThreadSummary: summary,
	}
}

// reaction returns the entry for the given reaction, if present.
func (m *MessageInternal) reaction(r types.Reaction) *MessageReaction {
	for i := range m.Reactions {
		if m.Reactions[i].Reaction == r {
			return &m.Reactions[i]
		}
	}
	return nil
}

type messageInternalJSON struct {
	MessageIndex  types.MessageIndex    `json:"message_index"`
	MessageID     types.MessageID       `json:"message_id"`
	Sender        types.UserID          `json:"sender"`
	Content       json.RawMessage       `json:"content"`
	ReplyTarget   *types.ReplyContext   `json:"reply_target,omitempty"`
	Reactions     []MessageReaction     `json:"reactions,omitempty"`
	LastUpdated   types.TimestampMillis `json:"last_updated,omitempty"`
	LastEdited    types.TimestampMillis `json:"last_edited,omitempty"`
	DeletedBy     *types.DeletedBy      `json:"deleted_by,omitempty"`
	ThreadSummary *types.ThreadSummary  `json:"thread_summary,omitempty"`
	Forwarded     bool                  `json:"forwarded,omitempty"`
}

func (m MessageInternal) MarshalJSON() ([]byte, error) {
	content, err := types.MarshalContent(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageInternalJSON{
		MessageIndex:  m.MessageIndex,
		MessageID:     m.MessageID,
		Sender:        m.Sender,
		Content:       content,
		ReplyTarget:   m.ReplyTarget,
		Reactions:     m.Reactions,
		LastUpdated:   m.LastUpdated,
		LastEdited:    m.LastEdited,
		DeletedBy:     m.DeletedBy,
		ThreadSummary: m.ThreadSummary,
		Forwarded:     m.Forwarded,
	})
}

func (m *MessageInternal) UnmarshalJSON(data []byte) error {
	var raw messageInternalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := types.UnmarshalContent(raw.Content)
	if err != nil {
		return err
	}
	*m = MessageInternal{
		MessageIndex:  raw.MessageIndex,
		MessageID:     raw.MessageID,
		Sender:        raw.Sender,
		Content:       content,
		ReplyTarget:   raw.ReplyTarget,
		Reactions:     raw.Reactions,
		LastUpdated:   raw.LastUpdated,
		LastEdited:    raw.LastEdited,
		DeletedBy:     raw.DeletedBy,
		ThreadSummary: raw.ThreadSummary,
		Forwarded:     raw.Forwarded,
	}
	return nil
}
