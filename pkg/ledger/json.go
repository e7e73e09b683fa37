package ledger

import (
	"encoding/json"
	"fmt"

	"chatledger/pkg/types"
)

// eventJSON is the journal form of an event: index, timestamp, payload kind
// discriminator, payload body.
type eventJSON struct {
	Index     types.EventIndex      `json:"index"`
	Timestamp types.TimestampMillis `json:"timestamp"`
	Kind      EventKind             `json:"kind"`
	Payload   json.RawMessage       `json:"payload"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventJSON{
		Index:     e.Index,
		Timestamp: e.Timestamp,
		Kind:      e.Payload.EventKind(),
		Payload:   payload,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := unmarshalPayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}
	*e = Event{Index: raw.Index, Timestamp: raw.Timestamp, Payload: payload}
	return nil
}

func unmarshalPayload(kind EventKind, data []byte) (EventPayload, error) {
	switch kind {
	case KindMessage:
		var p MessagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.Message == nil {
			return nil, fmt.Errorf("message event without message body")
		}
		return p, nil
	case KindMessageEdited:
		var p MessageEdited
		err := json.Unmarshal(data, &p)
		return p, err
	case KindMessageDeleted:
		var p MessageDeleted
		err := json.Unmarshal(data, &p)
		return p, err
	case KindReactionAdded:
		var p ReactionAdded
		err := json.Unmarshal(data, &p)
		return p, err
	case KindReactionRemoved:
		var p ReactionRemoved
		err := json.Unmarshal(data, &p)
		return p, err
	case KindPollVoteRegistered:
		var p PollVoteRegistered
		err := json.Unmarshal(data, &p)
		return p, err
	case KindPollVoteDeleted:
		var p PollVoteDeleted
		err := json.Unmarshal(data, &p)
		return p, err
	case KindPollEnded:
		var p PollEnded
		err := json.Unmarshal(data, &p)
		return p, err
	case KindThreadUpdated:
		var p ThreadUpdated
		err := json.Unmarshal(data, &p)
		return p, err
	case KindDirectChatCreated:
		return DirectChatCreated{}, nil
	case KindGroupChatCreated:
		var p GroupChatCreated
		err := json.Unmarshal(data, &p)
		return p, err
	case KindNameChanged:
		var p NameChanged
		err := json.Unmarshal(data, &p)
		return p, err
	case KindDescriptionChanged:
		var p DescriptionChanged
		err := json.Unmarshal(data, &p)
		return p, err
	case KindParticipantsAdded:
		var p ParticipantsAdded
		err := json.Unmarshal(data, &p)
		return p, err
	case KindParticipantsLeft:
		var p ParticipantsLeft
		err := json.Unmarshal(data, &p)
		return p, err
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}
