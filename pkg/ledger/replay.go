package ledger

import (
	"fmt"

	"chatledger/pkg/types"
)

// Replay reconstructs a ledger from its persisted event sequence. The lookup
// maps and metrics are derived state: they are rebuilt here exactly as the
// live mutation path builds them, so a corrupted cache is always recoverable
// from the sequence alone. A sequence that violates the ordering or
// uniqueness invariants is corrupt and returns an error.
func Replay(scope Scope, chatID types.ChatID, events []Event) (*Ledger, error) {
	l := newLedger(scope, chatID)
	for i, ev := range events {
		if ev.Index != types.EventIndex(i) {
			return nil, fmt.Errorf("ledger %s: event at position %d has index %d", chatID, i, ev.Index)
		}
		if !validForScope(ev.Payload.EventKind(), scope) {
			return nil, fmt.Errorf("ledger %s: payload kind %q is not valid for %s scope", chatID, ev.Payload.EventKind(), scope)
		}

		if mp, ok := ev.Payload.(MessagePayload); ok {
			m := mp.Message
			if _, used := l.messageIDMap[m.MessageID]; used {
				return nil, fmt.Errorf("ledger %s: duplicate message id %s", chatID, m.MessageID)
			}
			if l.hasMessages && m.MessageIndex != l.latestMessageIndex.Incr() {
				return nil, fmt.Errorf("ledger %s: message index %d out of order", chatID, m.MessageIndex)
			}
			if !l.hasMessages && m.MessageIndex != 0 {
				return nil, fmt.Errorf("ledger %s: first message index is %d, want 0", chatID, m.MessageIndex)
			}
			l.messageIDMap[m.MessageID] = ev.Index
			l.messageIndexMap[m.MessageIndex] = ev.Index
			l.latestMessageIndex = m.MessageIndex
			l.latestMessageEventIndex = ev.Index
			l.hasMessages = true
		}

		l.metrics.addEvent(ev.Payload, ev.Timestamp)
		if user, ok := actor(ev.Payload); ok {
			l.userMetrics(user).addEvent(ev.Payload, ev.Timestamp)
		}
		l.events = append(l.events, ev)
	}
	return l, nil
}
