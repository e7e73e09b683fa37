package types

import "github.com/google/uuid"

// UserID is an opaque identity id; meaning is managed by the caller.
type UserID string

// ChatID identifies one chat (direct conversation, group or community channel).
type ChatID string

// MessageID is a caller-supplied 128-bit idempotency key. It must be unique
// for the lifetime of the ledger it is pushed into; collisions are treated as
// a broken caller contract, not a recoverable condition.
type MessageID = uuid.UUID

// EventIndex is the zero-based, gapless, strictly increasing position of a
// record in one ledger's event sequence.
type EventIndex uint32

// MessageIndex is a second zero-based gapless counter, advanced only when a
// message event is appended. Non-message events do not consume one.
type MessageIndex uint32

// TimestampMillis is a millisecond timestamp from the caller's trusted clock.
type TimestampMillis uint64

// Incr returns the next event index.
func (e EventIndex) Incr() EventIndex { return e + 1 }

// Incr returns the next message index.
func (m MessageIndex) Incr() MessageIndex { return m + 1 }
