package ledger

import (
	"sort"

	"chatledger/pkg/search"
	"chatledger/pkg/types"
)

// The read-only views over the event sequence. Every query takes the
// caller's visibility horizon (minVisible) and clamps each range before it
// is evaluated: no event below the horizon is ever materialized, whatever
// the other parameters say.

// rangeSafe returns the events in [start, end] clamped to the visibility
// floor and the sequence bounds. Bounds are int (not EventIndex) so callers
// can pass exclusive ends without underflow gymnastics.
func (l *Ledger) rangeSafe(start, end int, minVisible types.EventIndex) []Event {
	if start < int(minVisible) {
		start = int(minVisible)
	}
	if end >= len(l.events) {
		end = len(l.events) - 1
	}
	if start > end {
		return nil
	}
	return l.events[start : end+1]
}

// Since returns the contiguous slice from the given index to the end.
func (l *Ledger) Since(from types.EventIndex, minVisible types.EventIndex) []Event {
	return l.rangeSafe(int(from), len(l.events)-1, minVisible)
}

// Range returns the inclusive contiguous slice [from, to], clamped on both
// ends.
func (l *Ledger) Range(from, to types.EventIndex, minVisible types.EventIndex) []Event {
	return l.rangeSafe(int(from), int(to), minVisible)
}

// GetByIndex returns the events at the given indexes, skipping any that are
// out of bounds or below the visibility floor.
func (l *Ledger) GetByIndex(indexes []types.EventIndex, minVisible types.EventIndex) []Event {
	var out []Event
	for _, i := range indexes {
		if i < minVisible || int(i) >= len(l.events) {
			continue
		}
		out = append(out, l.events[i])
	}
	return out
}

// FromIndex returns up to maxEvents contiguous events walking forward or
// backward from start. A backward walk whose start exceeds the last valid
// index is clamped to it first, so "give me the latest N" never errors.
// Results are always in ascending index order.
func (l *Ledger) FromIndex(start types.EventIndex, ascending bool, maxEvents int, minVisible types.EventIndex) []Event {
	if maxEvents <= 0 || len(l.events) == 0 {
		return nil
	}

	var window []Event
	if ascending {
		window = l.rangeSafe(int(start), len(l.events)-1, minVisible)
		if len(window) > maxEvents {
			window = window[:maxEvents]
		}
	} else {
		window = l.rangeSafe(int(minVisible), int(start), minVisible)
		if len(window) > maxEvents {
			window = window[len(window)-maxEvents:]
		}
	}

	out := make([]Event, len(window))
	copy(out, window)
	return out
}

// Window returns up to maxEvents events straddling midPoint, expanding one
// step forward then one step backward until the budget is spent or both
// sides are exhausted. The tie-break is forward-biased, and midPoint itself
// is included unless it is below the visibility floor.
func (l *Ledger) Window(midPoint types.EventIndex, maxEvents int, minVisible types.EventIndex) []Event {
	if maxEvents <= 0 {
		return nil
	}

	forward := l.rangeSafe(int(midPoint), len(l.events)-1, minVisible)
	backward := l.rangeSafe(int(minVisible), int(midPoint)-1, minVisible)

	fi, bi := 0, len(backward)-1
	maxReached, minReached := false, false
	iterForwards := true

	// Collected as two growing halves; the backward half is walked
	// tail-first so the final result is a simple concat.
	var front, back []Event

	for {
		if len(front)+len(back) == maxEvents || (minReached && maxReached) {
			break
		}
		if iterForwards {
			if fi < len(forward) {
				back = append(back, forward[fi])
				fi++
			} else {
				maxReached = true
			}
			if !minReached {
				iterForwards = false
			}
		} else {
			if bi >= 0 {
				front = append(front, backward[bi])
				bi--
			} else {
				minReached = true
			}
			if !maxReached {
				iterForwards = true
			}
		}
	}

	out := make([]Event, 0, len(front)+len(back))
	for i := len(front) - 1; i >= 0; i-- {
		out = append(out, front[i])
	}
	out = append(out, back...)
	return out
}

// AffectedSince walks the sequence backward while timestamps exceed the
// bound, collecting the distinct event indexes of messages touched by
// edit/delete/reaction/vote/poll-end events. Incremental-sync callers use it
// to learn which previously seen messages need re-fetching. The result is
// sorted ascending for determinism.
func (l *Ledger) AffectedSince(since types.TimestampMillis, maxResults int) []types.EventIndex {
	seen := make(map[types.EventIndex]struct{})
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Timestamp <= since {
			break
		}
		index, ok := l.affectedEventIndex(l.events[i].Payload)
		if !ok {
			continue
		}
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}
		if len(seen) == maxResults {
			break
		}
	}

	out := make([]types.EventIndex, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// affectedEventIndex maps a mutation event to the event index of the message
// it touched.
func (l *Ledger) affectedEventIndex(p EventPayload) (types.EventIndex, bool) {
	switch v := p.(type) {
	case MessageEdited:
		e, ok := l.messageIDMap[v.MessageID]
		return e, ok
	case MessageDeleted:
		e, ok := l.messageIDMap[v.MessageID]
		return e, ok
	case ReactionAdded:
		e, ok := l.messageIDMap[v.MessageID]
		return e, ok
	case ReactionRemoved:
		e, ok := l.messageIDMap[v.MessageID]
		return e, ok
	case PollVoteRegistered:
		e, ok := l.messageIDMap[v.MessageID]
		return e, ok
	case PollVoteDeleted:
		e, ok := l.messageIDMap[v.MessageID]
		return e, ok
	case PollEnded:
		e, ok := l.messageIndexMap[v.MessageIndex]
		return e, ok
	default:
		return 0, false
	}
}

// MessageMatch is one search hit.
type MessageMatch struct {
	ChatID       types.ChatID       `json:"chat_id"`
	MessageIndex types.MessageIndex `json:"message_index"`
	Sender       types.UserID       `json:"sender"`
	Content      types.Content      `json:"-"`
	Score        uint32             `json:"score"`
}

// SearchMessages scores every message at or above the visibility floor
// against the query, discards zero scores, and returns the top maxResults
// by descending score.
func (l *Ledger) SearchMessages(now types.TimestampMillis, minVisible types.EventIndex, query search.Query, maxResults int, viewer types.UserID) []MessageMatch {
	type scored struct {
		score uint32
		m     *MessageInternal
	}
	var hits []scored
	for _, ev := range l.Since(minVisible, minVisible) {
		mp, ok := ev.Payload.(MessagePayload)
		if !ok {
			continue
		}
		if mp.Message.DeletedBy != nil {
			continue
		}
		var doc search.Document
		doc.AddField(mp.Message.Content.SearchableText(), 1)
		doc.SetAge(uint64(now - ev.Timestamp))
		if s := doc.Score(query); s > 0 {
			hits = append(hits, scored{score: s, m: mp.Message})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	out := make([]MessageMatch, 0, len(hits))
	for _, h := range hits {
		out = append(out, MessageMatch{
			ChatID:       l.chatID,
			MessageIndex: h.m.MessageIndex,
			Sender:       h.m.Sender,
			Content:      h.m.Hydrate(viewer).Content,
			Score:        h.score,
		})
	}
	return out
}
