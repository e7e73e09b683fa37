// Package search scores message text against a free-form query, combining
// word-level relevance with a recency decay so fresher matches rank higher.
package search

import "strings"

const (
	wordMatchScore   = 10
	prefixMatchScore = 3

	// Matches older than this contribute at the floor multiplier.
	maxAgeMillis  = uint64(90 * 24 * 60 * 60 * 1000)
	floorPermille = 100
)

// Query is a tokenized, lowercased search input.
type Query struct {
	Tokens []string
}

// NewQuery tokenizes raw user input. Empty tokens are dropped.
func NewQuery(raw string) Query {
	var q Query
	for _, t := range strings.Fields(strings.ToLower(raw)) {
		q.Tokens = append(q.Tokens, t)
	}
	return q
}

// Field is one searchable text value with a relative weight.
type Field struct {
	Value  string
	Weight float64
}

// Document is the searchable view of one message.
type Document struct {
	fields []Field
	age    uint64
}

// AddField appends a weighted text field. A zero weight is treated as 1.
func (d *Document) AddField(value string, weight float64) *Document {
	if weight == 0 {
		weight = 1
	}
	d.fields = append(d.fields, Field{Value: value, Weight: weight})
	return d
}

// SetAge records how old the document is, in milliseconds. Age only scales a
// non-zero relevance score; it never produces a match by itself.
func (d *Document) SetAge(age uint64) *Document {
	d.age = age
	return d
}

// Score computes the document's relevance to the query. Zero means no match.
func (d *Document) Score(q Query) uint32 {
	if len(q.Tokens) == 0 {
		return 0
	}
	var total float64
	for _, f := range d.fields {
		words := strings.Fields(strings.ToLower(f.Value))
		for _, token := range q.Tokens {
			best := 0
			for _, w := range words {
				switch {
				case w == token:
					best = wordMatchScore
				case best < prefixMatchScore && strings.HasPrefix(w, token):
					best = prefixMatchScore
				}
				if best == wordMatchScore {
					break
				}
			}
			total += float64(best) * f.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return uint32(total * float64(recencyPermille(d.age)))
}

// recencyPermille decays linearly from 1000 (now) to the floor at maxAge.
func recencyPermille(age uint64) uint64 {
	if age >= maxAgeMillis {
		return floorPermille
	}
	decayed := 1000 - (age*(1000-floorPermille))/maxAgeMillis
	return decayed
}
