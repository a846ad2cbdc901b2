package mgram

import (
	"fmt"
	"strings"

	"github.com/ostafen/lmtrie/internal/wordindex"
)

// unkWordMasks[i] flags an unknown word at position i of a query.
var unkWordMasks = [MaxLevel]uint8{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}

// Query is an m-gram to be scored. It caches the sub-gram hashes and the
// context ids resolved by the backends, so it must not be shared between
// goroutines.
type Query struct {
	Tokens []string

	ids      [MaxLevel]wordindex.WordID
	unkFlags uint8
	hashes   [MaxLevel][MaxLevel]uint64

	ctxIDs   [MaxLevel][MaxLevel]uint64
	ctxValid [MaxLevel]uint8

	payloads     [MaxLevel][MaxLevel]Payload
	payloadProbe [MaxLevel]uint8
	payloadFound [MaxLevel]uint8
}

// Set loads tokens into the query and resolves their ids.
func (q *Query) Set(tokens []string, idx wordindex.Index) error {
	if len(tokens) == 0 || len(tokens) > MaxLevel {
		return fmt.Errorf("%w: query of %d words", ErrInvalidLevel, len(tokens))
	}

	q.Tokens = tokens
	q.unkFlags = 0
	q.ctxValid = [MaxLevel]uint8{}
	q.payloadProbe = [MaxLevel]uint8{}
	q.payloadFound = [MaxLevel]uint8{}

	for i, token := range tokens {
		id := idx.WordID(token)
		q.ids[i] = id
		if id <= wordindex.UnknownWordID {
			q.unkFlags |= unkWordMasks[i]
		}
	}

	for e := range tokens {
		q.hashes[e][e] = mix64(uint64(q.ids[e]))
		for b := e - 1; b >= 0; b-- {
			q.hashes[b][e] = CombineHash(q.hashes[b+1][e], q.ids[b])
		}
	}
	return nil
}

func (q *Query) Len() int { return len(q.Tokens) }

func (q *Query) WordID(i int) wordindex.WordID { return q.ids[i] }

// WordIDs returns the ids of the sub-gram [begin, end].
func (q *Query) WordIDs(begin, end int) []wordindex.WordID {
	return q.ids[begin : end+1]
}

// IsUnknown reports whether the word at position i is unknown.
func (q *Query) IsUnknown(i int) bool {
	return q.unkFlags&unkWordMasks[i] != 0
}

// HasUnknown reports whether the sub-gram [begin, end] has unknown words.
func (q *Query) HasUnknown(begin, end int) bool {
	mask := uint8(0xFF>>begin) & uint8(0xFF<<(MaxLevel-1-end))
	return q.unkFlags&mask != 0
}

// Hash returns the hash of the sub-gram [begin, end]. It equals the
// ModelGram hash of the same words.
func (q *Query) Hash(begin, end int) uint64 {
	return q.hashes[begin][end]
}

// ContextID returns the context id of [begin, end] cached by a previous
// SetContextID call.
func (q *Query) ContextID(begin, end int) (uint64, bool) {
	if q.ctxValid[begin]&unkWordMasks[end] == 0 {
		return 0, false
	}
	return q.ctxIDs[begin][end], true
}

func (q *Query) SetContextID(begin, end int, ctx uint64) {
	q.ctxIDs[begin][end] = ctx
	q.ctxValid[begin] |= unkWordMasks[end]
}

// Payload returns the outcome of a previous lookup of [begin, end]
// recorded with SetPayload. probed is false if there was none.
func (q *Query) Payload(begin, end int) (p Payload, found, probed bool) {
	mask := unkWordMasks[end]
	if q.payloadProbe[begin]&mask == 0 {
		return Payload{}, false, false
	}
	return q.payloads[begin][end], q.payloadFound[begin]&mask != 0, true
}

func (q *Query) SetPayload(begin, end int, p Payload, found bool) {
	mask := unkWordMasks[end]
	q.payloads[begin][end] = p
	q.payloadProbe[begin] |= mask
	if found {
		q.payloadFound[begin] |= mask
	} else {
		q.payloadFound[begin] &^= mask
	}
}

// Describe renders the conditional probability of the word at end given
// the words from begin.
func (q *Query) Describe(begin, end int) string {
	var sb strings.Builder
	sb.WriteString("Prob( ")
	sb.WriteString(q.Tokens[end])
	if end > begin {
		sb.WriteString(" | ")
		sb.WriteString(strings.Join(q.Tokens[begin:end], " "))
	}
	sb.WriteString(" )")
	return sb.String()
}
