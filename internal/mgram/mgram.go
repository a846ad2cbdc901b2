package mgram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ostafen/lmtrie/internal/wordindex"
)

// MaxLevel is the longest m-gram any model can declare.
const MaxLevel = 8

// MinModelLevel is the shortest max level a model can declare.
const MinModelLevel = 2

var ErrInvalidLevel = errors.New("mgram: invalid level")

// CheckLevel validates a model max level.
func CheckLevel(level int) error {
	if level < MinModelLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d is not within [%d, %d]", ErrInvalidLevel, level, MinModelLevel, MaxLevel)
	}
	return nil
}

// Payload is the data stored for an m-gram of level 1..N-1.
// Both values are log10 weights.
type Payload struct {
	Prob float32
	Back float32
}

func (p Payload) String() string {
	return fmt.Sprintf("{prob: %g, back: %g}", p.Prob, p.Back)
}

// ModelGram is an m-gram read from the model file.
type ModelGram struct {
	Tokens  []string
	IDs     []wordindex.WordID
	Payload Payload
}

func (g *ModelGram) Level() int { return len(g.Tokens) }

// EndWordID returns the id of the last word of the gram.
func (g *ModelGram) EndWordID() wordindex.WordID {
	return g.IDs[len(g.IDs)-1]
}

// ResolveIDs fills IDs from the tokens. Unigrams are registered when the
// index requires it.
func (g *ModelGram) ResolveIDs(idx wordindex.Index) {
	g.IDs = g.IDs[:0]

	register := g.Level() == 1 && idx.NeedsRegistering()
	for _, token := range g.Tokens {
		var id wordindex.WordID
		if register {
			id = idx.Register(token)
		} else {
			id = idx.WordID(token)
		}
		g.IDs = append(g.IDs, id)
	}
}

// HasUnknownWords reports whether any word of the gram is unknown.
func (g *ModelGram) HasUnknownWords() bool {
	for _, id := range g.IDs {
		if id <= wordindex.UnknownWordID {
			return true
		}
	}
	return false
}

func (g *ModelGram) Hash() uint64 {
	return WordsHash(g.IDs)
}

func (g *ModelGram) String() string {
	return strings.Join(g.Tokens, " ")
}
