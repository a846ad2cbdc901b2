package wordindex

import (
	"hash/fnv"
	"math"
)

// Hashing derives word ids from the token hash. It needs no registration,
// so every token is considered known and ids are not continuous.
type Hashing struct{}

func NewHashing() Hashing { return Hashing{} }

func (Hashing) WordID(token string) WordID {
	if token == UnknownWord {
		return UnknownWordID
	}

	h := fnv.New64a()
	h.Write([]byte(token))
	return WordID(h.Sum64()) | MinKnownWordID
}

func (Hashing) NeedsRegistering() bool { return false }

func (idx Hashing) Register(token string) WordID { return idx.WordID(token) }

func (Hashing) NumberOfWords(count int) int { return count }

func (Hashing) IsContinuous() bool { return false }

func (Hashing) MaxWordID() WordID { return math.MaxUint64 }
