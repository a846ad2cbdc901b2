package trie

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/wordindex"
)

// unigrams stores level one payloads. Continuous indexes use a flat array
// indexed by word id, with a bitset tracking which slots were written.
// Other indexes fall back to a map.
type unigrams struct {
	logger *slog.Logger

	data    []mgram.Payload
	present *bitset.BitSet

	byID map[wordindex.WordID]mgram.Payload
}

func newUnigrams(count int, idx wordindex.Index, logger *slog.Logger) *unigrams {
	n := idx.NumberOfWords(count)

	u := &unigrams{logger: logger}
	if idx.IsContinuous() {
		u.data = make([]mgram.Payload, n)
		u.present = bitset.New(uint(n))
	} else {
		u.byID = make(map[wordindex.WordID]mgram.Payload, n)
	}
	return u
}

func (u *unigrams) add(g *mgram.ModelGram) error {
	id := g.EndWordID()

	if u.byID != nil {
		if prev, ok := u.byID[id]; ok {
			reportCollision(u.logger, 1, g.String(), prev, g.Payload)
		}
		u.byID[id] = g.Payload
		return nil
	}

	if uint64(id) >= uint64(len(u.data)) {
		return fmt.Errorf("%w: word id %d of %q exceeds the declared unigram count", ErrInvalidState, id, g)
	}

	if u.present.Test(uint(id)) {
		reportCollision(u.logger, 1, g.String(), u.data[id], g.Payload)
	}
	u.data[id] = g.Payload
	u.present.Set(uint(id))
	return nil
}

func (u *unigrams) get(id wordindex.WordID) (mgram.Payload, bool) {
	if u.byID != nil {
		p, ok := u.byID[id]
		return p, ok
	}

	if uint64(id) >= uint64(len(u.data)) || !u.present.Test(uint(id)) {
		return mgram.Payload{}, false
	}
	return u.data[id], true
}

func (u *unigrams) memoryUsage() int64 {
	size := int64(unsafe.Sizeof(mgram.Payload{}))
	if u.byID != nil {
		return int64(len(u.byID)) * (size + 8)
	}
	return int64(len(u.data))*size + int64(u.present.BinaryStorageSize())
}
