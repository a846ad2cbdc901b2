package wordindex

// Basic assigns continuous ids in registration order.
type Basic struct {
	ids    map[string]WordID
	nextID WordID
	maxID  WordID
}

func NewBasic() *Basic {
	return &Basic{
		ids:    make(map[string]WordID),
		nextID: MinKnownWordID,
	}
}

func (idx *Basic) WordID(token string) WordID {
	if token == UnknownWord {
		return UnknownWordID
	}
	if id, ok := idx.ids[token]; ok {
		return id
	}
	return UnknownWordID
}

func (idx *Basic) NeedsRegistering() bool { return true }

func (idx *Basic) Register(token string) WordID {
	if token == UnknownWord {
		return UnknownWordID
	}
	if id, ok := idx.ids[token]; ok {
		return id
	}

	id := idx.nextID
	idx.ids[token] = id
	idx.nextID++
	return id
}

func (idx *Basic) NumberOfWords(count int) int {
	n := count + int(MinKnownWordID)
	if n > 0 {
		idx.maxID = WordID(n - 1)
	}
	return n
}

func (idx *Basic) IsContinuous() bool { return true }

// MaxWordID is only meaningful once NumberOfWords has been called.
func (idx *Basic) MaxWordID() WordID {
	return max(idx.maxID, idx.nextID-1)
}

// Len returns the number of registered tokens.
func (idx *Basic) Len() int { return len(idx.ids) }
