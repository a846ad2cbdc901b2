package wordindex

// WordID identifies a token of the model vocabulary.
type WordID uint64

const (
	UndefinedWordID WordID = 0
	UnknownWordID   WordID = 1
	MinKnownWordID  WordID = 2
)

const (
	UnknownWord   = "<unk>"
	SentenceStart = "<s>"
	SentenceEnd   = "</s>"
)

// Index maps tokens to word ids.
type Index interface {
	// WordID returns the id of token, or UnknownWordID if it was never registered.
	WordID(token string) WordID

	// NeedsRegistering reports whether unigram tokens must be registered
	// before their ids can be resolved.
	NeedsRegistering() bool

	Register(token string) WordID

	// NumberOfWords returns how many id slots are needed to store
	// count unigrams, reserved ids included.
	NumberOfWords(count int) int

	// IsContinuous reports whether ids are dense, so that they can be
	// used directly as array indexes.
	IsContinuous() bool

	// MaxWordID returns the largest id the index can hand out.
	MaxWordID() WordID
}
