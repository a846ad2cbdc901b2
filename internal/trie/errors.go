package trie

import "errors"

var (
	ErrUnknownLayout   = errors.New("trie: unknown layout")
	ErrNotContinuous   = errors.New("trie: layout requires a continuous word index")
	ErrInvalidState    = errors.New("trie: invalid state")
	ErrContextNotFound = errors.New("trie: context not found")
	ErrUnknownWord     = errors.New("trie: unknown word")
	ErrQueryTooLong    = errors.New("trie: query is longer than the model level")
	ErrNotImplemented  = errors.New("trie: not implemented")
)
