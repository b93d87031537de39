package trie

import "errors"

// Error kinds surfaced by the index. Callers test with errors.Is.
var (
	// ErrValidation marks rejected input: a document without id or fields,
	// or malformed state handed to DeserializeState.
	ErrValidation = errors.New("trie: validation failed")

	// ErrIndex marks state corruption detected during traversal. Rare;
	// indicates a bug rather than bad input.
	ErrIndex = errors.New("trie: index corrupted")

	// ErrSearch is reserved for unrecoverable query-time failures.
	ErrSearch = errors.New("trie: search failed")
)
