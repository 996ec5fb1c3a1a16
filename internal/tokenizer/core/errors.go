package core

import "errors"

var (
	// ErrUnknownSymbol is returned when text or an id has no entry in the symbol table. There is no
	// fallback token: the vocabulary has to be retrained on an alphabet that covers the input.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrMalformedSnapshot is returned when a snapshot is missing fields or its maps disagree.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)
