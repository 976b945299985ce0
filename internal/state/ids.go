package state

import "github.com/google/uuid"

// NewID returns a fresh element identifier.
func NewID() string {
	return uuid.NewString()
}

// IDSource generates element ids. Tests swap it for a deterministic sequence.
type IDSource func() string
