package core

import "github.com/google/uuid"

// NewID returns a random identifier for entities, sessions and reset tokens.
func NewID() string { return uuid.NewString() }
