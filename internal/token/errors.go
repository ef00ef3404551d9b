package token

import "errors"

var (
	// ErrGeneration is returned when a unique token value could not be
	// allocated within the retry budget. Collisions on 256-bit values are
	// astronomically unlikely; hitting this repeatedly points at a broken
	// RNG or a storage fault.
	ErrGeneration = errors.New("failed to generate unique token value")

	// ErrTokenGeneration is returned when ID token signing fails
	ErrTokenGeneration = errors.New("token generation failed")
)
