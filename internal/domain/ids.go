// Package domain contains pure business logic and types.
// No service or transport dependencies allowed - this is the innermost ring.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID is a value object representing a unique verification session
// identifier. It is a 128-bit opaque value, carried on the wire as 16 raw
// bytes and rendered as a canonical UUID string everywhere else.
type SessionID struct {
	value uuid.UUID
}

// NewSessionID creates a SessionID from its canonical string form.
func NewSessionID(raw string) (SessionID, error) {
	if raw == "" {
		return SessionID{}, ErrEmptyID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return SessionID{}, fmt.Errorf("invalid session ID %q: %w", raw, ErrInvalidID)
	}
	return SessionID{value: id}, nil
}

// SessionIDFromBytes creates a SessionID from its 16-byte wire form.
func SessionIDFromBytes(raw []byte) (SessionID, error) {
	if len(raw) == 0 {
		return SessionID{}, ErrEmptyID
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return SessionID{}, fmt.Errorf("invalid session ID bytes (len %d): %w", len(raw), ErrInvalidID)
	}
	return SessionID{value: id}, nil
}

// MustSessionID creates a SessionID, panicking on invalid input. Use only in tests.
func MustSessionID(raw string) SessionID {
	id, err := NewSessionID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateSessionID creates a new random SessionID.
func GenerateSessionID() SessionID {
	return SessionID{value: uuid.New()}
}

// Bytes returns the 16-byte wire form.
func (id SessionID) Bytes() []byte {
	b := id.value
	return b[:]
}

func (id SessionID) String() string { return id.value.String() }
func (id SessionID) IsZero() bool   { return id.value == uuid.Nil }
