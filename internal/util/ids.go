package util

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// UUIDGenerator hands out random version 4 UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the default ID source for records and messages.
func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

// NewID returns a fresh UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator hands out "{prefix}{n}" IDs with n counting up from 1.
// Tests use it to get stable IDs.
type SequenceGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewSequenceGenerator creates a SequenceGenerator with the given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next ID in the sequence. It is safe for concurrent use.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s%d", g.prefix, g.next.Add(1))
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
