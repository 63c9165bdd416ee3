package registry

import (
	"crypto/rand"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultPrefix is prepended to counter-generated identifiers.
const DefaultPrefix = "a"

// Allocator generates candidate identifiers. Uniqueness among live entries
// is enforced by Registry.Allocate, not by the allocator.
type Allocator interface {
	Next() string
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func() string

// Next calls f.
func (f AllocatorFunc) Next() string { return f() }

// CounterAllocator issues monotonically increasing identifiers ("a1",
// "a2", ...). Identifiers are never reused during the allocator's lifetime.
type CounterAllocator struct {
	prefix string
	n      atomic.Uint64
}

// NewCounterAllocator creates a CounterAllocator. An empty prefix uses
// DefaultPrefix.
func NewCounterAllocator(prefix string) *CounterAllocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CounterAllocator{prefix: prefix}
}

// Next returns the next identifier.
func (c *CounterAllocator) Next() string {
	return c.prefix + strconv.FormatUint(c.n.Add(1), 10)
}

// ULIDAllocator issues lexicographically sortable ULIDs with a monotonic
// entropy source, so identifiers minted in the same millisecond still
// increase.
type ULIDAllocator struct {
	prefix  string
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDAllocator creates a ULIDAllocator.
func NewULIDAllocator(prefix string) *ULIDAllocator {
	return &ULIDAllocator{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns the next identifier.
func (u *ULIDAllocator) Next() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.prefix + ulid.MustNew(ulid.Now(), u.entropy).String()
}

// UUIDAllocator issues random version 4 UUIDs.
type UUIDAllocator struct {
	prefix string
}

// NewUUIDAllocator creates a UUIDAllocator.
func NewUUIDAllocator(prefix string) *UUIDAllocator {
	return &UUIDAllocator{prefix: prefix}
}

// Next returns the next identifier.
func (u *UUIDAllocator) Next() string {
	return u.prefix + uuid.NewString()
}

// Allocator kinds accepted by NewAllocator.
const (
	AllocatorCounter = "counter"
	AllocatorULID    = "ulid"
	AllocatorUUID    = "uuid"
)

// NewAllocator returns the allocator for a configured kind. It reports
// false for an unknown kind.
func NewAllocator(kind, prefix string) (Allocator, bool) {
	switch kind {
	case "", AllocatorCounter:
		return NewCounterAllocator(prefix), true
	case AllocatorULID:
		return NewULIDAllocator(prefix), true
	case AllocatorUUID:
		return NewUUIDAllocator(prefix), true
	default:
		return nil, false
	}
}
