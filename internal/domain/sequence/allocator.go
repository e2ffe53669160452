// Package sequence allocates human-readable roll numbers (PREFIX-NNNN).
//
// The allocator owns the process-wide counter. It reconciles the cached local
// value against the record store's member count when the store answers, and
// falls back to the cached value alone when it does not. The counter only
// advances through Commit, so a roll number is never issued twice.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Domain errors
var (
	ErrCounterDrift   = errors.New("override is lower than an already issued roll number")
	ErrNotInitialized = errors.New("sequence allocator is not initialized")
	ErrInvalidFloor   = errors.New("counter floor cannot be negative")
	ErrNotPersisted   = errors.New("counter advanced in memory but not persisted")
)

// CounterCache persists the local counter value across restarts.
type CounterCache interface {
	// Load returns the cached value and whether one exists.
	Load(ctx context.Context) (int64, bool, error)
	Store(ctx context.Context, value int64) error
}

// RemoteCount is the record store's member count, or the absence of one.
type RemoteCount struct {
	Value     int64
	Available bool
}

// Remote wraps an answered count.
func Remote(n int64) RemoteCount { return RemoteCount{Value: n, Available: true} }

// Unavailable marks the store as unreachable.
func Unavailable() RemoteCount { return RemoteCount{} }

// Allocation is a previewed roll number.
type Allocation struct {
	RollNumber string
	Value      int64
	Degraded   bool // true when the store count was unavailable
}

// Allocator hands out roll numbers.
type Allocator struct {
	mu          sync.Mutex
	cache       CounterCache
	prefix      string
	local       int64
	initialized bool
}

// NewAllocator creates an allocator backed by cache.
func NewAllocator(prefix string, cache CounterCache) *Allocator {
	return &Allocator{prefix: prefix, cache: cache}
}

// Format renders a counter value as PREFIX-NNNN.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s-%04d", prefix, value)
}

// Initialize loads the cached counter, seeding it with floor when none exists.
// PRE: floor >= 0
// POST: the allocator is ready; an existing cached value is kept as is
// INVARIANT: calling Initialize twice has the effect of calling it once
func (a *Allocator) Initialize(ctx context.Context, floor int64) error {
	if floor < 0 {
		return ErrInvalidFloor
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}
	value, ok, err := a.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("load counter: %w", err)
	}
	if !ok {
		value = floor
		if err := a.cache.Store(ctx, value); err != nil {
			return fmt.Errorf("seed counter: %w", err)
		}
	}
	a.local = value
	a.initialized = true
	return nil
}

// PeekNext previews the next roll number without consuming it.
// PRE: Initialize has succeeded
// POST: local = max(local, remote) when remote is available
func (a *Allocator) PeekNext(ctx context.Context, remote RemoteCount) (Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peekLocked(ctx, remote)
}

// Commit consumes the previewed roll number.
// PRE: the registration that used the preview was accepted or queued offline
// POST: local has advanced by exactly one; ErrNotPersisted means the cache
// write failed but the in-memory counter still moved
func (a *Allocator) Commit(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commitLocked(ctx)
}

// Allocate previews a roll number, runs fn with it, and commits only when
// fn succeeds. The lock is held throughout so concurrent registrations in
// this process never see the same number.
// PRE: Initialize has succeeded
// POST: the counter advanced by one iff fn returned nil; an ErrNotPersisted
// result still carries the committed Allocation
func (a *Allocator) Allocate(ctx context.Context, remote RemoteCount, fn func(Allocation) error) (Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc, err := a.peekLocked(ctx, remote)
	if err != nil {
		return Allocation{}, err
	}
	if err := fn(alloc); err != nil {
		return Allocation{}, err
	}
	if err := a.commitLocked(ctx); err != nil {
		return alloc, err
	}
	return alloc, nil
}

// SetOverride moves the counter forward to value.
// PRE: value >= current local value
// POST: local = value, persisted; no roll number is issued
// INVARIANT: the counter never moves backwards
func (a *Allocator) SetOverride(ctx context.Context, value int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return ErrNotInitialized
	}
	if value < a.local {
		return fmt.Errorf("override %d below current %d: %w", value, a.local, ErrCounterDrift)
	}
	if err := a.cache.Store(ctx, value); err != nil {
		return fmt.Errorf("store counter: %w", err)
	}
	a.local = value
	return nil
}

// Current returns the local counter value.
func (a *Allocator) Current() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.local
}

// Prefix returns the roll number prefix.
func (a *Allocator) Prefix() string {
	return a.prefix
}

func (a *Allocator) peekLocked(ctx context.Context, remote RemoteCount) (Allocation, error) {
	if !a.initialized {
		return Allocation{}, ErrNotInitialized
	}
	if remote.Available && remote.Value > a.local {
		a.local = remote.Value
		if err := a.cache.Store(ctx, remote.Value); err != nil {
			return Allocation{}, fmt.Errorf("store counter: %w", err)
		}
	}
	next := a.local + 1
	return Allocation{
		RollNumber: Format(a.prefix, next),
		Value:      next,
		Degraded:   !remote.Available,
	}, nil
}

func (a *Allocator) commitLocked(ctx context.Context) error {
	if !a.initialized {
		return ErrNotInitialized
	}
	a.local++
	if err := a.cache.Store(ctx, a.local); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}
