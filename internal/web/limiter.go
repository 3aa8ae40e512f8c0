package web

// limiter.go implements concurrency control for import processing.
//
// Imports hold a pooled connection and a transaction for their whole
// duration, so the limiter caps how many run in parallel. When all slots
// are occupied, new requests wait up to maxWait before failing with
// ErrTooManyImports. Imports targeting different tables are otherwise
// independent; same-table imports race with last-writer-wins semantics
// and are not serialized here.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when all import slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// ImportLimiter restricts parallel imports using a semaphore.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewImportLimiter creates a limiter allowing at most maxConcurrent
// simultaneous imports, with maxWait as the slot-acquisition timeout.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire an import slot. Returns nil on success,
// ErrTooManyImports when the timeout expires, or the context's error when
// the request itself is cancelled. The caller must Release on success.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once per successful Acquire.
func (l *ImportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of imports currently running.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the configured parallel import limit.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}
