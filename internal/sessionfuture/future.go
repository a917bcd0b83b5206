// Package sessionfuture provides a single-assignment future for the session
// id: allocated by the persistence gateway after auth succeeds, needed
// moments later by the shell bridge and, independently, by the SFTP
// subsystem. Neither consumer should block the other, and neither should
// see a torn or default value — hence a close-once channel guarding a
// single write.
package sessionfuture

import (
	"context"
	"sync"
)

// String is a single-assignment future for a string value. Create one with
// NewString; the zero value has no done channel and is not usable.
type String struct {
	once  sync.Once
	done  chan struct{}
	mu    sync.Mutex
	value string
}

// NewString returns a ready-to-use future.
func NewString() *String {
	return &String{done: make(chan struct{})}
}

// Resolve assigns the value and unblocks any waiters. Only the first call
// has an effect; later calls are no-ops, matching the "resolved exactly
// once" contract in the design notes.
func (f *String) Resolve(v string) {
	f.once.Do(func() {
		f.mu.Lock()
		f.value = v
		f.mu.Unlock()
		close(f.done)
	})
}

// Await blocks until Resolve has been called or ctx is done, whichever
// comes first. ok is false on timeout/cancellation.
func (f *String) Await(ctx context.Context) (value string, ok bool) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, true
	case <-ctx.Done():
		return "", false
	}
}

// Peek returns the current value without blocking, and whether it has been
// resolved yet.
func (f *String) Peek() (value string, resolved bool) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, true
	default:
		return "", false
	}
}
