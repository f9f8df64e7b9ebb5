package assistant

import (
	"context"
	"sync"
	"time"
)

// Registry tracks the in-flight chat stream of each identity. Starting a new
// stream cancels the previous one for the same identity.
type Registry struct {
	mu     sync.Mutex
	active map[string]*activeStream
}

type activeStream struct {
	cancel context.CancelFunc
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*activeStream)}
}

// Begin registers a new stream for identity and returns its context and a
// release func. A zero timeout leaves the stream unbounded.
func (r *Registry) Begin(identity string, timeout time.Duration) (context.Context, func()) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	entry := &activeStream{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.active[identity]; ok {
		prev.cancel()
	}
	r.active[identity] = entry
	r.mu.Unlock()

	release := func() {
		cancel()
		r.mu.Lock()
		if r.active[identity] == entry {
			delete(r.active, identity)
		}
		r.mu.Unlock()
	}
	return ctx, release
}

// Active returns the number of in-flight streams.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
