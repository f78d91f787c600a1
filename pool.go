package md2diagram

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// RenderCloser is a Renderer holding resources, such as a browser.
type RenderCloser interface {
	Renderer
	Close() error
}

// RendererPool lends out at most Size renderers at a time.
// Renderers are built lazily by the factory and reused after Release.
// Closing the pool closes idle renderers at once; renderers still lent
// out are closed when they come back.
type RendererPool struct {
	newFn func() RenderCloser
	slots chan struct{} // one token per lent renderer, never closed

	mu     sync.Mutex
	idle   []RenderCloser
	closed bool
}

// NewRendererPool creates a pool with capacity for n renderers built by newFn.
func NewRendererPool(n int, newFn func() RenderCloser) *RendererPool {
	n = max(n, MinPoolSize)
	return &RendererPool{
		newFn: newFn,
		slots: make(chan struct{}, n),
		idle:  make([]RenderCloser, 0, n),
	}
}

// Acquire lends a renderer, waiting while all of them are in use.
// It fails with ErrPoolClosed once Close has run, or with the context
// error when ctx ends first.
func (p *RendererPool) Acquire(ctx context.Context) (RenderCloser, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		r := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	// Holding a slot bounds the number of renderers ever built.
	return p.newFn(), nil
}

// Release hands a renderer back. After Close it closes the renderer instead.
func (p *RendererPool) Release(r RenderCloser) {
	if r == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.idle = append(p.idle, r)
	}
	p.mu.Unlock()
	<-p.slots

	if closed {
		_ = r.Close()
	}
}

// Close closes every idle renderer and joins their errors.
// Calling it again is a no-op.
func (p *RendererPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, r := range idle {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *RendererPool) Size() int {
	return cap(p.slots)
}

// ResolveWorkers returns workers when positive, otherwise half of
// GOMAXPROCS clamped to [MinPoolSize, MaxPoolSize]. GOMAXPROCS already
// reflects container limits once automaxprocs has run.
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}
	return min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinPoolSize), MaxPoolSize)
}
