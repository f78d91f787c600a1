package md2diagram

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire(context.Context) (RenderCloser, error)
	Release(RenderCloser)
	Size() int
	Close() error
} = (*RendererPool)(nil)

// newFakePool builds a pool of fakeRenderers and counts how many were made.
func newFakePool(n int) (*RendererPool, *atomic.Int32) {
	var made atomic.Int32
	pool := NewRendererPool(n, func() RenderCloser {
		made.Add(1)
		return &fakeRenderer{}
	})
	return pool, &made
}

// mustAcquire acquires a renderer or fails the test.
func mustAcquire(t *testing.T, pool *RendererPool) RenderCloser {
	t.Helper()

	r, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	return r
}

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{
			name:    "explicit takes priority",
			workers: 4,
			want:    4,
		},
		{
			name:    "explicit=1 for sequential",
			workers: 1,
			want:    1,
		},
		{
			name:    "explicit can exceed max",
			workers: 16,
			want:    16,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolveWorkers(tt.workers); got != tt.want {
				t.Errorf("ResolveWorkers(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestRendererPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	pool, made := newFakePool(2)
	defer pool.Close()

	r1 := mustAcquire(t, pool)
	r2 := mustAcquire(t, pool)
	if r1 == r2 {
		t.Error("expected different renderer instances")
	}

	pool.Release(r1)
	if r3 := mustAcquire(t, pool); r3 != r1 {
		t.Error("expected to get back released renderer")
	}
	if got := made.Load(); got != 2 {
		t.Errorf("renderers created = %d, want 2", got)
	}
}

func TestRendererPool_LazyCreation(t *testing.T) {
	t.Parallel()

	pool, made := newFakePool(4)
	defer pool.Close()

	if got := made.Load(); got != 0 {
		t.Errorf("renderers created before Acquire = %d, want 0", got)
	}
	pool.Release(mustAcquire(t, pool))
	pool.Release(mustAcquire(t, pool))
	if got := made.Load(); got != 1 {
		t.Errorf("renderers created = %d, want 1 when reused", got)
	}
}

func TestRendererPool_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
		want int
	}{
		{"size 1", 1, 1},
		{"size 4", 4, 4},
		{"size 0 becomes 1", 0, 1},
		{"negative becomes 1", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool, _ := newFakePool(tt.size)
			defer pool.Close()

			if got := pool.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRendererPool_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	pool, made := newFakePool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := pool.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			time.Sleep(5 * time.Millisecond)
			pool.Release(r)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(5 * time.Second)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		t.Fatal("concurrent access test timed out - possible deadlock")
	}
	if got := made.Load(); got > 4 {
		t.Errorf("renderers created = %d, want at most 4", got)
	}
}

func TestRendererPool_CloseClosesRenderers(t *testing.T) {
	t.Parallel()

	var created []*fakeRenderer
	pool := NewRendererPool(2, func() RenderCloser {
		r := &fakeRenderer{}
		created = append(created, r)
		return r
	})

	r1 := mustAcquire(t, pool)
	r2 := mustAcquire(t, pool)
	pool.Release(r1)
	pool.Release(r2)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for i, r := range created {
		if !r.closed.Load() {
			t.Errorf("renderer %d not closed", i)
		}
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// Notes:
//   - a worker can still hold a renderer when the pool is closed; handing it
//     back must close it rather than park it in the pool or panic
func TestRendererPool_ReleaseAfterClose(t *testing.T) {
	t.Parallel()

	pool, _ := newFakePool(1)
	lent := mustAcquire(t, pool).(*fakeRenderer)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if lent.closed.Load() {
		t.Fatal("renderer in use was closed by Close()")
	}

	pool.Release(lent)
	if !lent.closed.Load() {
		t.Error("renderer released after Close() was not closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Close() error = %v, want ErrPoolClosed", err)
	}
}

// Notes:
//   - Release racing Close must neither panic nor leak an open renderer
func TestRendererPool_ReleaseRacingClose(t *testing.T) {
	t.Parallel()

	const workers = 8

	var mu sync.Mutex
	var created []*fakeRenderer
	pool := NewRendererPool(workers, func() RenderCloser {
		r := &fakeRenderer{}
		mu.Lock()
		created = append(created, r)
		mu.Unlock()
		return r
	})

	lent := make([]RenderCloser, workers)
	for i := range lent {
		lent[i] = mustAcquire(t, pool)
	}

	var wg sync.WaitGroup
	for _, r := range lent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Release(r)
		}()
	}
	if err := pool.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	wg.Wait()

	for i, r := range created {
		if !r.closed.Load() {
			t.Errorf("renderer %d left open", i)
		}
	}
}

func TestRendererPool_AcquireHonorsContext(t *testing.T) {
	t.Parallel()

	pool, _ := newFakePool(1)
	defer pool.Close()

	held := mustAcquire(t, pool)
	defer pool.Release(held)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() on exhausted pool error = %v, want DeadlineExceeded", err)
	}
}

type failingCloser struct {
	fakeRenderer
	err error
}

func (f *failingCloser) Close() error { return f.err }

func TestRendererPool_CloseJoinsErrors(t *testing.T) {
	t.Parallel()

	errA := errors.New("browser a")
	errB := errors.New("browser b")
	errs := []error{errA, errB}
	var i int
	pool := NewRendererPool(2, func() RenderCloser {
		r := &failingCloser{err: errs[i]}
		i++
		return r
	})
	r1 := mustAcquire(t, pool)
	r2 := mustAcquire(t, pool)
	pool.Release(r1)
	pool.Release(r2)

	err := pool.Close()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Close() error = %v, want both close errors", err)
	}
}
