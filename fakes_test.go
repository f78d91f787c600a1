package md2diagram

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
)

var errFakeRender = errors.New("fake render failure")

// fakeRenderer records every source it receives. fail decides whether a
// call errors; successful calls write a small file to outputPath.
type fakeRenderer struct {
	mu      sync.Mutex
	sources []string
	fail    func(source, outputPath string) bool
	closed  atomic.Bool
}

func (f *fakeRenderer) Render(_ context.Context, source, outputPath string) error {
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.mu.Unlock()

	if f.fail != nil && f.fail(source, outputPath) {
		return errFakeRender
	}
	return os.WriteFile(outputPath, []byte("png"), 0o600)
}

func (f *fakeRenderer) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeRenderer) Sources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

func alwaysFail(string, string) bool { return true }

// fakeCard records error card requests.
type fakeCard struct {
	titles []string
	err    error
}

func (f *fakeCard) RenderCard(_ context.Context, title, _ string, outputPath string) error {
	f.titles = append(f.titles, title)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("card"), 0o600)
}
