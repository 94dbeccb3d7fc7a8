package asset

import (
	"context"
	"sync"
)

// Result is the outcome of a load.
type Result struct {
	Bundle *Bundle
	Err    error
}

// Request is a single load running in the background. Its result is
// published once and can be polled from the render thread.
type Request struct {
	path   string
	done   chan struct{}
	result Result

	mu   sync.Mutex
	took bool
}

// Fetch starts loading path with loader in a new goroutine.
func Fetch(loader Loader, path string) *Request {
	r := &Request{path: path, done: make(chan struct{})}
	go func() {
		b, err := loader.Load(path)
		r.result = Result{Bundle: b, Err: err}
		close(r.done)
	}()
	return r
}

// Path returns the requested model path.
func (r *Request) Path() string {
	return r.path
}

// Done is closed once the result is available.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Poll returns the result the first time it is called after the load
// finished. Every other call reports false.
func (r *Request) Poll() (Result, bool) {
	select {
	case <-r.done:
	default:
		return Result{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.took {
		return Result{}, false
	}
	r.took = true
	return r.result, true
}

// Wait blocks until the load finishes or ctx is done. Unlike Poll it can
// be called any number of times.
func (r *Request) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
