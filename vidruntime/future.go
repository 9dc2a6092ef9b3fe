package vidruntime

import "context"

// Future is the completion handle returned by GenerateAsync.
type Future struct {
	done chan struct{}
	res  *Result
	err  error
}

// Done returns a channel that is closed once the generation finishes,
// for use in select statements.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the generation finishes and returns its outcome.
// Safe to call from multiple goroutines and more than once.
func (f *Future) Wait() (*Result, error) {
	<-f.done
	return f.res, f.err
}

// GenerateAsync runs Generate on its own goroutine and returns a Future
// for the outcome. The contract is identical to Generate, including the
// single-generation rule: the caller must not start another run on this
// pipeline until the future completes.
func (p *Pipeline) GenerateAsync(ctx context.Context, params GenerateParams, opts ...GenerateOption) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res, f.err = p.Generate(ctx, params, opts...)
	}()
	return f
}
