// Package future provides a completion handle for work that finishes later,
// with continuations, cooperative awaiting and an all-of barrier.
package future

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// ErrTimeout is returned when a context ends before a future completes.
var ErrTimeout = errors.New("future: not completed before deadline")

// Future is completed exactly once, either resolved with a value or
// rejected with an error. The zero value is not usable, see New.
type Future[T any] struct {
	done chan struct{}

	mtx       sync.Mutex
	completed bool
	val       T
	err       error
	callbacks []func(T, error)
}

func New[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Resolve completes f with v. It reports false if f was already completed.
func (f *Future[T]) Resolve(v T) bool {
	return f.complete(v, nil)
}

// Reject completes f with err. It reports false if f was already completed.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = errors.New("future: rejected with nil error")
	}

	var zero T
	return f.complete(zero, err)
}

func (f *Future[T]) complete(v T, err error) bool {
	f.mtx.Lock()
	if f.completed {
		f.mtx.Unlock()
		return false
	}

	f.completed = true
	f.val, f.err = v, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mtx.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}

	return true
}

// Done is closed once f is completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until f completes or ctx ends, whichever comes first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrap(ErrTimeout, ctx.Err().Error())
	}
}

// Then registers fn to run once f completes. If f is already complete fn
// runs immediately on the calling goroutine, otherwise on the goroutine
// that completes f, so fn must not block.
func (f *Future[T]) Then(fn func(T, error)) {
	f.mtx.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, fn)
		f.mtx.Unlock()
		return
	}
	f.mtx.Unlock()

	fn(f.val, f.err)
}

// WithContext returns a future that mirrors f, but is rejected with
// ErrTimeout if ctx ends first. f itself is left untouched.
func (f *Future[T]) WithContext(ctx context.Context) *Future[T] {
	if ctx.Done() == nil {
		return f
	}

	out := New[T]()
	f.Then(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(v)
	})

	go func() {
		select {
		case <-out.Done():
		case <-ctx.Done():
			out.Reject(errors.Wrap(ErrTimeout, ctx.Err().Error()))
		}
	}()

	return out
}

// AllOf completes once every future in fs has completed. It never
// completes early on the first failure: the result is rejected with the
// errors of all failed inputs combined, or resolved if none failed.
func AllOf[T any](fs ...*Future[T]) *Future[struct{}] {
	out := New[struct{}]()
	if len(fs) == 0 {
		out.Resolve(struct{}{})
		return out
	}

	var (
		mtx     sync.Mutex
		errs    error
		pending = atomic.NewInt64(int64(len(fs)))
	)

	for _, f := range fs {
		f.Then(func(_ T, err error) {
			if err != nil {
				mtx.Lock()
				errs = multierr.Append(errs, err)
				mtx.Unlock()
			}

			if pending.Dec() > 0 {
				return
			}

			mtx.Lock()
			defer mtx.Unlock()
			if errs != nil {
				out.Reject(errs)
				return
			}
			out.Resolve(struct{}{})
		})
	}

	return out
}
