package processor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrStoreFailure marks a run failed by the record store: a lookup or save
// returned an error or panicked.
var ErrStoreFailure = errors.New("record store failure")

type storeError struct {
	msg string
	err error
}

func storeFailure(err error, format string, args ...any) error {
	return &storeError{
		msg: fmt.Sprintf(format, args...),
		err: err,
	}
}

func (e *storeError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *storeError) Unwrap() error {
	return e.err
}

func (e *storeError) Is(target error) bool {
	return target == ErrStoreFailure
}
