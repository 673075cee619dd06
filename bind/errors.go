package bind

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbound is matched by every UnboundError.
	ErrUnbound = errors.New("unbound")
	// ErrEmptyTable means the first row is already the sentinel.
	ErrEmptyTable = errors.New("operating point table is empty")
	// ErrUnterminated means no sentinel row was found within the scan limit.
	ErrUnterminated = errors.New("operating point table has no sentinel")
)

// UnboundError means a structure could not be resolved in the host.
type UnboundError struct {
	What string
	Err  error
}

func (err *UnboundError) Error() string {
	return fmt.Sprintf("cannot bind %s: %v", err.What, err.Err)
}

func (err *UnboundError) Unwrap() error {
	return err.Err
}

func (err *UnboundError) Is(target error) bool {
	return target == ErrUnbound
}
