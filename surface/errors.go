package surface

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded means the payload is at or over the buffer limit.
	ErrCapacityExceeded = errors.New("payload exceeds buffer capacity")
	// ErrTransferFailed means the payload could not be read from the caller.
	ErrTransferFailed = errors.New("payload transfer failed")
	// ErrEmptyPayload means a write carried no bytes.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrUnknownEndpoint means no endpoint has the requested name.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrReadOnly means the endpoint does not accept writes.
	ErrReadOnly = errors.New("endpoint is read only")
	// ErrClosed means the surface was closed and its table released.
	ErrClosed = errors.New("control surface closed")
)

// EndpointError records which endpoint a failed call was addressed to.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (err *EndpointError) Error() string {
	return fmt.Sprintf("%s: %v", err.Endpoint, err.Err)
}

func (err *EndpointError) Unwrap() error {
	return err.Err
}
