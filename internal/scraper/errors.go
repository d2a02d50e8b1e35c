package scraper

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput is returned before any request is made when a required parameter is missing or malformed
	ErrInvalidInput = errors.New("invalid input")
	// ErrOperationFailed is the single failure callers see for operations without a safe empty result
	ErrOperationFailed = errors.New("operation failed")
	// ErrNoServers means the servers fragment of an episode listed nothing playable
	ErrNoServers = errors.New("no servers found")
)

// operationError reports as ErrOperationFailed while keeping its cause reachable
type operationError struct {
	op  string
	err error
}

func (e *operationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrOperationFailed, e.err)
}

func (e *operationError) Unwrap() error { return e.err }

func (e *operationError) Is(target error) bool { return target == ErrOperationFailed }

func failed(op string, err error) error {
	return &operationError{op: op, err: err}
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}
