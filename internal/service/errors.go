package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vedran77/matrimony/internal/repository"
)

var (
	ErrSelfTarget        = errors.New("you cannot do this to yourself")
	ErrDuplicate         = errors.New("already done")
	ErrRequestPending    = fmt.Errorf("%w: you have already sent a connect request to this user", ErrDuplicate)
	ErrAlreadyConnected  = fmt.Errorf("%w: you are already connected with this user", ErrDuplicate)
	ErrIncomingRequest   = fmt.Errorf("%w: this user has already sent you a connect request", ErrDuplicate)
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("request has already been processed")
	ErrForbidden         = errors.New("not allowed")
	ErrMatchClosed       = fmt.Errorf("%w: this conversation has been closed", ErrForbidden)
	ErrNotConnected      = errors.New("you are not connected with this user")
	ErrEmptyContent      = errors.New("message cannot be empty")
)

// StorageError carries a failure from the store that is not a domain
// outcome. Err is never shown to callers.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// retryOnce runs fn again when the first attempt failed transiently. Only
// idempotent operations go through here.
func retryOnce[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	v, err := fn()
	if errors.Is(err, repository.ErrTransient) && ctx.Err() == nil {
		v, err = fn()
	}
	return v, err
}
