package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is wrapped by every "bad request" error; callers branch on it with errors.Is.
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	ErrReasonRequired     = fmt.Errorf("%w: reason is required", ErrInvalidInput)
	ErrMalformedID        = fmt.Errorf("%w: malformed identifier", ErrInvalidInput)
	ErrMalformedShortCode = fmt.Errorf("%w: malformed short code", ErrInvalidInput)
	ErrAmbiguousShortCode = fmt.Errorf("%w: short code matches more than one application", ErrInvalidInput)
	ErrOpenApplication    = errors.New("user already has an open application")
	ErrReapplyBlocked     = errors.New("user may not apply yet")
	ErrNotSubmittable     = errors.New("application cannot be submitted in its current status")
)
