// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
)

// Sentinel errors shared by the store, the pipelines and the HTTP layer.
// Callers wrap them with fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("version conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
)

// ErrorKind classifies an error at a component boundary so results can
// report it without string matching.
type ErrorKind string

const (
	// KindTransient covers network, auth and rate-limit failures from
	// providers and platforms. Everything unclassified lands here.
	KindTransient  ErrorKind = "transient"
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
)

// KindOf returns the ErrorKind of err. A nil error has no kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition):
		return KindValidation
	default:
		return KindTransient
	}
}
