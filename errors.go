// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import (
	"errors"
	"fmt"
	"io"
)

// Internal error used to abort a decode or encode via panic.
// The entry points recover it and report the stored stream error.
var errStop = errors.New("stop")

type invalidFormatError struct {
	err error
}

func (e *invalidFormatError) Error() string {
	return fmt.Sprintf("psd: invalid format: %s", e.err)
}

func (e *invalidFormatError) Unwrap() error {
	return e.err
}

func newInvalidFormatError(err error) error {
	return &invalidFormatError{err: err}
}

func newInvalidFormatErrorf(format string, args ...any) error {
	return newInvalidFormatError(fmt.Errorf(format, args...))
}

// IsInvalidFormat reports whether err came from a malformed document:
// a signature or version mismatch, a truncated stream, or a length field
// that disagrees with the bytes actually consumed.
func IsInvalidFormat(err error) bool {
	var e *invalidFormatError
	return errors.As(err, &e)
}

func isInvalidFormatErrorCandidate(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, errShortRead)
}

type unsupportedFeatureError struct {
	err error
}

func (e *unsupportedFeatureError) Error() string {
	return fmt.Sprintf("psd: unsupported feature: %s", e.err)
}

func (e *unsupportedFeatureError) Unwrap() error {
	return e.err
}

func newUnsupportedFeatureErrorf(format string, args ...any) error {
	return &unsupportedFeatureError{err: fmt.Errorf(format, args...)}
}

// IsUnsupportedFeature reports whether err means the document is well formed
// but uses a feature this package does not handle, e.g. a non-empty
// color mode table.
func IsUnsupportedFeature(err error) bool {
	var e *unsupportedFeatureError
	return errors.As(err, &e)
}
