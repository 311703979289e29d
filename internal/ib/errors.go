package ib

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionTimeout means the provider did not report connected within the bound.
	ErrConnectionTimeout = errors.New("connection timeout")
	// ErrRequestTimeout means a historical request did not complete within its bound.
	ErrRequestTimeout = errors.New("request timeout")
	// ErrSessionClosed is returned by RequestBars after Close.
	ErrSessionClosed = errors.New("session closed")
)

// MalformedBarError reports a bar whose timestamp could not be parsed.
// The session drops such bars and keeps the rest of the request.
type MalformedBarError struct {
	Raw string
	Err error
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar date %q: %v", e.Raw, e.Err)
}

func (e *MalformedBarError) Unwrap() error {
	return e.Err
}

// ProviderError is an error message pushed by the provider for a request.
type ProviderError struct {
	ReqID   int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (req %d, code %d): %s", e.ReqID, e.Code, e.Message)
}

// IsWarning reports whether code is an informational provider message.
// Warnings carry a request id but do not end the request.
func IsWarning(code int) bool {
	switch {
	case code >= 2100 && code <= 2199:
		return true
	case code == 10090, code == 10167:
		return true
	}
	return false
}
