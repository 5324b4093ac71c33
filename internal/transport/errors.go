package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the transports and the selector.
var (
	// ErrNoCredentials means neither an OAuth2 token file nor an
	// email/password pair could be found.
	ErrNoCredentials = errors.New("no credentials available: set ZOHO_EMAIL and ZOHO_PASSWORD, or run oauth-login")

	// ErrUnsupportedCombination rejects transport/auth pairings that can
	// never work, such as REST with an app password.
	ErrUnsupportedCombination = errors.New("unsupported auth/transport combination")

	// ErrMissingDependency means an explicitly requested transport is not
	// configured.
	ErrMissingDependency = errors.New("requested transport is not configured")

	// ErrNotFound is a missing message, folder, attachment or local file.
	ErrNotFound = errors.New("not found")

	// ErrValidation is bad caller input, like an empty id list.
	ErrValidation = errors.New("invalid request")
)

// TransportError wraps an operation failure with the transport(s) that were
// tried before giving up.
type TransportError struct {
	Op         string
	Transports []Kind
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed on %v: %v", e.Op, e.Transports, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
