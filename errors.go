package sapi

import (
	"errors"
	"fmt"
)

// Errors returned by discovery and the destructive fresh path.
var (
	// ErrMalformedChangeSet is returned when a change-set file has no
	// forward section or its filename lacks the timestamp prefix.
	ErrMalformedChangeSet = errors.New("malformed change-set")

	// ErrDuplicateChangeSet is returned when two discovered files share
	// an identifier.
	ErrDuplicateChangeSet = errors.New("duplicate change-set")

	// ErrConfirmationMismatch is returned by Fresh when the confirmation
	// token does not equal the configured database name.
	ErrConfirmationMismatch = errors.New("confirmation does not match database name")
)

// ScriptError reports a SQL script failure together with the change-set
// that produced it.  The underlying database error is available via
// errors.Unwrap.
type ScriptError struct {
	Identifier string
	Err        error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("change-set %s: %v", e.Identifier, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(identifier string, err error) error {
	return &ScriptError{Identifier: identifier, Err: err}
}
