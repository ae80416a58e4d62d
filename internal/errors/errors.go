// Package errors provides domain-specific error types for bidmaster.
//
// Connection-establishment failures carry the operation and address,
// protocol violations carry the offending line, and arbitration
// rejections are sentinels so callers can branch with [Is].
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

// Session and connection state.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrSessionClosed    = errors.New("session is closed")
	ErrNotRunning       = errors.New("auction is not running")
)

// Arbitration and shell-level rejections.
var (
	ErrEmptyItem        = errors.New("item must not be empty")
	ErrEmptyName        = errors.New("name must not be empty")
	ErrEmptyAmount      = errors.New("bid amount must not be empty")
	ErrInvalidField     = errors.New("field contains '|' or a line break")
	ErrNoBid            = errors.New("no bids have been placed yet")
	ErrFinalPending     = errors.New("final confirmation already pending")
	ErrNoFinalRequested = errors.New("no final confirmation was requested")
	ErrWrongBidder      = errors.New("confirmation is not from the last bidder")
	ErrAlreadyJoined    = errors.New("session already joined")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure to establish a connection.
type NetworkError struct {
	Op   string // operation: "dial", "listen", "accept"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError describes a wire line that could not be interpreted.
// The connection that produced it stays open.
type ProtocolError struct {
	Line   string // the raw line as received
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %q", e.Reason, e.Line)
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// Malformed creates a ProtocolError.
func Malformed(line, reason string) *ProtocolError {
	return &ProtocolError{Line: line, Reason: reason}
}

// ── Classification helpers ───────────────────────────────────────────

// IsProtocol reports whether err is a protocol violation.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsRejection reports whether err is an arbitration rejection: a
// request the coordinator refused without changing state.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNoBid, ErrFinalPending, ErrNoFinalRequested, ErrWrongBidder, ErrAlreadyJoined,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use bidmaster/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
