package transport

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors forming the session error taxonomy. Callers classify a
// device outcome with errors.Is against these; the typed errors below carry
// the host/command context for logging.
var (
	// ErrConnect indicates the session could not be opened (network or auth).
	ErrConnect = errors.New("connect failed")
	// ErrCommandTimeout indicates no response arrived within the deadline.
	ErrCommandTimeout = errors.New("command timed out")
	// ErrSessionClosed indicates the session terminated mid-command.
	ErrSessionClosed = errors.New("session closed")
	// ErrEmptyResult marks a well-formed but zero-content response. Not a
	// failure on its own; it is the fallback trigger for neighbor queries.
	ErrEmptyResult = errors.New("empty result")
	// ErrParse indicates device output did not match the expected structure.
	ErrParse = errors.New("unexpected output format")
)

// ConnectError reports a failure to open or authenticate a session.
type ConnectError struct {
	Host  string
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Host, e.Cause)
}

func (e *ConnectError) Unwrap() error {
	return ErrConnect
}

// NewConnectError wraps cause as a connection failure against host.
func NewConnectError(host string, cause error) *ConnectError {
	return &ConnectError{Host: host, Cause: cause}
}

// CommandTimeoutError reports a command that produced no prompt within its
// deadline.
type CommandTimeoutError struct {
	Host    string
	Command string
	Timeout time.Duration
	Cause   error
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %q on %s timed out after %s: %v", e.Command, e.Host, e.Timeout, e.Cause)
}

func (e *CommandTimeoutError) Unwrap() error {
	return ErrCommandTimeout
}

// SessionClosedError reports a session that died under a command.
type SessionClosedError struct {
	Host    string
	Command string
	Cause   error
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("session to %s closed during %q: %v", e.Host, e.Command, e.Cause)
}

func (e *SessionClosedError) Unwrap() error {
	return ErrSessionClosed
}

// ParseError reports device output that could not be parsed for its
// system type.
type ParseError struct {
	Host    string
	Details string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse output from %s: %s", e.Host, e.Details)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}
