// Package transport provides a uniform session abstraction over the
// protocols used to interrogate network devices: SSH (one-shot exec and
// interactive prompt-driven), Telnet, and SFTP. Callers hold a Session and
// never care which protocol is underneath.
package transport

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Protocol selects the wire protocol for a session.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
)

// DefaultTimeout bounds connect and per-command waits when the endpoint
// does not specify one.
const DefaultTimeout = 10 * time.Second

// DefaultPrompt matches common CLI prompts like "hostname#" or "hostname>".
var DefaultPrompt = regexp.MustCompile(`(?m)[\w\-\[\]()/.]+[#>]\s*$`)

// LoginPrompts are the username/password prompts a Telnet device presents
// before a shell is available.
type LoginPrompts struct {
	User *regexp.Regexp
	Pass *regexp.Regexp
}

// DefaultLoginPrompts matches the lowercase "login:" / "password:" pair used
// by DSLAM and GPON shelves.
var DefaultLoginPrompts = LoginPrompts{
	User: regexp.MustCompile(`(?i)login:\s*$`),
	Pass: regexp.MustCompile(`(?i)password:\s*$`),
}

// CMTSLoginPrompts matches the "Username:" / "Password:" pair used by
// CMTS head-ends.
var CMTSLoginPrompts = LoginPrompts{
	User: regexp.MustCompile(`Username:\s*$`),
	Pass: regexp.MustCompile(`Password:\s*$`),
}

// Enable describes an optional privilege escalation step run right after
// login: send Command, wait for Prompt. The session prompt switches to
// Prompt afterwards.
type Enable struct {
	Command string
	Prompt  *regexp.Regexp
}

// Endpoint describes one device connection: where, how, and as whom.
type Endpoint struct {
	Host     string
	Port     int
	Protocol Protocol
	Username string
	Password string

	// Prompt is the shell prompt to synchronize on for interactive
	// sessions. Nil selects DefaultPrompt for Telnet; for SSH a nil
	// Prompt selects the one-shot exec path instead of a PTY.
	Prompt *regexp.Regexp

	// Login and EnableMode only apply to Telnet.
	Login      LoginPrompts
	EnableMode *Enable

	// DisablePager runs the pager-off command after login so long tables
	// are not truncated by --More-- paging.
	DisablePager string

	// Timeout bounds the connect and each command round-trip.
	Timeout time.Duration
}

// Addr returns host:port, applying the protocol's default port.
func (ep Endpoint) Addr() string {
	port := ep.Port
	if port == 0 {
		if ep.Protocol == ProtocolTelnet {
			port = 23
		} else {
			port = 22
		}
	}
	return fmt.Sprintf("%s:%d", ep.Host, port)
}

func (ep Endpoint) timeout() time.Duration {
	if ep.Timeout > 0 {
		return ep.Timeout
	}
	return DefaultTimeout
}

// Session is one authenticated connection to a device for the duration of a
// command sequence. Close is idempotent and always releases the underlying
// network resources.
type Session interface {
	// Execute sends a command and returns its output. It fails with an
	// error matching ErrCommandTimeout when no response arrives within the
	// deadline, or ErrSessionClosed when the connection dies mid-command.
	Execute(ctx context.Context, command string) (string, error)
	Close() error
}

// Dialer opens sessions. The package-level Dial is the production
// implementation; tests substitute scripted fakes.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, ep Endpoint) (Session, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	return f(ctx, ep)
}

// Dial opens a Session to the endpoint using its declared protocol.
// It fails with an error matching ErrConnect on network or auth failure.
func Dial(ctx context.Context, ep Endpoint) (Session, error) {
	switch ep.Protocol {
	case ProtocolTelnet:
		return DialTelnet(ctx, ep)
	case ProtocolSSH, "":
		return DialSSH(ctx, ep)
	default:
		return nil, NewConnectError(ep.Host, fmt.Errorf("unsupported protocol %q", ep.Protocol))
	}
}

// commandDeadline picks the wait for one command round-trip: the endpoint
// timeout, shortened to the context deadline when that is closer.
func commandDeadline(ctx context.Context, base time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if remain := time.Until(dl); remain < base {
			return remain
		}
	}
	return base
}
