package transport

import (
	"context"
	"net"
	"regexp"
	"sync"
	"time"

	expect "github.com/google/goexpect"
)

// DialTelnet opens a Telnet session: TCP connect, scripted login on the
// endpoint's prompts, optional enable-mode escalation, optional pager off.
// The returned session is safe to drive from a single goroutine; concurrency
// across devices comes from the scheduler running one session per device.
func DialTelnet(ctx context.Context, ep Endpoint) (Session, error) {
	d := net.Dialer{Timeout: ep.timeout()}
	conn, err := d.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, NewConnectError(ep.Host, err)
	}

	s := &telnetSession{
		conn: conn,
		ep:   ep,
		done: make(chan error, 1),
	}

	exp, _, err := expect.SpawnGeneric(&expect.GenOptions{
		In:    conn,
		Out:   conn,
		Wait:  func() error { return <-s.done },
		Close: func() error { s.done <- nil; return conn.Close() },
		Check: func() bool { return true },
	}, ep.timeout(),
		expect.Verbose(false),
		expect.CheckDuration(250*time.Millisecond),
	)
	if err != nil {
		conn.Close()
		return nil, NewConnectError(ep.Host, err)
	}
	s.exp = exp

	if err := s.login(ctx); err != nil {
		s.Close()
		return nil, NewConnectError(ep.Host, err)
	}
	return s, nil
}

type telnetSession struct {
	conn net.Conn
	exp  *expect.GExpect
	ep   Endpoint
	done chan error

	// prompt is the live shell prompt; enable mode replaces it.
	prompt *regexp.Regexp

	closeOnce sync.Once
	closeErr  error
}

// login walks the username/password dialogue and lands on a shell prompt.
func (s *telnetSession) login(ctx context.Context) error {
	timeout := s.ep.timeout()

	login := s.ep.Login
	if login.User == nil {
		login = DefaultLoginPrompts
	}

	s.prompt = s.ep.Prompt
	if s.prompt == nil {
		s.prompt = DefaultPrompt
	}

	if _, _, err := s.exp.Expect(login.User, timeout); err != nil {
		return err
	}
	if err := s.exp.Send(s.ep.Username + "\n"); err != nil {
		return err
	}
	if _, _, err := s.exp.Expect(login.Pass, timeout); err != nil {
		return err
	}
	if err := s.exp.Send(s.ep.Password + "\n"); err != nil {
		return err
	}
	if _, _, err := s.exp.Expect(s.prompt, timeout); err != nil {
		return err
	}

	if en := s.ep.EnableMode; en != nil {
		if err := s.exp.Send(en.Command + "\n"); err != nil {
			return err
		}
		if _, _, err := s.exp.Expect(en.Prompt, timeout); err != nil {
			return err
		}
		s.prompt = en.Prompt
	}

	if s.ep.DisablePager != "" {
		_, _ = s.Execute(ctx, s.ep.DisablePager)
	}
	return nil
}

func (s *telnetSession) Execute(ctx context.Context, command string) (string, error) {
	if err := s.exp.Send(command + "\n"); err != nil {
		return "", &SessionClosedError{Host: s.ep.Host, Command: command, Cause: err}
	}

	timeout := commandDeadline(ctx, s.ep.timeout())
	out, _, err := s.exp.Expect(s.prompt, timeout)
	if err != nil {
		return out, &CommandTimeoutError{Host: s.ep.Host, Command: command, Timeout: timeout, Cause: err}
	}
	return cleanPromptOutput(out, command, s.prompt), nil
}

func (s *telnetSession) Close() error {
	s.closeOnce.Do(func() {
		if s.exp != nil {
			// GExpect.Close invokes GenOptions.Close, which closes the
			// TCP connection.
			s.closeErr = s.exp.Close()
			return
		}
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
