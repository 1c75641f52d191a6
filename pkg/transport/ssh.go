package transport

import (
	"context"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"
)

// DialSSH opens an SSH session to the endpoint. With a Prompt set the
// session is an interactive PTY driven by expect (needed for devices whose
// CLI only works on a terminal); without one each Execute runs as a one-shot
// exec channel, which is what RouterOS and Linux-like targets want.
func DialSSH(ctx context.Context, ep Endpoint) (Session, error) {
	client, err := dialSSHClient(ctx, ep)
	if err != nil {
		return nil, NewConnectError(ep.Host, err)
	}

	if ep.Prompt == nil {
		return &sshExecSession{client: client, ep: ep}, nil
	}

	exp, _, err := expect.SpawnSSH(client, ep.timeout(),
		expect.Verbose(false),
		expect.CheckDuration(250*time.Millisecond),
	)
	if err != nil {
		client.Close()
		return nil, NewConnectError(ep.Host, err)
	}

	s := &sshExpectSession{
		client: client,
		exp:    exp,
		ep:     ep,
	}

	// Synchronize on the first prompt before handing the session out.
	if _, _, err := exp.Expect(ep.Prompt, ep.timeout()); err != nil {
		s.Close()
		return nil, NewConnectError(ep.Host, err)
	}

	if ep.DisablePager != "" {
		// Paging off is best-effort; some firmware lacks the command.
		_, _ = s.Execute(ctx, ep.DisablePager)
	}

	return s, nil
}

// dialSSHClient dials TCP under the context and completes the SSH handshake.
// Password plus keyboard-interactive auth covers devices that refuse plain
// password auth (some OLT shells only offer keyboard-interactive).
func dialSSHClient(ctx context.Context, ep Endpoint) (*ssh.Client, error) {
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = ep.Password
		}
		return answers, nil
	})

	config := &ssh.ClientConfig{
		User: ep.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(ep.Password),
			keyboardInteractive,
		},
		Timeout: ep.timeout(),
		// Device fleets are reinstalled and renumbered often enough that
		// host key pinning lives in network ACLs, not here.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	d := net.Dialer{Timeout: ep.timeout()}
	conn, err := d.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, ep.Addr(), config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// sshExecSession runs each command on its own exec channel over a shared
// SSH connection. Stateless between commands, like the original per-command
// exec model.
type sshExecSession struct {
	client *ssh.Client
	ep     Endpoint

	closeOnce sync.Once
	closeErr  error
}

func (s *sshExecSession) Execute(ctx context.Context, command string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", &SessionClosedError{Host: s.ep.Host, Command: command, Cause: err}
	}
	defer sess.Close()

	timeout := commandDeadline(ctx, s.ep.timeout())

	type execResult struct {
		out []byte
		err error
	}
	done := make(chan execResult, 1)
	go func() {
		out, err := sess.CombinedOutput(command)
		done <- execResult{out, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			// Non-zero exit still produces usable output on network gear;
			// only a dead channel is an error.
			if _, isExit := r.err.(*ssh.ExitError); !isExit {
				return string(r.out), &SessionClosedError{Host: s.ep.Host, Command: command, Cause: r.err}
			}
		}
		return string(r.out), nil
	case <-ctx.Done():
		sess.Close()
		return "", &CommandTimeoutError{Host: s.ep.Host, Command: command, Timeout: timeout, Cause: ctx.Err()}
	case <-timer.C:
		sess.Close()
		return "", &CommandTimeoutError{Host: s.ep.Host, Command: command, Timeout: timeout, Cause: ErrCommandTimeout}
	}
}

func (s *sshExecSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

// sshExpectSession drives an interactive PTY over SSH, synchronizing on the
// endpoint's prompt after each command.
type sshExpectSession struct {
	client *ssh.Client
	exp    *expect.GExpect
	ep     Endpoint

	closeOnce sync.Once
	closeErr  error
}

func (s *sshExpectSession) Execute(ctx context.Context, command string) (string, error) {
	if err := s.exp.Send(command + "\n"); err != nil {
		return "", &SessionClosedError{Host: s.ep.Host, Command: command, Cause: err}
	}

	timeout := commandDeadline(ctx, s.ep.timeout())
	out, _, err := s.exp.Expect(s.ep.Prompt, timeout)
	if err != nil {
		return out, &CommandTimeoutError{Host: s.ep.Host, Command: command, Timeout: timeout, Cause: err}
	}
	return cleanPromptOutput(out, command, s.ep.Prompt), nil
}

func (s *sshExpectSession) Close() error {
	s.closeOnce.Do(func() {
		if s.exp != nil {
			_ = s.exp.Close()
		}
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

// cleanPromptOutput strips the echoed command from the head of captured
// output and the trailing prompt from its tail, leaving just the response.
func cleanPromptOutput(out, command string, prompt *regexp.Regexp) string {
	lines := strings.Split(out, "\n")

	// Drop leading echo of the command itself.
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == strings.TrimSpace(command) {
		lines = lines[1:]
	}
	// Drop the trailing prompt line.
	for len(lines) > 0 {
		last := strings.TrimRight(lines[len(lines)-1], " \r")
		if last == "" || prompt.MatchString(last) {
			lines = lines[:len(lines)-1]
			continue
		}
		break
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\r\n")
}
