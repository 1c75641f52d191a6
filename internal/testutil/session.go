// Package testutil provides scripted device sessions for exercising runners
// and schedulers without network access.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/netsweep/netsweep/pkg/transport"
)

// ScriptedSession replays canned output per command. Commands without a
// script entry fail loudly so a test never silently passes on a command it
// forgot to stage.
type ScriptedSession struct {
	// Outputs maps a command to its reply.
	Outputs map[string]string

	// Errs maps a command to a forced failure, checked before Outputs.
	Errs map[string]error

	mu     sync.Mutex
	calls  []string
	closed bool
}

// Execute replays the scripted reply for cmd.
func (s *ScriptedSession) Execute(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cmd)
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return "", &transport.SessionClosedError{Host: "scripted"}
	}
	if err, ok := s.Errs[cmd]; ok {
		return "", err
	}
	if out, ok := s.Outputs[cmd]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unscripted command %q", cmd)
}

// Close marks the session closed. Always succeeds.
func (s *ScriptedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Calls returns the commands executed so far, in order.
func (s *ScriptedSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Closed reports whether Close has been called.
func (s *ScriptedSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// HostDialer hands out scripted sessions by host and records every dial.
type HostDialer struct {
	// Sessions maps a host to its scripted session.
	Sessions map[string]*ScriptedSession

	// Errs maps a host to a forced dial failure.
	Errs map[string]error

	mu     sync.Mutex
	dialed []transport.Endpoint
}

// Dial returns the session staged for ep.Host.
func (d *HostDialer) Dial(ctx context.Context, ep transport.Endpoint) (transport.Session, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, ep)
	d.mu.Unlock()

	if err, ok := d.Errs[ep.Host]; ok {
		return nil, err
	}
	if sess, ok := d.Sessions[ep.Host]; ok {
		return sess, nil
	}
	return nil, transport.NewConnectError(ep.Host, fmt.Errorf("no session staged"))
}

// Dialed returns every endpoint dialed so far, in order.
func (d *HostDialer) Dialed() []transport.Endpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]transport.Endpoint(nil), d.dialed...)
}

// StaticCreds returns a credential source answering every key from the map,
// failing on unknown keys.
func StaticCreds(m map[string]string) func(key string) (string, error) {
	return func(key string) (string, error) {
		if v, ok := m[key]; ok {
			return v, nil
		}
		return "", fmt.Errorf("no credential staged for %q", key)
	}
}
