package transport

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestEndpointAddr(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{"ssh default port", Endpoint{Host: "10.0.0.1", Protocol: ProtocolSSH}, "10.0.0.1:22"},
		{"telnet default port", Endpoint{Host: "10.0.0.2", Protocol: ProtocolTelnet}, "10.0.0.2:23"},
		{"explicit port wins", Endpoint{Host: "10.0.0.3", Protocol: ProtocolSSH, Port: 2222}, "10.0.0.3:2222"},
		{"no protocol means ssh", Endpoint{Host: "10.0.0.4"}, "10.0.0.4:22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.Addr(); got != tt.want {
				t.Errorf("Addr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"connect", NewConnectError("10.0.0.1", errors.New("refused")), ErrConnect},
		{"timeout", &CommandTimeoutError{Host: "h", Command: "slots", Timeout: time.Second, Cause: errors.New("timer expired")}, ErrCommandTimeout},
		{"closed", &SessionClosedError{Host: "h", Command: "slots", Cause: errors.New("eof")}, ErrSessionClosed},
		{"parse", &ParseError{Host: "h", Details: "no columns"}, ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.want)
			}
		})
	}
}

func TestErrorTaxonomyDistinct(t *testing.T) {
	// A connect failure must never classify as a timeout; the scheduler's
	// retry policy tells them apart.
	err := NewConnectError("10.0.0.1", errors.New("auth failed"))
	if errors.Is(err, ErrCommandTimeout) {
		t.Error("ConnectError should not match ErrCommandTimeout")
	}
}

func TestCleanPromptOutput(t *testing.T) {
	prompt := regexp.MustCompile(`(?m)[\w\-]+[#>]\s*$`)

	tests := []struct {
		name    string
		out     string
		command string
		want    string
	}{
		{
			"echo and prompt stripped",
			"slots\r\n 1: VDSL-48\r\n 2: VDSL-48\r\nshelf> ",
			"slots",
			" 1: VDSL-48\r\n 2: VDSL-48",
		},
		{
			"no echo present",
			" 1: VDSL-48\nshelf> ",
			"slots",
			" 1: VDSL-48",
		},
		{
			"empty response",
			"slots\r\nshelf> ",
			"slots",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanPromptOutput(tt.out, tt.command, prompt); got != tt.want {
				t.Errorf("cleanPromptOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandDeadline(t *testing.T) {
	t.Run("no context deadline", func(t *testing.T) {
		if got := commandDeadline(context.Background(), 5*time.Second); got != 5*time.Second {
			t.Errorf("commandDeadline = %v, want %v", got, 5*time.Second)
		}
	})

	t.Run("closer context deadline wins", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		got := commandDeadline(ctx, 5*time.Second)
		if got > 100*time.Millisecond {
			t.Errorf("commandDeadline = %v, want <= %v", got, 100*time.Millisecond)
		}
	})
}

func TestDialRejectsUnknownProtocol(t *testing.T) {
	_, err := Dial(context.Background(), Endpoint{Host: "10.0.0.1", Protocol: "serial"})
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("Dial with unknown protocol = %v, want ErrConnect", err)
	}
}
