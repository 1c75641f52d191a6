// Package system implements the per-platform device runners. Each runner
// knows how to interrogate one access-network flavor and reduce its state
// to a uniform subscriber table.
package system

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/netsweep/netsweep/pkg/config"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// Table is a rectangular result: row zero is the header, every following
// row is one subscriber unit.
type Table [][]string

// Rows returns the data rows, header excluded.
func (t Table) Rows() [][]string {
	if len(t) == 0 {
		return nil
	}
	return t[1:]
}

// System interrogates one device and produces its subscriber table.
type System interface {
	Name() string
	Collect(ctx context.Context) (Table, error)
}

// Options carries the shared wiring a runner needs beyond its inventory row.
type Options struct {
	// Creds resolves environment keys to secrets. Nil selects
	// config.Resolve.
	Creds config.CredentialSource

	// Dialer opens device sessions. Nil selects the package transport
	// dialer.
	Dialer transport.Dialer

	// ModemUserEnv and ModemPassEnv name the shared CPE credentials used
	// for per-modem interrogation on ETTP sites.
	ModemUserEnv string
	ModemPassEnv string

	// NeighborExclude overrides the interface pattern dropped from
	// neighbor discovery.
	NeighborExclude *regexp.Regexp

	// OnUnit, when set, is called after each subscriber unit inside a
	// site finishes. Site-level progress is the scheduler's job; this is
	// the inner counter.
	OnUnit func(done, total int)
}

func (o Options) creds() config.CredentialSource {
	if o.Creds != nil {
		return o.Creds
	}
	return config.Resolve
}

func (o Options) dialer() transport.Dialer {
	if o.Dialer != nil {
		return o.Dialer
	}
	return transport.DialerFunc(transport.Dial)
}

func (o Options) unit(done, total int) {
	if o.OnUnit != nil {
		o.OnUnit(done, total)
	}
}

// New returns the runner for the device's system tag.
func New(dev inventory.Device, opts Options) (System, error) {
	switch strings.ToLower(strings.TrimSpace(dev.System)) {
	case "ettp":
		return &ETTP{dev: dev, opts: opts}, nil
	case "gpon":
		return &GPON{dev: dev, opts: opts}, nil
	case "dsl":
		return &DSL{dev: dev, opts: opts}, nil
	case "cmts":
		return &CMTS{dev: dev, opts: opts}, nil
	default:
		return nil, fmt.Errorf("%s: system %q: %w", dev.Identity(), dev.System, util.ErrUnknownSystem)
	}
}

// deviceCreds resolves the device's own login from its inventory row.
func deviceCreds(dev inventory.Device, creds config.CredentialSource) (user, pass string, err error) {
	user, err = creds(dev.UserEnv)
	if err != nil {
		return "", "", fmt.Errorf("%s: user: %w", dev.Identity(), err)
	}
	pass, err = creds(dev.PassEnv)
	if err != nil {
		return "", "", fmt.Errorf("%s: password: %w", dev.Identity(), err)
	}
	return user, pass, nil
}
