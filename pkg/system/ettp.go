package system

import (
	"context"
	"fmt"
	"strings"

	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/neighbor"
	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// ETTP interrogates a MikroTik-routed ethernet-to-the-premises site: the
// site router names the subscriber modems, then each modem is asked for its
// own queue configuration.
type ETTP struct {
	dev  inventory.Device
	opts Options
}

// modemUnit is one subscriber aggregated from the router's neighbor table.
// The three per-unit interfaces (<id>_Modem, <id>_INT, <id>_Public) collapse
// into one row keyed by identity and MAC.
type modemUnit struct {
	Identity string
	MAC      string
	ModemIP  string
	IntIP    string
	PublicIP string
}

func (s *ETTP) Name() string { return "ETTP" }

// Collect resolves the site's modems and interrogates each one.
func (s *ETTP) Collect(ctx context.Context) (Table, error) {
	user, pass, err := deviceCreds(s.dev, s.opts.creds())
	if err != nil {
		return nil, err
	}

	router, err := s.opts.dialer().Dial(ctx, transport.Endpoint{
		Host:     s.dev.Addr,
		Port:     s.dev.Port,
		Protocol: transport.ProtocolSSH,
		Username: user,
		Password: pass,
	})
	if err != nil {
		return nil, err
	}

	resolver := &neighbor.Resolver{
		Primary:  &neighbor.ScriptSource{Session: router, Command: s.dev.NeighborSource},
		Fallback: &neighbor.TableSource{Session: router},
		Exclude:  s.opts.NeighborExclude,
		Device:   s.dev.Identity(),
	}
	records, err := resolver.Resolve(ctx)
	router.Close()
	if err != nil {
		return nil, err
	}

	units := groupUnits(records)
	if len(units) == 0 {
		return nil, fmt.Errorf("%s: no modems discovered: %w", s.dev.Identity(), transport.ErrEmptyResult)
	}

	muser, mpass, err := s.modemCreds()
	if err != nil {
		return nil, err
	}

	table := Table{{"Identity", "Mac/Serial", "Speed", "Status"}}
	for i, unit := range units {
		table = append(table, s.collectUnit(ctx, unit, muser, mpass))
		s.opts.unit(i+1, len(units))
	}
	return table, nil
}

func (s *ETTP) modemCreds() (user, pass string, err error) {
	userEnv := s.opts.ModemUserEnv
	if userEnv == "" {
		userEnv = "USER1"
	}
	passEnv := s.opts.ModemPassEnv
	if passEnv == "" {
		passEnv = "PW3"
	}
	user, err = s.opts.creds()(userEnv)
	if err != nil {
		return "", "", err
	}
	pass, err = s.opts.creds()(passEnv)
	if err != nil {
		return "", "", err
	}
	return user, pass, nil
}

// collectUnit produces the row for one modem. Connection trouble with an
// individual modem degrades the row, never the site.
func (s *ETTP) collectUnit(ctx context.Context, unit modemUnit, user, pass string) []string {
	if unit.ModemIP == "" {
		return []string{unit.Identity, unit.MAC, "No Data", "No Modem IP"}
	}
	if unit.IntIP == "" && unit.PublicIP == "" {
		return []string{unit.Identity, unit.MAC, "No Data", "Inactive"}
	}

	rate, err := s.modemRate(ctx, unit, user, pass)
	if err != nil {
		util.WithSystem(s.dev.Identity(), s.Name()).Debugf("modem %s (%s): %v", unit.Identity, unit.ModemIP, err)
		return []string{unit.Identity, unit.MAC, "No Data", "Could Not Connect"}
	}
	return []string{unit.Identity, unit.MAC, rate, "Active"}
}

func (s *ETTP) modemRate(ctx context.Context, unit modemUnit, user, pass string) (string, error) {
	sess, err := s.opts.dialer().Dial(ctx, transport.Endpoint{
		Host:     unit.ModemIP,
		Protocol: transport.ProtocolSSH,
		Username: user,
		Password: pass,
	})
	if err != nil {
		return "", err
	}
	defer sess.Close()

	simple, err := sess.Execute(ctx, "/queue simple export")
	if err != nil {
		return "", err
	}
	verbose, err := sess.Execute(ctx, "/queue simple export verbose")
	if err != nil {
		return "", err
	}
	ethernet, err := sess.Execute(ctx, "/interface ethernet export")
	if err != nil {
		return "", err
	}

	// A disabled Internet queue means the subscriber is unshaped.
	rate := "1000 Mbps"
	if !InternetQueueDisabled(simple) {
		for _, rule := range ParseQueueExport(joinContinuations(verbose)) {
			if r := RateFromRule(rule); r != "" {
				rate = r
				break
			}
		}
	}

	// The negotiated link speed wins over the queue when the port reports
	// one; the marker flags it as hardware-derived.
	if hw := HardwareSpeed(ethernet); hw != "" {
		rate = hw + "*"
	}
	return rate, nil
}

// groupUnits merges per-interface neighbor records into modem units. The
// interface suffix says which address the record carries; first-seen order
// is preserved.
func groupUnits(records []neighbor.Record) []modemUnit {
	index := make(map[string]int)
	var units []modemUnit
	for _, rec := range records {
		key := rec.Identity + "\x00" + rec.MAC
		i, ok := index[key]
		if !ok {
			i = len(units)
			index[key] = i
			units = append(units, modemUnit{Identity: rec.Identity, MAC: rec.MAC})
		}
		switch {
		case strings.Contains(rec.Interface, "_Modem"):
			units[i].ModemIP = rec.IP
		case strings.Contains(rec.Interface, "_INT"):
			units[i].IntIP = rec.IP
		case strings.Contains(rec.Interface, "_Public"):
			units[i].PublicIP = rec.IP
		}
	}
	return units
}
