package system

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/transport"
)

// CMTS interrogates a DOCSIS headend over Telnet. The running config names
// every provisioned modem; each is then checked for its DHCP-negotiated
// service rate.
type CMTS struct {
	dev  inventory.Device
	opts Options
}

var (
	cableMacRE  = regexp.MustCompile(`([A-Fa-f0-9]{4}\.[A-Fa-f0-9]{4}\.[A-Fa-f0-9]{4})`)
	dhcpSpeedRE = regexp.MustCompile(`(\d+Mbps)`)
)

func (s *CMTS) Name() string { return "CMTS" }

func (s *CMTS) endpoint(user, pass string) transport.Endpoint {
	return transport.Endpoint{
		Host:     s.dev.Addr,
		Port:     s.dev.Port,
		Protocol: transport.ProtocolTelnet,
		Username: user,
		Password: pass,
		Login:    transport.CMTSLoginPrompts,
		EnableMode: &transport.Enable{
			Command: "en",
			Prompt:  regexp.MustCompile(`# $`),
		},
		DisablePager: "terminal length 0",
	}
}

// Collect lists the provisioned modems from the running config, then asks
// the headend for each modem's negotiated rate.
func (s *CMTS) Collect(ctx context.Context) (Table, error) {
	user, pass, err := deviceCreds(s.dev, s.opts.creds())
	if err != nil {
		return nil, err
	}

	sess, err := s.opts.dialer().Dial(ctx, s.endpoint(user, pass))
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	modems, err := s.listModems(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(modems) == 0 {
		return nil, fmt.Errorf("%s: no provisioned modems: %w", s.dev.Identity(), transport.ErrEmptyResult)
	}

	table := Table{{"Identity", "Mac/Serial", "Speed", "Status"}}
	for i, m := range modems {
		table = append(table, s.collectModem(ctx, sess, m))
		s.opts.unit(i+1, len(modems))
	}
	return table, nil
}

type cmtsModem struct {
	MAC      string
	Identity string
}

// listModems scans description lines of the running config for cable-modem
// MACs, sorted by the quoted subscriber description.
func (s *CMTS) listModems(ctx context.Context, sess transport.Session) ([]cmtsModem, error) {
	out, err := sess.Execute(ctx, "show running-config verbose | include description")
	if err != nil {
		return nil, err
	}

	var modems []cmtsModem
	for _, line := range strings.Split(out, "\n") {
		m := cableMacRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := ""
		if parts := strings.Split(line, `"`); len(parts) > 1 {
			desc = strings.TrimSpace(parts[1])
		}
		modems = append(modems, cmtsModem{MAC: m[1], Identity: desc})
	}
	sort.SliceStable(modems, func(i, j int) bool { return modems[i].Identity < modems[j].Identity })
	return modems, nil
}

// collectModem reads one modem's DHCP line. A modem the headend will not
// answer for degrades to a No Data row.
func (s *CMTS) collectModem(ctx context.Context, sess transport.Session, m cmtsModem) []string {
	out, err := sess.Execute(ctx, fmt.Sprintf("show cable modem %s verbose | include DHCPv4", m.MAC))
	if err != nil {
		return []string{m.Identity, "No Data", "No Data", "No Data"}
	}
	speed := ""
	if sm := dhcpSpeedRE.FindStringSubmatch(out); sm != nil {
		speed = sm[1]
	}
	status := "Inactive"
	if speed != "" {
		status = "Active"
	}
	return []string{m.Identity, m.MAC, speed, status}
}
