package system

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// DSL interrogates a VDSL shelf over Telnet, one fixed-size port sweep per
// line card.
type DSL struct {
	dev  inventory.Device
	opts Options
}

const dslPortsPerSlot = 24

var descriptionRE = regexp.MustCompile(`Description:\s+(.*)`)

func (s *DSL) Name() string { return "DSL" }

// Collect sweeps ports 1..24 on every slot.
func (s *DSL) Collect(ctx context.Context) (Table, error) {
	user, pass, err := deviceCreds(s.dev, s.opts.creds())
	if err != nil {
		return nil, err
	}

	sess, err := s.opts.dialer().Dial(ctx, transport.Endpoint{
		Host:     s.dev.Addr,
		Port:     s.dev.Port,
		Protocol: transport.ProtocolTelnet,
		Username: user,
		Password: pass,
		Login:    transport.DefaultLoginPrompts,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if _, err := sess.Execute(ctx, "setline 0"); err != nil {
		util.WithSystem(s.dev.Identity(), s.Name()).Debugf("setline 0: %v", err)
	}

	slotsRaw, err := sess.Execute(ctx, "slots")
	if err != nil {
		return nil, err
	}
	slots := slotRE.FindAllStringSubmatch(slotsRaw, -1)
	if len(slots) == 0 {
		return nil, fmt.Errorf("%s: no line cards: %w", s.dev.Identity(), transport.ErrEmptyResult)
	}

	total := len(slots) * dslPortsPerSlot
	table := Table{{"Identity", "Serial/Mac", "Speed", "Status"}}
	n := 0
	for _, m := range slots {
		slot := m[1]
		for port := 1; port <= dslPortsPerSlot; port++ {
			table = append(table, s.collectPort(ctx, sess, slot, port))
			n++
			s.opts.unit(n, total)
		}
	}
	return table, nil
}

// collectPort reads one line's stats and description. A failing port yields
// an Error row under its slot/port coordinate.
func (s *DSL) collectPort(ctx context.Context, sess transport.Session, slot string, port int) []string {
	stats, err := sess.Execute(ctx, fmt.Sprintf("dslstat 1-%s-%d-0/vdsl -v", slot, port))
	if err != nil {
		return []string{fmt.Sprintf("1/%s/%d", slot, port), "", "", "Error"}
	}

	admin := "Inactive"
	rate := ""
	serial := ""
	for _, raw := range strings.Split(stats, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "AdminStatus"):
			if strings.EqualFold(lastDotField(line), "UP") {
				admin = "Active"
			}
		case strings.HasPrefix(line, "DslDownLineRate"):
			if bps, err := strconv.Atoi(lastDotField(line)); err == nil {
				rate = fmt.Sprintf("%d Mbps", int(math.Ceil(float64(bps)/1e6)))
			}
		case strings.HasPrefix(line, "serialNumber"):
			serial = lastDotField(line)
		}
	}

	descRaw, err := sess.Execute(ctx, fmt.Sprintf("port show 1/%s/%d/0/vdsl", slot, port))
	if err != nil {
		return []string{fmt.Sprintf("1/%s/%d", slot, port), "", "", "Error"}
	}
	desc := ""
	if m := descriptionRE.FindStringSubmatch(descRaw); m != nil {
		desc = strings.TrimSpace(m[1])
	}

	return []string{desc, serial, rate, admin}
}

// lastDotField returns the value after the final dot of a "Key....value"
// stats line, trimmed.
func lastDotField(line string) string {
	i := strings.LastIndex(line, ".")
	if i < 0 {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line[i+1:])
}
