package system

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// GPON interrogates a DZS-style optical shelf over Telnet: every ONU with a
// port description is looked up for its serial and its GEM traffic profiles.
type GPON struct {
	dev  inventory.Device
	opts Options
}

const gponPortsPerSlot = 16

var (
	slotRE = regexp.MustCompile(`(?m)^\s*(\d+):`)
	onuRE  = regexp.MustCompile(`^(\d+(?:-\d+){3})/\S+\s+(\S+)`)
	fsanRE = regexp.MustCompile(`([A-Z]{4}\s?[A-Za-z0-9]{6,12})`)
	idRE   = regexp.MustCompile(`^\d+(?:-\d+){3}$`)
)

// gemHeaderTokens are the column-header words of the gemports listing.
var gemHeaderTokens = map[string]bool{"onu": true, "gpononu": true, "fixed": true, "traf": true}

type gponPort struct {
	Iface string // x/y/z
	Desc  string
}

func (s *GPON) Name() string { return "GPON" }

// Collect walks every populated ONU port on the shelf.
func (s *GPON) Collect(ctx context.Context) (Table, error) {
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

	// Not all firmware revisions support line-mode; ignore a refusal.
	if _, err := sess.Execute(ctx, "setline 0"); err != nil {
		util.WithSystem(s.dev.Identity(), s.Name()).Debugf("setline 0: %v", err)
	}

	ports, err := s.discoverPorts(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("%s: no described ONU ports: %w", s.dev.Identity(), transport.ErrEmptyResult)
	}

	table := Table{{"Identity", "Serial/Mac", "Speed", "Status", "Notes"}}
	for i, port := range ports {
		table = append(table, s.collectPort(ctx, sess, port))
		s.opts.unit(i+1, len(ports))
	}
	return table, nil
}

// discoverPorts lists the shelf's slots and keeps every ONU whose port
// description is set to something other than "-".
func (s *GPON) discoverPorts(ctx context.Context, sess transport.Session) ([]gponPort, error) {
	slotsRaw, err := sess.Execute(ctx, "slots")
	if err != nil {
		return nil, err
	}

	var ports []gponPort
	for _, m := range slotRE.FindAllStringSubmatch(slotsRaw, -1) {
		slot := m[1]
		for i := 1; i <= gponPortsPerSlot; i++ {
			out, err := sess.Execute(ctx, fmt.Sprintf("port description list 1/%s/%d", slot, i))
			if err != nil {
				return nil, err
			}
			for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
				pm := onuRE.FindStringSubmatch(strings.TrimRight(line, "\r"))
				if pm == nil || pm[2] == "-" {
					continue
				}
				// "1-9-4-289" keeps its last three segments as 9/4/289.
				segs := strings.Split(pm[1], "-")
				ports = append(ports, gponPort{
					Iface: strings.Join(segs[len(segs)-3:], "/"),
					Desc:  pm[2],
				})
			}
		}
	}
	return ports, nil
}

// collectPort builds the row for one ONU. A failed lookup degrades the cell,
// not the shelf.
func (s *GPON) collectPort(ctx context.Context, sess transport.Session, port gponPort) []string {
	onuText, err := sess.Execute(ctx, "onu show "+port.Iface)
	if err != nil {
		onuText = ""
	}
	fsan := ""
	if m := fsanRE.FindStringSubmatch(onuText); m != nil {
		fsan = strings.TrimSpace(m[1])
	}

	gemText, err := sess.Execute(ctx, fmt.Sprintf("gpononu gemports 1/%s/gpononu", port.Iface))
	if err != nil {
		gemText = ""
	}

	speed, note := pickSpeed(parseTrafficProfiles(gemText))
	status := "Inactive"
	if speed != "" {
		status = "Active"
	} else {
		speed = "INT Disabled"
	}
	return []string{port.Desc, fsan, speed, status, note}
}

// parseTrafficProfiles pulls every "traf prof" integer out of a gemports
// listing. Long rows carry ONU and GEM ids in one line with the profile in
// column four; continuation rows shift it to column three.
func parseTrafficProfiles(text string) []int {
	var vals []int
	for _, raw := range strings.Split(text, "\n") {
		parts := strings.Fields(raw)
		if len(parts) == 0 {
			continue
		}
		head := strings.ToLower(parts[0])
		if strings.HasPrefix(head, "=") || gemHeaderTokens[head] || strings.HasSuffix(head, ">") {
			continue
		}
		found := false
		for _, p := range parts {
			if idRE.MatchString(p) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		profIndex := 2
		if len(parts) == 13 {
			profIndex = 3
		}
		if len(parts) > profIndex {
			if v, err := strconv.Atoi(parts[profIndex]); err == nil {
				vals = append(vals, v)
			}
		}
	}
	return vals
}

// pickSpeed reduces the profile values to one rate. Sentinel profiles
// (0, 1, 512) carry no rate; when several real profiles remain the lowest
// wins, with a note naming the rest.
func pickSpeed(values []int) (speed, note string) {
	seen := make(map[int]bool)
	var valid []int
	for _, v := range values {
		if v > 1 && v != 512 && !seen[v] {
			seen[v] = true
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return "", ""
	}
	sort.Ints(valid)

	low := valid[0]
	if len(valid) > 1 {
		if seen[1000] && low != 1000 {
			note = "Camera profile present"
		} else {
			strs := make([]string, len(valid))
			for i, v := range valid {
				strs[i] = strconv.Itoa(v)
			}
			note = "Multiple profiles: " + strings.Join(strs, ", ")
		}
	}
	return fmt.Sprintf("%d Mbps", low), note
}
