// Package inventory loads the device inventory and projects it into the
// device set targeted for a run.
package inventory

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// Device is one inventory entry describing a pollable network element.
// Immutable for the duration of a run.
type Device struct {
	Site   string // property/site name; the run-level device identity
	Name   string // device name within the site, "default" if absent
	Addr   string // management IP
	System string // system type tag: ETTP, GPON, DSL, CMTS
	Roles  []string
	Access transport.Protocol // declared transport preference
	Port   int

	// Credentials are referenced by environment key, never stored inline.
	UserEnv string
	PassEnv string

	Enabled bool

	// NeighborSource optionally overrides where neighbor discovery reads
	// from for this row. Empty means the system default. How an override
	// interacts with transport auto-detection is deliberately not decided
	// here; the resolver consumes the value only when set.
	NeighborSource string

	Notes string
}

// HasRole reports whether the device carries the role tag (case-insensitive).
func (d Device) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range d.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity returns the run-level identity key for the device.
func (d Device) Identity() string {
	if d.Name != "" && d.Name != "default" {
		return d.Site + "/" + d.Name
	}
	return d.Site
}

// required inventory columns, lowercase
var requiredColumns = []string{"site", "mgmtip", "system", "roles", "access"}

// Load reads an inventory CSV into Device records, preserving file order.
// Header names are matched case-insensitively and cells are cleaned of BOM,
// whitespace, and enclosing quotes. Rows are kept even when disabled;
// Selector.Apply drops them so a listing can still show the full fleet.
func Load(path string) ([]Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, util.ErrEmptyInventory
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(util.CleanCell(h))] = i
	}

	var v util.ValidationBuilder
	for _, c := range requiredColumns {
		_, ok := cols[c]
		v.Add(ok, fmt.Sprintf("missing column %q", c))
	}
	if err := v.Build(); err != nil {
		return nil, err
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return util.CleanCell(row[i])
	}

	var devices []Device
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		site := cell(row, "site")
		if site == "" {
			continue
		}

		access := transport.Protocol(strings.ToLower(cell(row, "access")))
		if access == "" {
			access = transport.ProtocolSSH
		}

		port := 0
		if p := cell(row, "port"); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil {
				return nil, util.NewConfigError("port", p, "inventory row for "+site)
			}
		}

		name := cell(row, "device")
		if name == "" {
			name = "default"
		}

		enabled := true
		if e := cell(row, "enabled"); e != "" {
			enabled = isTruthy(e)
		}

		roles := util.SplitCommaSeparated(strings.ToLower(cell(row, "roles")))

		devices = append(devices, Device{
			Site:           site,
			Name:           name,
			Addr:           cell(row, "mgmtip"),
			System:         strings.ToUpper(cell(row, "system")),
			Roles:          roles,
			Access:         access,
			Port:           port,
			UserEnv:        cell(row, "userenv"),
			PassEnv:        cell(row, "pwenv"),
			Enabled:        enabled,
			NeighborSource: cell(row, "neighborsource"),
			Notes:          cell(row, "notes"),
		})
	}

	if len(devices) == 0 {
		return nil, util.ErrEmptyInventory
	}
	return devices, nil
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
