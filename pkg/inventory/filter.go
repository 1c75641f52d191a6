package inventory

import "strings"

// Selector is the role/system predicate projecting an inventory into the
// device set a run actually targets. The zero value selects every enabled
// device.
type Selector struct {
	// Include lists role tags; a device is a candidate when it carries at
	// least one of them. Empty means all devices are candidates.
	Include []string
	// Exclude lists role tags that remove a device outright. Exclude wins
	// over Include on conflict.
	Exclude []string
	// Systems optionally restricts to system type tags (ETTP, GPON, ...).
	Systems []string
}

// Matches reports whether a single device satisfies the selector. Disabled
// devices never match.
func (s Selector) Matches(d Device) bool {
	if !d.Enabled {
		return false
	}

	for _, role := range s.Exclude {
		if d.HasRole(role) {
			return false
		}
	}

	if len(s.Systems) > 0 && !containsFold(s.Systems, d.System) {
		return false
	}

	if len(s.Include) == 0 {
		return true
	}
	for _, role := range s.Include {
		if d.HasRole(role) {
			return true
		}
	}
	return false
}

// Apply filters devices, preserving inventory order so runs are
// reproducible. Pure function: no I/O, no mutation of the input.
func (s Selector) Apply(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if s.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
