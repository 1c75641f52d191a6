package system

import (
	"regexp"
	"strings"

	"github.com/netsweep/netsweep/pkg/util"
)

// QueueRule is one parsed "add ..." rule from a RouterOS queue export,
// key=value pairs plus bare flags (stored with an empty value).
type QueueRule map[string]string

var (
	continuationRE = regexp.MustCompile(`\\\r?\n\s*`)
	queueHeadRE    = regexp.MustCompile(`^(\d+)([MKmk])?$`)
	maxLimitRE     = regexp.MustCompile(`^(\d+)([MKmk])$`)
	addLineRE      = regexp.MustCompile(`(?m)^\s*add\b[^\n]*`)
	internetNameRE = regexp.MustCompile(`\bname="?Internet"?\b`)
	internetTgtRE  = regexp.MustCompile(`\btarget=Bridge_Internet\b`)
	disabledRE     = regexp.MustCompile(`\bdisabled=(yes|no)\b`)
	hwSpeedRE      = regexp.MustCompile(`\bspeed=(\d+Mbps)\b`)
)

// joinContinuations collapses backslash-continued lines, the way RouterOS
// wraps long export rules.
func joinContinuations(text string) string {
	return continuationRE.ReplaceAllString(strings.TrimSpace(text), " ")
}

// ParseQueueExport parses "/queue simple export verbose" output into one
// QueueRule per "add" statement. Command echoes and path lines are skipped.
func ParseQueueExport(text string) []QueueRule {
	var rules []QueueRule
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		rule := QueueRule{}
		for _, tok := range util.SplitFields(strings.Join(cur, " ")) {
			key, value, ok := strings.Cut(tok, "=")
			if ok {
				rule[key] = util.StripQuotes(value)
			} else {
				rule[tok] = ""
			}
		}
		rules = append(rules, rule)
		cur = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "" || strings.HasPrefix(line, "/"):
			continue
		case strings.HasPrefix(line, "add "):
			flush()
			cur = append(cur, strings.TrimSpace(line[4:]))
		default:
			if len(cur) > 0 {
				cur = append(cur, line)
			}
		}
	}
	flush()
	return rules
}

// RateFromRule extracts the subscriber rate from one queue rule. Disabled
// rules yield "". The queue-type name encodes the rate ("50M_Default/..."),
// falling back to max-limit when absent.
func RateFromRule(rule QueueRule) string {
	switch strings.ToLower(rule["disabled"]) {
	case "yes", "true", "on", "1":
		return ""
	}

	if qt := rule["queue"]; qt != "" {
		left, _, _ := strings.Cut(qt, "/")
		head, _, _ := strings.Cut(left, "_")
		if m := queueHeadRE.FindStringSubmatch(head); m != nil {
			if m[2] == "" || strings.EqualFold(m[2], "m") {
				return m[1] + " Mbps"
			}
			return m[1] + " Kbps"
		}
	}

	if ml := rule["max-limit"]; ml != "" {
		left, _, _ := strings.Cut(ml, "/")
		if m := maxLimitRE.FindStringSubmatch(left); m != nil {
			if strings.EqualFold(m[2], "m") {
				return m[1] + " Mbps"
			}
			return m[1] + " Kbps"
		}
	}
	return ""
}

// InternetQueueDisabled reports whether the subscriber's Internet queue is
// administratively disabled in a "/queue simple export". The rule is found
// by name=Internet, or failing that by target=Bridge_Internet.
func InternetQueueDisabled(export string) bool {
	text := joinContinuations(export)
	var byName, byTarget []string
	for _, line := range addLineRE.FindAllString(text, -1) {
		switch {
		case internetNameRE.MatchString(line):
			byName = append(byName, line)
		case internetTgtRE.MatchString(line):
			byTarget = append(byTarget, line)
		}
	}
	candidates := append(byName, byTarget...)
	if len(candidates) == 0 {
		return false
	}
	m := disabledRE.FindStringSubmatch(candidates[0])
	return m != nil && m[1] == "yes"
}

// HardwareSpeed returns the negotiated link speed from an
// "/interface ethernet export", empty when the export does not report one.
func HardwareSpeed(export string) string {
	m := hwSpeedRE.FindStringSubmatch(export)
	if m == nil {
		return ""
	}
	return m[1]
}
