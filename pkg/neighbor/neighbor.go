// Package neighbor discovers the devices adjacent to a router. Discovery
// prefers a vendor script already present on the device and falls back to
// the protocol-native neighbor table only when the script yields nothing.
package neighbor

import (
	"context"
	"regexp"
	"strings"

	"github.com/netsweep/netsweep/pkg/util"
)

// Record is one discovered adjacent device, post-normalization: identity
// cleaned of enclosing quotes, excluded interfaces already dropped.
type Record struct {
	Identity  string
	Interface string
	IP        string
	MAC       string
}

// DefaultExclude drops access-point sub-interfaces, which carry the same
// identity as the parent device and would double-count it.
var DefaultExclude = regexp.MustCompile(`_AP$`)

// Source produces raw neighbor records from one data source.
type Source interface {
	// Fetch returns the raw (pre-normalization) records. An empty slice is
	// a valid answer, not an error.
	Fetch(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Record, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]Record, error) { return f(ctx) }

// Resolver tries Primary and, only when it yields zero records, Fallback.
// A transport error in Primary counts as an empty result and still triggers
// the fallback; it only becomes the resolver's error when Fallback also
// fails. Fallback's result stands even when empty — there is no third level.
type Resolver struct {
	Primary  Source
	Fallback Source

	// Exclude drops records whose interface matches. Nil selects
	// DefaultExclude.
	Exclude *regexp.Regexp

	// Device names the device in logs.
	Device string
}

// Resolve runs the two-state machine and returns the normalized records
// from whichever source produced them.
func (r *Resolver) Resolve(ctx context.Context) ([]Record, error) {
	records, err := r.Primary.Fetch(ctx)
	if err != nil {
		util.WithDevice(r.Device).Debugf("primary neighbor source failed, falling back: %v", err)
		records = nil
	}
	if len(records) > 0 {
		return Normalize(records, r.exclude()), nil
	}

	if r.Fallback == nil {
		return nil, err
	}

	records, ferr := r.Fallback.Fetch(ctx)
	if ferr != nil {
		return nil, ferr
	}
	return Normalize(records, r.exclude()), nil
}

func (r *Resolver) exclude() *regexp.Regexp {
	if r.Exclude != nil {
		return r.Exclude
	}
	return DefaultExclude
}

// Normalize strips enclosing quotes from identities and drops records whose
// interface matches the exclusion pattern. Applied uniformly regardless of
// which source produced the data, and idempotent.
func Normalize(records []Record, exclude *regexp.Regexp) []Record {
	if exclude == nil {
		exclude = DefaultExclude
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if exclude.MatchString(rec.Interface) {
			continue
		}
		rec.Identity = util.StripQuotes(strings.TrimSpace(rec.Identity))
		out = append(out, rec)
	}
	return out
}
