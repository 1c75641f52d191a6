// Package report renders poll results to per-site CSV files and a run
// summary.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/netsweep/netsweep/pkg/poll"
	"github.com/netsweep/netsweep/pkg/system"
)

// Writer drops one CSV per successfully polled site plus a summary CSV into
// Dir, stamped with Date.
type Writer struct {
	Dir  string
	Date time.Time
}

var unsafeFileChars = regexp.MustCompile(`[^\w.-]+`)

// fileStem turns a site identity into a safe filename fragment.
func fileStem(identity string) string {
	return unsafeFileChars.ReplaceAllString(strings.TrimSpace(identity), "_")
}

func (w *Writer) date() string {
	d := w.Date
	if d.IsZero() {
		d = time.Now()
	}
	return d.Format("2006-01-02")
}

// WriteTable writes one site's subscriber table. Returns the file path.
func (w *Writer) WriteTable(identity, systemName string, table system.Table) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.csv", fileStem(identity), strings.ToLower(systemName), w.date())
	path := filepath.Join(w.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(table); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRun writes every successful site table plus the run summary and
// returns the paths written, summary last.
func (w *Writer) WriteRun(agg *poll.Aggregate) ([]string, error) {
	var paths []string
	for _, r := range agg.Results {
		table, ok := r.Payload.(system.Table)
		if !ok || r.Outcome != poll.OutcomeSuccess {
			continue
		}
		p, err := w.WriteTable(r.Device.Identity(), r.Device.System, table)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	p, err := w.writeSummary(agg)
	if err != nil {
		return paths, err
	}
	return append(paths, p), nil
}

func (w *Writer) writeSummary(agg *poll.Aggregate) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("summary_%s.csv", w.date()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary: %w", err)
	}
	cw := csv.NewWriter(f)

	rows := [][]string{{"Site", "System", "Outcome", "Units", "Attempts", "Duration", "Error"}}
	for _, r := range agg.Results {
		units := ""
		if table, ok := r.Payload.(system.Table); ok {
			units = fmt.Sprintf("%d", len(table.Rows()))
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		rows = append(rows, []string{
			r.Device.Identity(),
			r.Device.System,
			r.Outcome.String(),
			units,
			fmt.Sprintf("%d", r.Attempts),
			r.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return "", fmt.Errorf("write summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Summarize renders a one-paragraph run digest for logs and mail bodies.
func Summarize(agg *poll.Aggregate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d sites polled in %s: %d succeeded, %d empty, %d failed",
		len(agg.Results), agg.Elapsed.Round(time.Second),
		agg.Succeeded(), agg.Counts[poll.OutcomeEmpty], agg.Failed())

	var failures []string
	for _, r := range agg.Results {
		if r.Outcome != poll.OutcomeSuccess && r.Outcome != poll.OutcomeEmpty {
			failures = append(failures, fmt.Sprintf("%s (%s)", r.Device.Identity(), r.Outcome))
		}
	}
	if len(failures) > 0 {
		sort.Strings(failures)
		fmt.Fprintf(&b, "\nfailed: %s", strings.Join(failures, ", "))
	}
	return b.String()
}
