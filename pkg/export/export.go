// Package export captures router configuration exports and call-hash logs,
// bundling a day's run into one zip for delivery.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/netsweep/netsweep/pkg/config"
	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// filePuller is the slice of the SFTP session the exporter needs.
type filePuller interface {
	List(remoteDir string) ([]string, error)
	Get(remotePath, localPath string) error
	Close() error
}

var (
	logFileRE  = regexp.MustCompile(`^log\.(\d+)\.txt$`)
	unsafeName = regexp.MustCompile(`[^\w.-]+`)
)

// Exporter fetches one router's "/export" text and its rotated hash logs
// into Dir. ExportOne satisfies the scheduler's task signature, so a fleet
// export is just a poll run.
type Exporter struct {
	Dir   string
	Date  time.Time
	Creds config.CredentialSource

	// Dialer opens command sessions; DialFiles opens file sessions. Both
	// default to the package transport and are swapped in tests.
	Dialer    transport.Dialer
	DialFiles func(ctx context.Context, ep transport.Endpoint) (filePuller, error)
}

func (e *Exporter) dialer() transport.Dialer {
	if e.Dialer != nil {
		return e.Dialer
	}
	return transport.DialerFunc(transport.Dial)
}

func (e *Exporter) dialFiles(ctx context.Context, ep transport.Endpoint) (filePuller, error) {
	if e.DialFiles != nil {
		return e.DialFiles(ctx, ep)
	}
	return transport.DialSFTP(ctx, ep)
}

func (e *Exporter) creds() config.CredentialSource {
	if e.Creds != nil {
		return e.Creds
	}
	return config.Resolve
}

func (e *Exporter) date() string {
	d := e.Date
	if d.IsZero() {
		d = time.Now()
	}
	return d.Format("2006-01-02")
}

func stem(identity string) string {
	return unsafeName.ReplaceAllString(strings.TrimSpace(identity), "_")
}

// ExportOne captures the device's configuration export and drains its hash
// logs. Returns the local paths written.
func (e *Exporter) ExportOne(ctx context.Context, dev inventory.Device) (interface{}, error) {
	user, err := e.creds()(dev.UserEnv)
	if err != nil {
		return nil, err
	}
	pass, err := e.creds()(dev.PassEnv)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}

	ep := transport.Endpoint{
		Host:     dev.Addr,
		Port:     dev.Port,
		Protocol: transport.ProtocolSSH,
		Username: user,
		Password: pass,
	}

	sess, err := e.dialer().Dial(ctx, ep)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	out, err := sess.Execute(ctx, "/export")
	if err != nil {
		return nil, err
	}

	name := stem(dev.Identity())
	exportPath := filepath.Join(e.Dir, fmt.Sprintf("%s_export_%s.txt", name, e.date()))
	if err := os.WriteFile(exportPath, []byte(out), 0o644); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	paths := []string{exportPath}

	logs, err := e.drainLogs(ctx, ep, sess, name)
	if err != nil {
		// The export itself succeeded; a log-fetch failure is reported but
		// does not discard it.
		util.WithDevice(dev.Identity()).Warnf("hash log fetch: %v", err)
		return paths, nil
	}
	return append(paths, logs...), nil
}

// drainLogs copies every rotated log.N.txt off the router in index order,
// removing each remote copy after a successful fetch.
func (e *Exporter) drainLogs(ctx context.Context, ep transport.Endpoint, sess transport.Session, name string) ([]string, error) {
	files, err := e.dialFiles(ctx, ep)
	if err != nil {
		return nil, err
	}
	defer files.Close()

	names, err := files.List(".")
	if err != nil {
		return nil, err
	}
	var indexes []int
	for _, n := range names {
		if m := logFileRE.FindStringSubmatch(n); m != nil {
			i, _ := strconv.Atoi(m[1])
			indexes = append(indexes, i)
		}
	}
	sort.Ints(indexes)

	var paths []string
	for _, i := range indexes {
		remote := fmt.Sprintf("log.%d.txt", i)
		local := filepath.Join(e.Dir, fmt.Sprintf("%s_hash_log_%d_%s.csv", name, i, e.date()))
		if err := files.Get(remote, local); err != nil {
			return paths, err
		}
		paths = append(paths, local)

		// Remote cleanup is best effort; a re-fetch tomorrow is harmless.
		cmd := fmt.Sprintf("/file remove [ find name=%s ]", remote)
		if _, err := sess.Execute(ctx, cmd); err != nil {
			util.Debugf("remove %s: %v", remote, err)
		}
	}
	return paths, nil
}
