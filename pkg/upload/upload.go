// Package upload pushes finished report files to the operations file server
// over SFTP.
package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/netsweep/netsweep/pkg/config"
	"github.com/netsweep/netsweep/pkg/transport"
	"github.com/netsweep/netsweep/pkg/util"
)

// fileStore is the slice of the SFTP session the uploader needs.
type fileStore interface {
	Put(localPath, remotePath string) error
	Remove(remotePath string) error
	Close() error
}

// Uploader places files under {base_dir}/{subdir}/ on the file server.
type Uploader struct {
	cfg   config.FileServer
	creds config.CredentialSource

	// dial is swapped in tests.
	dial func(ctx context.Context, ep transport.Endpoint) (fileStore, error)
}

// New returns an Uploader for the configured file server.
func New(cfg config.FileServer, creds config.CredentialSource) *Uploader {
	if creds == nil {
		creds = config.Resolve
	}
	return &Uploader{
		cfg:   cfg,
		creds: creds,
		dial: func(ctx context.Context, ep transport.Endpoint) (fileStore, error) {
			return transport.DialSFTP(ctx, ep)
		},
	}
}

func (u *Uploader) connect(ctx context.Context) (fileStore, error) {
	pass, err := u.creds(u.cfg.PassEnv)
	if err != nil {
		return nil, fmt.Errorf("file server: %w", err)
	}
	return u.dial(ctx, transport.Endpoint{
		Host:     u.cfg.Host,
		Port:     u.cfg.Port,
		Username: u.cfg.User,
		Password: pass,
	})
}

// remoteJoin builds an absolute remote path from slash-trimmed segments.
func remoteJoin(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + path.Join(kept...)
}

// Put uploads the local file to {base_dir}/{subdir}/{filename} and returns
// the remote path.
func (u *Uploader) Put(ctx context.Context, localPath, subdir string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("local file: %w", err)
	}

	store, err := u.connect(ctx)
	if err != nil {
		return "", err
	}
	defer store.Close()

	remote := remoteJoin(u.cfg.BaseDir, subdir, filepath.Base(localPath))
	if err := store.Put(localPath, remote); err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	return remote, nil
}

// Remove deletes a remote file, best effort. Returns whether it succeeded.
func (u *Uploader) Remove(ctx context.Context, remotePath string) bool {
	store, err := u.connect(ctx)
	if err != nil {
		util.Warnf("file server remove %s: %v", remotePath, err)
		return false
	}
	defer store.Close()

	if err := store.Remove(remotePath); err != nil {
		util.Warnf("file server remove %s: %v", remotePath, err)
		return false
	}
	return true
}

// PutThenRemove uploads and, when deleteAfter is set, immediately deletes
// the remote copy. Used to prove connectivity without leaving artifacts.
func (u *Uploader) PutThenRemove(ctx context.Context, localPath, subdir string, deleteAfter bool) (string, error) {
	remote, err := u.Put(ctx, localPath, subdir)
	if err != nil {
		return "", err
	}
	if deleteAfter {
		u.Remove(ctx, remote)
	}
	return remote, nil
}
