package transport

import (
	"context"
	"io"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
)

// FileSession is an SFTP connection for file transfer alongside (or instead
// of) a command session. Close is idempotent.
type FileSession struct {
	client    *sftp.Client
	sshSess   Session // owning SSH connection when dialed standalone
	host      string
	closeOnce sync.Once
	closeErr  error
}

// DialSFTP opens an SSH connection to the endpoint and starts an SFTP
// subsystem on it.
func DialSFTP(ctx context.Context, ep Endpoint) (*FileSession, error) {
	ep.Protocol = ProtocolSSH
	ep.Prompt = nil

	sess, err := DialSSH(ctx, ep)
	if err != nil {
		return nil, err
	}
	exec, ok := sess.(*sshExecSession)
	if !ok {
		sess.Close()
		return nil, NewConnectError(ep.Host, ErrConnect)
	}

	client, err := sftp.NewClient(exec.client)
	if err != nil {
		sess.Close()
		return nil, NewConnectError(ep.Host, err)
	}

	return &FileSession{client: client, sshSess: sess, host: ep.Host}, nil
}

// Put uploads a local file to remotePath, creating missing remote
// directories first.
func (f *FileSession) Put(localPath, remotePath string) error {
	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := f.client.MkdirAll(dir); err != nil {
			return &SessionClosedError{Host: f.host, Command: "mkdir " + dir, Cause: err}
		}
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := f.client.Create(remotePath)
	if err != nil {
		return &SessionClosedError{Host: f.host, Command: "put " + remotePath, Cause: err}
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Get downloads remotePath into localPath.
func (f *FileSession) Get(remotePath, localPath string) error {
	src, err := f.client.Open(remotePath)
	if err != nil {
		return &SessionClosedError{Host: f.host, Command: "get " + remotePath, Cause: err}
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// List returns the file names in a remote directory.
func (f *FileSession) List(remoteDir string) ([]string, error) {
	infos, err := f.client.ReadDir(remoteDir)
	if err != nil {
		return nil, &SessionClosedError{Host: f.host, Command: "ls " + remoteDir, Cause: err}
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, nil
}

// Remove deletes a remote file.
func (f *FileSession) Remove(remotePath string) error {
	return f.client.Remove(remotePath)
}

// Close shuts down the SFTP subsystem and the SSH connection under it.
func (f *FileSession) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.client.Close()
		if f.sshSess != nil {
			if err := f.sshSess.Close(); f.closeErr == nil {
				f.closeErr = err
			}
		}
	})
	return f.closeErr
}
