// Package sftp is the SFTP Subsystem: a virtual filesystem rooted at a
// per-session scratch directory, built on github.com/pkg/sftp's
// request-server API rather than its passthrough server, since only the
// request-server API gives us an interception point for write capture.
package sftp

import (
	"io"
	"os"
	"path/filepath"
	"time"

	pkgsftp "github.com/pkg/sftp"

	"github.com/websoft9/honeyshell/internal/fileutil"
	"github.com/websoft9/honeyshell/internal/persistence"
)

// Handler implements pkgsftp's FileGet/FilePut/FileCmd/FileList against a
// single confined root directory.
type Handler struct {
	root      string
	sessionID string
	gw        persistence.Gateway
}

func NewHandler(root, sessionID string, gw persistence.Gateway) *Handler {
	return &Handler{root: root, sessionID: sessionID, gw: gw}
}

// Handlers returns the pkg/sftp Handlers bundle for this session root.
func (h *Handler) Handlers() pkgsftp.Handlers {
	return pkgsftp.Handlers{
		FileGet:  h,
		FilePut:  h,
		FileCmd:  h,
		FileList: h,
	}
}

func (h *Handler) resolve(virtual string) (string, error) {
	return fileutil.ResolveSafePath(h.root, virtual)
}

// Fileread opens a path for reading. *os.File satisfies io.ReaderAt, giving
// the pread semantics §4.4 requires.
func (h *Handler) Fileread(r *pkgsftp.Request) (io.ReaderAt, error) {
	path, err := h.resolve(r.Filepath)
	if err != nil {
		return nil, pkgsftp.ErrSSHFxPermissionDenied
	}
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, translateErrno(err)
	}
	return f, nil
}

// Filewrite opens a path for writing. Since pkg/sftp only invokes Filewrite
// for handles opened with a write flag, every handle returned here enables
// capture — matching "SFTP open with only read flags does not capture".
func (h *Handler) Filewrite(r *pkgsftp.Request) (io.WriterAt, error) {
	path, err := h.resolve(r.Filepath)
	if err != nil {
		return nil, pkgsftp.ErrSSHFxPermissionDenied
	}

	flags := os.O_WRONLY | os.O_CREATE
	pflags := r.Pflags()
	if pflags.Append {
		flags |= os.O_APPEND
	}
	if pflags.Trunc {
		flags |= os.O_TRUNC
	}
	if pflags.Excl {
		flags |= os.O_EXCL
	}

	mode := os.FileMode(0o666)
	if attrs, err := r.Attributes(); err == nil && attrs.Flags&pkgsftp.AttrFlagsPermissions != 0 {
		mode = os.FileMode(attrs.Mode()) & os.ModePerm
	}

	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return nil, translateErrno(err)
	}
	return &uploadHandle{
		file:      f,
		filename:  filepath.Base(path),
		sessionID: h.sessionID,
		gw:        h.gw,
	}, nil
}

// uploadHandle captures the stream of writes in-memory (offset-oblivious
// append, not a reconstructed file view — §4.4's documented limitation) and
// hands the buffer to the persistence gateway on close if it ever saw a
// byte.
type uploadHandle struct {
	file      *os.File
	filename  string
	sessionID string
	gw        persistence.Gateway

	buf []byte
}

func (u *uploadHandle) WriteAt(p []byte, off int64) (int, error) {
	n, err := u.file.WriteAt(p, off)
	if n > 0 {
		u.buf = append(u.buf, p[:n]...)
	}
	return n, err
}

func (u *uploadHandle) Close() error {
	err := u.file.Close()
	if len(u.buf) > 0 {
		u.gw.RecordUpload(u.sessionID, u.filename, u.buf, time.Now())
	}
	return err
}
