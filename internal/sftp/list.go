package sftp

import (
	"io"
	"os"
	"syscall"
	"time"

	pkgsftp "github.com/pkg/sftp"

	"github.com/websoft9/honeyshell/internal/fileutil"
)

// Filelist implements directory listing, stat/lstat, and readlink. All
// three return an os.FileInfo slice via the same ListerAt adapter — this is
// the shape the real library's request-server expects for "List", "Stat",
// and "Readlink" methods alike.
func (h *Handler) Filelist(r *pkgsftp.Request) (pkgsftp.ListerAt, error) {
	switch r.Method {
	case "List":
		path, err := h.resolve(r.Filepath)
		if err != nil {
			return nil, pkgsftp.ErrSSHFxPermissionDenied
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, translateErrno(err)
		}
		infos := make([]os.FileInfo, 0, len(entries))
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			infos = append(infos, info)
		}
		return listerAt(infos), nil

	case "Stat":
		path, err := h.resolve(r.Filepath)
		if err != nil {
			return nil, pkgsftp.ErrSSHFxPermissionDenied
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, translateErrno(err)
		}
		return listerAt([]os.FileInfo{info}), nil

	case "Lstat":
		path, err := h.resolve(r.Filepath)
		if err != nil {
			return nil, pkgsftp.ErrSSHFxPermissionDenied
		}
		info, err := os.Lstat(path)
		if err != nil {
			return nil, translateErrno(err)
		}
		return listerAt([]os.FileInfo{info}), nil

	case "Readlink":
		path, err := h.resolve(r.Filepath)
		if err != nil {
			return nil, pkgsftp.ErrSSHFxPermissionDenied
		}
		target, err := os.Readlink(path)
		if err != nil {
			return nil, translateErrno(err)
		}
		// Strip the session root so the attacker only ever sees virtual
		// paths, even for links created pointing at an absolute host path.
		virtual := fileutil.StripRoot(h.root, target)
		return listerAt([]os.FileInfo{linkTargetInfo(virtual)}), nil

	default:
		return nil, pkgsftp.ErrSSHFxOpUnsupported
	}
}

// listerAt adapts a plain slice of os.FileInfo to pkgsftp.ListerAt's
// paginated interface.
type listerAt []os.FileInfo

func (l listerAt) ListAt(dst []os.FileInfo, offset int64) (int, error) {
	if offset >= int64(len(l)) {
		return 0, io.EOF
	}
	n := copy(dst, l[offset:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// linkTargetInfo is a minimal os.FileInfo whose Name is a readlink target,
// the convention pkg/sftp's request-server uses to report Readlink results.
type linkTargetInfo string

func (l linkTargetInfo) Name() string       { return string(l) }
func (l linkTargetInfo) Size() int64        { return 0 }
func (l linkTargetInfo) Mode() os.FileMode  { return os.ModeSymlink }
func (l linkTargetInfo) ModTime() time.Time { return time.Time{} }
func (l linkTargetInfo) IsDir() bool        { return false }
func (l linkTargetInfo) Sys() interface{}   { return &syscall.Stat_t{} }
