package sftp

import (
	"os"

	pkgsftp "github.com/pkg/sftp"
)

// Filecmd implements remove/rename/mkdir/rmdir/chattr/symlink, all as plain
// host calls on mapped paths (§4.4).
func (h *Handler) Filecmd(r *pkgsftp.Request) error {
	path, err := h.resolve(r.Filepath)
	if err != nil {
		return pkgsftp.ErrSSHFxPermissionDenied
	}

	switch r.Method {
	case "Setstat":
		attrs, err := r.Attributes()
		if err != nil {
			return translateErrno(err)
		}
		if attrs.Flags&pkgsftp.AttrFlagsPermissions != 0 {
			if err := os.Chmod(path, os.FileMode(attrs.Mode())&os.ModePerm); err != nil {
				return translateErrno(err)
			}
		}
		return nil

	case "Rename":
		target, err := h.resolve(r.Target)
		if err != nil {
			return pkgsftp.ErrSSHFxPermissionDenied
		}
		if err := os.Rename(path, target); err != nil {
			return translateErrno(err)
		}
		return nil

	case "Rmdir":
		if err := os.Remove(path); err != nil {
			return translateErrno(err)
		}
		return nil

	case "Mkdir":
		if err := os.Mkdir(path, 0o755); err != nil {
			return translateErrno(err)
		}
		return nil

	case "Remove":
		if err := os.Remove(path); err != nil {
			return translateErrno(err)
		}
		return nil

	case "Symlink":
		// Target is stored verbatim per §4.4; only the link's own location
		// (Filepath) is confined to the session root.
		if err := os.Symlink(r.Target, path); err != nil {
			return translateErrno(err)
		}
		return nil

	default:
		return pkgsftp.ErrSSHFxOpUnsupported
	}
}
