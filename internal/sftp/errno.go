package sftp

import (
	"errors"
	"os"

	pkgsftp "github.com/pkg/sftp"
)

// translateErrno maps a host OS error onto the nearest SFTP protocol status
// code, per §4.4 ("Host OS errors are mapped to SFTP protocol errno codes
// and returned to the client").
func translateErrno(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return pkgsftp.ErrSSHFxNoSuchFile
	case errors.Is(err, os.ErrPermission):
		return pkgsftp.ErrSSHFxPermissionDenied
	case errors.Is(err, os.ErrExist):
		return pkgsftp.ErrSSHFxFailure
	default:
		return pkgsftp.ErrSSHFxFailure
	}
}
