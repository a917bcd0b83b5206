// Package fileutil provides the path-confinement helper used by the SFTP
// subsystem to map attacker-supplied virtual paths onto a per-session
// scratch directory. It has no SSH or SFTP protocol dependencies.
package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrForbiddenPath is returned when a virtual path would resolve outside root.
var ErrForbiddenPath = errors.New("forbidden path")

// ResolveSafePath resolves rel (a slash-separated, attacker-controlled path)
// against root and returns the physical path. Unlike a multi-root sandbox,
// a session only ever has one root, so there is no whitelist of first
// segments to check — every path under root is fair game.
//
// rel is normalized (".."/"." collapsed) via filepath.Clean, any leading
// separators are stripped so an absolute-looking path can't escape the
// Join, and the resulting absolute path is re-checked against root as a
// hardening pass on top of the Join itself. If the path exists, symlinks
// are resolved so a symlink planted by the attacker can't point the walk
// back outside root.
func ResolveSafePath(root, rel string) (string, error) {
	if rel == "" {
		return "", ErrForbiddenPath
	}

	cleanRoot := filepath.Clean(root)
	cleanRel := filepath.Clean(filepath.FromSlash(rel))
	cleanRel = strings.TrimPrefix(cleanRel, string(os.PathSeparator))

	abs := filepath.Join(cleanRoot, cleanRel)
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(os.PathSeparator)) {
		return "", ErrForbiddenPath
	}

	resolved, err := resolveExisting(abs, cleanRoot)
	if err != nil {
		return "", ErrForbiddenPath
	}
	if resolved != cleanRoot && !strings.HasPrefix(resolved, cleanRoot+string(os.PathSeparator)) {
		return "", ErrForbiddenPath
	}

	return abs, nil
}

// resolveExisting walks up from abs until it finds an existing ancestor,
// then evaluates symlinks on that ancestor. It returns the real path of the
// deepest existing component so callers can detect an escape introduced by
// a symlink even when the final path component does not exist yet (e.g. an
// SFTP open(O_CREAT) of a new file inside a symlinked directory).
func resolveExisting(abs, root string) (string, error) {
	cur := abs
	for {
		if _, err := os.Lstat(cur); err == nil {
			return filepath.EvalSymlinks(cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur || !strings.HasPrefix(parent, root) {
			return root, nil
		}
		cur = parent
	}
}

// StripRoot removes root as a path prefix from p, returning a virtual,
// attacker-facing path. Used by readlink so a link target that happens to
// point at an absolute path under root is reported relative to it instead
// of leaking the real host path.
func StripRoot(root, p string) string {
	cleanRoot := filepath.Clean(root)
	if p == cleanRoot {
		return "/"
	}
	if strings.HasPrefix(p, cleanRoot+string(os.PathSeparator)) {
		return p[len(cleanRoot):]
	}
	return p
}
