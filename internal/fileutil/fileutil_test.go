package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/websoft9/honeyshell/internal/fileutil"
)

func TestResolveSafePath(t *testing.T) {
	root := t.TempDir()

	_ = os.MkdirAll(filepath.Join(root, "sub"), 0o755)

	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{name: "top level file", rel: "backdoor.sh", wantErr: false},
		{name: "nested file", rel: "sub/payload.bin", wantErr: false},
		{name: "root itself", rel: ".", wantErr: false},

		{name: "dotdot escape", rel: "../../etc/passwd", wantErr: true},
		{name: "dotdot at start", rel: "../sibling", wantErr: true},
		{name: "dotdot only", rel: "..", wantErr: true},

		{name: "leading slash", rel: "/etc/passwd", wantErr: false},
		{name: "leading slash nested", rel: "/sub/file", wantErr: false},

		{name: "empty", rel: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fileutil.ResolveSafePath(root, tt.rel)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ResolveSafePath(%q) = %q, want error", tt.rel, got)
				}
				return
			}
			if err != nil {
				t.Errorf("ResolveSafePath(%q) unexpected error: %v", tt.rel, err)
				return
			}
			if !filepath.IsAbs(got) {
				t.Errorf("result %q is not absolute", got)
			}
		})
	}
}

func TestResolveSafePathSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skip("symlinks not supported:", err)
	}

	_, err := fileutil.ResolveSafePath(root, "escape/secret.txt")
	if err == nil {
		t.Error("expected error for symlink escaping root, got nil")
	}
}

func TestResolveSafePathNewFileUnderExistingDir(t *testing.T) {
	root := t.TempDir()
	_ = os.MkdirAll(filepath.Join(root, "drop"), 0o755)

	got, err := fileutil.ResolveSafePath(root, "drop/new-upload.sh")
	if err != nil {
		t.Fatalf("ResolveSafePath: %v", err)
	}
	want := filepath.Join(root, "drop", "new-upload.sh")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripRoot(t *testing.T) {
	root := "/tmp/honeyshell-sftp/abcd1234"

	tests := []struct {
		in   string
		want string
	}{
		{in: root, want: "/"},
		{in: root + "/file.txt", want: "/file.txt"},
		{in: "/etc/passwd", want: "/etc/passwd"},
	}

	for _, tt := range tests {
		if got := fileutil.StripRoot(root, tt.in); got != tt.want {
			t.Errorf("StripRoot(%q, %q) = %q, want %q", root, tt.in, got, tt.want)
		}
	}
}
