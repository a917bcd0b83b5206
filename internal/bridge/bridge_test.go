package bridge

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/session"
)

func TestBuildArgvExec(t *testing.T) {
	argv, tty := BuildArgv([]byte("hostname"))
	if tty {
		t.Error("exec path should not request a tty")
	}
	if len(argv) != 3 || argv[0] != "sh" || argv[1] != "-c" || argv[2] != "hostname" {
		t.Fatalf("unexpected argv: %v", argv)
	}
}

func TestBuildArgvShell(t *testing.T) {
	argv, tty := BuildArgv(nil)
	if !tty {
		t.Error("shell path should request a tty")
	}
	if len(argv) != 1 || argv[0] != "/bin/bash" {
		t.Fatalf("unexpected argv: %v", argv)
	}
}

// halfDuplex is one side of the bridge built from two in-memory pipes (Run
// reads from r and writes to w), so Run can be exercised without a real SSH
// channel or container.
type halfDuplex struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (h *halfDuplex) Read(p []byte) (int, error)  { return h.r.Read(p) }
func (h *halfDuplex) Write(p []byte) (int, error) { return h.w.Write(p) }

func TestRunForwardsBothDirectionsAndCaptures(t *testing.T) {
	attackerInR, attackerInW := io.Pipe()     // attacker -> bridge
	attackerOutR, attackerOutW := io.Pipe()   // bridge -> attacker
	containerInR, containerInW := io.Pipe()   // bridge -> container
	containerOutR, containerOutW := io.Pipe() // container -> bridge

	channel := &halfDuplex{r: attackerInR, w: attackerOutW}
	exec := &halfDuplex{r: containerOutR, w: containerInW}

	gw := persistence.NewMemoryGateway()
	sessionID, _ := gw.CreateSession(context.Background(), "198.51.100.2", 2222, "root", "phase3_test_password", session.AuthPassword)

	done := make(chan struct{})
	go func() {
		Run(channel, exec, sessionID, gw)
		close(done)
	}()

	go func() {
		_, _ = attackerInW.Write([]byte("echo honeypot_test_marker\n"))
	}()

	readInput := make([]byte, 64)
	n, err := containerInR.Read(readInput)
	if err != nil {
		t.Fatalf("read from exec side: %v", err)
	}
	if !bytes.Contains(readInput[:n], []byte("honeypot_test_marker")) {
		t.Fatalf("exec side did not see forwarded input: %q", readInput[:n])
	}

	go func() {
		_, _ = containerOutW.Write([]byte("honeypot_test_marker\n"))
	}()

	readOutput := make([]byte, 64)
	n, err = attackerOutR.Read(readOutput)
	if err != nil {
		t.Fatalf("read from channel side: %v", err)
	}
	if !bytes.Contains(readOutput[:n], []byte("honeypot_test_marker")) {
		t.Fatalf("channel side did not see forwarded output: %q", readOutput[:n])
	}

	_ = attackerInW.Close()
	_ = containerOutW.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after both sides closed")
	}

	var allOutput []byte
	for _, c := range gw.Keystrokes(sessionID) {
		if c.Direction == session.DirectionOutput {
			allOutput = append(allOutput, c.Data...)
		}
	}
	if !bytes.Contains(allOutput, []byte("honeypot_test_marker")) {
		t.Errorf("captured output chunks do not contain marker: %q", allOutput)
	}

	var sawInput bool
	for _, c := range gw.Keystrokes(sessionID) {
		if c.Direction == session.DirectionInput {
			sawInput = true
		}
	}
	if !sawInput {
		t.Error("no input chunk captured")
	}
}
