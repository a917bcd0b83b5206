// Package bridge is the Shell Bridge: the bidirectional copy loop between
// an attacker's SSH channel and a container exec stream, with a capture tap.
// Resize forwarding is not done here: the orchestrator installs it as the
// SSH channel's resize callback.
package bridge

import (
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/session"
)

const copyChunkSize = 4096

// ChannelSide is the attacker-facing half of the bridge: an SSH channel.
type ChannelSide interface {
	io.Reader
	io.Writer
}

// ExecSide is the container-facing half: an exec's hijacked stream.
type ExecSide interface {
	io.Reader
	io.Writer
}

// Resizer forwards a PTY resize into the running exec.
type Resizer interface {
	Resize(width, height uint16) error
}

// BuildArgv selects the command to run inside the sandbox: the attacker's
// exec command if one was captured, else an interactive shell (§4.5).
func BuildArgv(execCommand []byte) (argv []string, tty bool) {
	if len(execCommand) == 0 {
		return []string{"/bin/bash"}, true
	}
	cmd := string(execCommand)
	if !utf8.ValidString(cmd) {
		cmd = strings.ToValidUTF8(cmd, "�")
	}
	return []string{"sh", "-c", cmd}, false
}

// Run copies bytes between channel and exec until either side closes, then
// returns. Keystrokes are captured after each chunk is forwarded to its
// destination, so recorded bytes were observed by the peer (§4.5 ordering).
// Run never closes channel or exec — the orchestrator owns their lifetime.
func Run(channel ChannelSide, exec ExecSide, sessionID string, gw persistence.Gateway) {
	var stopOnce sync.Once
	stop := make(chan struct{})
	signalStop := func() { stopOnce.Do(func() { close(stop) }) }

	var wg sync.WaitGroup
	wg.Add(2)

	// Ingress: attacker -> container.
	go func() {
		defer wg.Done()
		defer signalStop()
		buf := make([]byte, copyChunkSize)
		for {
			n, err := channel.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				if _, werr := exec.Write(chunk); werr != nil {
					return
				}
				gw.RecordKeystroke(sessionID, session.DirectionInput, chunk, time.Now())
			}
			if err != nil {
				return
			}
			select {
			case <-stop:
				return
			default:
			}
		}
	}()

	// Egress: container -> attacker.
	go func() {
		defer wg.Done()
		defer signalStop()
		buf := make([]byte, copyChunkSize)
		for {
			n, err := exec.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				if _, werr := channel.Write(chunk); werr != nil {
					return
				}
				gw.RecordKeystroke(sessionID, session.DirectionOutput, chunk, time.Now())
			}
			if err != nil {
				return
			}
			select {
			case <-stop:
				return
			default:
			}
		}
	}()

	wg.Wait()
	log.Debug().Str("session_id", sessionID).Msg("bridge torn down")
}
