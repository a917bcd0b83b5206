package containers

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	dockertypes "github.com/docker/docker/api/types"
)

// ExecStream is the bidirectional byte stream of a running exec, the same
// "hijacked connection" shape the source hand-rolls over raw HTTP — here it
// comes straight from the Docker SDK.
type ExecStream = dockertypes.HijackedResponse

// OpenExec creates and starts an exec in containerID running argv, attaching
// stdin/stdout/stderr. If tty, the PTY is resized to (width, height)
// immediately after start, matching §4.2's "if tty, immediately resizes".
func (m *Manager) OpenExec(ctx context.Context, containerID string, argv []string, tty bool, width, height uint16) (execID string, stream ExecStream, err error) {
	created, err := m.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          argv,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          tty,
		Env:          []string{"TERM=xterm-256color", "LANG=en_US.UTF-8", "HOME=/root"},
	})
	if err != nil {
		return "", ExecStream{}, fmt.Errorf("exec create: %w", err)
	}

	stream, err = m.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{Tty: tty})
	if err != nil {
		return "", ExecStream{}, fmt.Errorf("exec attach: %w", err)
	}

	if tty {
		// Best-effort, like every other resize (see Resize).
		_ = m.Resize(ctx, created.ID, width, height)
	}

	return created.ID, stream, nil
}

// Resize is best-effort: the exec may already have exited, in which case
// the error is swallowed by the caller (§4.2, §7(d)).
func (m *Manager) Resize(ctx context.Context, execID string, width, height uint16) error {
	return m.cli.ContainerExecResize(ctx, execID, container.ResizeOptions{
		Height: uint(height),
		Width:  uint(width),
	})
}

// execStreamIO adapts a HijackedResponse to a plain io.ReadWriter: reads go
// through the buffered Reader (which may already hold bytes consumed while
// parsing the HTTP upgrade response), writes go straight to the raw Conn.
type execStreamIO struct {
	stream ExecStream
	reader io.Reader
}

func (s execStreamIO) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s execStreamIO) Write(p []byte) (int, error) { return s.stream.Conn.Write(p) }

// IO returns stream as a single io.ReadWriter for the shell bridge. A TTY
// exec's stream is raw bytes and is read verbatim. A non-TTY exec's stream
// is stdcopy-multiplexed (an 8-byte [stream,0,0,0,size] frame header ahead
// of every chunk of stdout or stderr); left undemultiplexed, those headers
// would be forwarded to the attacker and captured as keystrokes, so they
// are stripped here via stdcopy.StdCopy before the bridge ever sees the
// stream, combining stdout and stderr into the one reader the bridge wants.
func IO(stream ExecStream, tty bool) io.ReadWriter {
	if tty {
		return execStreamIO{stream: stream, reader: stream.Reader}
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, stream.Reader)
		pw.CloseWithError(err)
	}()
	return execStreamIO{stream: stream, reader: pr}
}
