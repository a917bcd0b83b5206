package sshserver

import (
	"context"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Kind is what the attacker ultimately requested on a session channel.
type Kind int

const (
	KindNone Kind = iota
	KindShell
	KindExec
	KindSFTP
)

type ptyRequestMsg struct {
	Term                                string
	Width, Height, PixWidth, PixHeight uint32
	Modes                               string
}

type windowChangeMsg struct {
	Width, Height, PixWidth, PixHeight uint32
}

type execMsg struct {
	Command string
}

type subsystemMsg struct {
	Name string
}

// Channel wraps one accepted "session" channel and its out-of-band request
// stream (pty-req, window-change, shell, exec, subsystem).
type Channel struct {
	ssh.Channel
	reqs <-chan *ssh.Request

	width, height uint32

	resizeMu sync.Mutex
	resizeCB func(w, h uint16)
}

// Serve drains requests until the attacker settles on shell, exec, or sftp,
// returning that decision. window-change requests received before that
// point are recorded as the channel's current PTY size; once a resize
// callback is installed by the bridge, later window-change requests are
// forwarded to it live.
func (ch *Channel) Serve(ctx context.Context) (kind Kind, execCommand []byte, err error) {
	for {
		select {
		case <-ctx.Done():
			return KindNone, nil, ctx.Err()
		case req, ok := <-ch.reqs:
			if !ok {
				return KindNone, nil, ErrNoChannel
			}
			switch req.Type {
			case "pty-req":
				var m ptyRequestMsg
				if err := ssh.Unmarshal(req.Payload, &m); err == nil {
					ch.width, ch.height = m.Width, m.Height
				}
				if req.WantReply {
					_ = req.Reply(true, nil)
				}
			case "window-change":
				var m windowChangeMsg
				if err := ssh.Unmarshal(req.Payload, &m); err == nil {
					ch.width, ch.height = m.Width, m.Height
					ch.resizeMu.Lock()
					cb := ch.resizeCB
					ch.resizeMu.Unlock()
					if cb != nil {
						cb(uint16(m.Width), uint16(m.Height))
					}
				}
				// window-change never wants a reply.
			case "shell":
				if req.WantReply {
					_ = req.Reply(true, nil)
				}
				return KindShell, nil, nil
			case "exec":
				var m execMsg
				_ = ssh.Unmarshal(req.Payload, &m)
				if req.WantReply {
					_ = req.Reply(true, nil)
				}
				return KindExec, []byte(m.Command), nil
			case "subsystem":
				var m subsystemMsg
				_ = ssh.Unmarshal(req.Payload, &m)
				if m.Name == "sftp" {
					if req.WantReply {
						_ = req.Reply(true, nil)
					}
					return KindSFTP, nil, nil
				}
				if req.WantReply {
					_ = req.Reply(false, nil)
				}
			default:
				if req.WantReply {
					_ = req.Reply(false, nil)
				}
			}
		}
	}
}

// PTYSize returns the most recently negotiated terminal size, defaulting to
// 80x24 if the attacker never sent a pty-req (e.g. a non-interactive exec).
func (ch *Channel) PTYSize() (width, height uint16) {
	if ch.width == 0 || ch.height == 0 {
		return 80, 24
	}
	return uint16(ch.width), uint16(ch.height)
}

// SetResizeCallback installs the resize forwarder. The orchestrator sets it
// before starting the bridge and clears it when the bridge is torn down, to
// avoid a lifetime cycle between adapter and bridge.
func (ch *Channel) SetResizeCallback(cb func(w, h uint16)) {
	ch.resizeMu.Lock()
	ch.resizeCB = cb
	ch.resizeMu.Unlock()
}

func (ch *Channel) ClearResizeCallback() {
	ch.SetResizeCallback(nil)
}
