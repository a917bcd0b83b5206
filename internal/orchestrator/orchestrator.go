// Package orchestrator is the Session Orchestrator: the accept loop and
// per-connection lifecycle glue binding the SSH adapter, container manager,
// SFTP subsystem, and shell bridge.
package orchestrator

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	pkgsftp "github.com/pkg/sftp"
	"github.com/rs/zerolog/log"

	"github.com/websoft9/honeyshell/internal/bridge"
	"github.com/websoft9/honeyshell/internal/config"
	"github.com/websoft9/honeyshell/internal/containers"
	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/sftp"
	"github.com/websoft9/honeyshell/internal/sshserver"
)

const (
	channelAcceptTimeout  = 20 * time.Second
	sessionIDWaitTimeout  = 5 * time.Second
	persistenceOpTimeout  = 5 * time.Second
	unknownSessionIDLabel = "unknown"
)

// Orchestrator owns the TCP accept loop.
type Orchestrator struct {
	cfg     *config.Config
	adapter *sshserver.Adapter
	manager *containers.Manager
	gw      persistence.Gateway
}

func New(cfg *config.Config, adapter *sshserver.Adapter, manager *containers.Manager, gw persistence.Gateway) *Orchestrator {
	return &Orchestrator{cfg: cfg, adapter: adapter, manager: manager, gw: gw}
}

// Serve accepts connections on ln until ctx is done. Every connection gets
// its own worker goroutine; a panic or error in one worker is caught here
// and never takes down the listener (§4.6, §7 propagation policy).
func (o *Orchestrator) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go o.handleConnection(ctx, nc)
	}
}

func (o *Orchestrator) handleConnection(ctx context.Context, nc net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("remote", nc.RemoteAddr().String()).Msg("worker panic recovered")
		}
	}()
	defer nc.Close()

	conn, err := o.adapter.Handshake(ctx, nc)
	if err != nil {
		log.Warn().Err(err).Str("remote", nc.RemoteAddr().String()).Msg("ssh handshake failed")
		return
	}
	defer conn.Close()

	acceptCtx, cancel := context.WithTimeout(ctx, channelAcceptTimeout)
	channel, err := conn.AcceptChannel(acceptCtx)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("no channel opened before deadline")
		return
	}
	defer channel.Close()

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	kind, execCmd, err := channel.Serve(serveCtx)
	if err != nil {
		log.Debug().Err(err).Msg("channel request loop ended without a usable request")
		return
	}

	if kind == sshserver.KindSFTP {
		o.handleSFTP(ctx, conn, channel)
		return
	}

	o.handleShellOrExec(ctx, conn, channel, execCmd)
}

func (o *Orchestrator) handleSFTP(ctx context.Context, conn *sshserver.Conn, channel *sshserver.Channel) {
	waitCtx, cancel := context.WithTimeout(ctx, sessionIDWaitTimeout)
	sessionID, ok := conn.Future.Await(waitCtx)
	cancel()
	if !ok {
		// Design note: preserves the source's verbatim fallback rather than
		// rejecting the subsystem outright, so SFTP still yields telemetry
		// even when the session id lost the race.
		sessionID = unknownSessionIDLabel
	}

	root := sessionRoot(o.cfg.SFTPRoot, sessionID)
	if err := ensureRoot(root); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("create sftp root")
		return
	}

	handler := sftp.NewHandler(root, sessionID, o.gw)
	server := pkgsftp.NewRequestServer(channel, handler.Handlers())
	defer server.Close()

	if err := server.Serve(); err != nil {
		log.Debug().Err(err).Str("session_id", sessionID).Msg("sftp subsystem closed")
	}
}

func (o *Orchestrator) handleShellOrExec(ctx context.Context, conn *sshserver.Conn, channel *sshserver.Channel, execCmd []byte) {
	waitCtx, cancel := context.WithTimeout(ctx, sessionIDWaitTimeout)
	sessionID, ok := conn.Future.Await(waitCtx)
	cancel()
	if !ok {
		log.Warn().Msg("session id never resolved, closing connection")
		return
	}

	if err := o.manager.EnsureNetwork(ctx); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("ensure honeypot network")
		o.endSession(sessionID)
		return
	}

	shortID := sessionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	createCtx, cancelCreate := context.WithTimeout(ctx, persistenceOpTimeout)
	containerID, err := o.manager.Create(createCtx, sessionID, shortID)
	cancelCreate()
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("create container")
		o.endSession(sessionID)
		return
	}
	// §5 ordering (c): destroy_container must be requested strictly before
	// end_session is issued, on every exit path from here on.
	defer func() {
		o.destroyContainer(sessionID, containerID)
		o.endSession(sessionID)
	}()

	setCtx, cancelSet := context.WithTimeout(ctx, persistenceOpTimeout)
	if err := o.gw.SetContainer(setCtx, sessionID, containerID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("set container on session")
	}
	cancelSet()

	argv, tty := bridge.BuildArgv(execCmd)
	width, height := channel.PTYSize()

	execID, stream, err := o.manager.OpenExec(ctx, containerID, argv, tty, width, height)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("open exec")
		return
	}
	defer stream.Close()

	channel.SetResizeCallback(func(w, h uint16) {
		if err := o.manager.Resize(ctx, execID, w, h); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("resize exec")
		}
	})
	defer channel.ClearResizeCallback()

	bridge.Run(channel, containers.IO(stream, tty), sessionID, o.gw)
}

func (o *Orchestrator) destroyContainer(sessionID, containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistenceOpTimeout)
	defer cancel()
	if err := o.manager.Destroy(ctx, containerID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Str("container_id", containerID).Msg("destroy container")
	}
}

func (o *Orchestrator) endSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistenceOpTimeout)
	defer cancel()
	if err := o.gw.EndSession(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("end session")
	}
}

// sessionRoot builds the per-session SFTP scratch directory path, namespaced
// by the first 8 hex characters of the session id (§3).
func sessionRoot(sftpRoot, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(sftpRoot, short)
}

func ensureRoot(root string) error {
	return os.MkdirAll(root, 0o755)
}
