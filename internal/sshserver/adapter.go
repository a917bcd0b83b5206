// Package sshserver is the SSH Server Adapter: the honeypot-facing half of
// the SSH-2 protocol — auth, channel requests, PTY/exec/subsystem — built
// directly on golang.org/x/crypto/ssh.
package sshserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/session"
	"github.com/websoft9/honeyshell/internal/sessionfuture"
)

// Adapter binds a persistent host key and banner and turns accepted TCP
// connections into authenticated SSH connections. It never touches the
// container or bridge layers — those belong to the orchestrator.
type Adapter struct {
	hostKey ssh.Signer
	banner  string
	gw      persistence.Gateway
}

// LoadHostKey reads a PEM-encoded RSA private key from path. Missing or
// unparsable keys are fatal at startup, per §6.
func LoadHostKey(path string) (ssh.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host key %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse host key %s: %w", path, err)
	}
	return signer, nil
}

func New(hostKey ssh.Signer, banner string, gw persistence.Gateway) *Adapter {
	return &Adapter{hostKey: hostKey, banner: banner, gw: gw}
}

// Handshake performs the SSH-2 handshake over an already-accepted TCP
// connection. Password and public-key attempts are recorded via the
// Persistence Gateway and accepted, per §4.3; an attempt fails only when the
// gateway cannot create the session. `none` auth is always rejected so
// clients proceed to a credentialed method.
func (a *Adapter) Handshake(ctx context.Context, nc net.Conn) (*Conn, error) {
	future := sessionfuture.NewString()

	cfg := &ssh.ServerConfig{
		ServerVersion: a.banner,
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			id, err := a.createSession(ctx, meta, string(password), session.AuthPassword)
			if err != nil {
				return nil, err
			}
			future.Resolve(id)
			return &ssh.Permissions{}, nil
		},
		PublicKeyCallback: func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			fp := ssh.FingerprintLegacyMD5(key)
			id, err := a.createSession(ctx, meta, fp, session.AuthPublicKey)
			if err != nil {
				return nil, err
			}
			future.Resolve(id)
			return &ssh.Permissions{}, nil
		},
	}
	cfg.AddHostKey(a.hostKey)

	sconn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return nil, err
	}
	go ssh.DiscardRequests(reqs)

	return &Conn{sconn: sconn, chans: chans, Future: future}, nil
}

func (a *Adapter) createSession(ctx context.Context, meta ssh.ConnMetadata, credential string, method session.AuthMethod) (string, error) {
	host, portStr, err := net.SplitHostPort(meta.RemoteAddr().String())
	if err != nil {
		host, portStr = meta.RemoteAddr().String(), "0"
	}
	port, _ := strconv.Atoi(portStr)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id, err := a.gw.CreateSession(cctx, host, port, meta.User(), credential, method)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}
