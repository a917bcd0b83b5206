package sshserver

import (
	"context"
	"errors"

	"golang.org/x/crypto/ssh"

	"github.com/websoft9/honeyshell/internal/sessionfuture"
)

// ErrNoChannel is returned by AcceptChannel when no session channel arrives
// before ctx is done.
var ErrNoChannel = errors.New("no channel opened before deadline")

// Conn is one authenticated SSH connection. Future resolves to the session
// id once auth has completed and the Persistence Gateway has returned it.
type Conn struct {
	sconn  *ssh.ServerConn
	chans  <-chan ssh.NewChannel
	Future *sessionfuture.String
}

func (c *Conn) Close() error {
	return c.sconn.Close()
}

// AcceptChannel waits for the first "session" channel, rejecting any other
// kind it sees along the way as administratively prohibited (§4.3). It
// blocks until ctx is done or the underlying connection closes.
func (c *Conn) AcceptChannel(ctx context.Context) (*Channel, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ErrNoChannel
		case newChan, ok := <-c.chans:
			if !ok {
				return nil, ErrNoChannel
			}
			if newChan.ChannelType() != "session" {
				_ = newChan.Reject(ssh.Prohibited, "administratively prohibited")
				continue
			}
			ch, reqs, err := newChan.Accept()
			if err != nil {
				return nil, err
			}
			return &Channel{Channel: ch, reqs: reqs}, nil
		}
	}
}
