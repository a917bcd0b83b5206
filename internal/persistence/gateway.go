// Package persistence is the session/keystroke/upload sink. It is the only
// component in this repo allowed to talk to Mongo or Redis directly; every
// other component depends on the Gateway interface, never on the concrete
// implementation.
package persistence

import (
	"context"
	"time"

	"github.com/websoft9/honeyshell/internal/session"
)

// Gateway is the persistence boundary the orchestrator, SSH adapter, bridge,
// and SFTP subsystem are built against. CreateSession, SetContainer, and
// EndSession are synchronous and must be awaited by the caller with a
// bounded context; RecordKeystroke and RecordUpload are fire-and-forget —
// errors are logged inside the gateway and never surfaced to callers.
type Gateway interface {
	// CreateSession allocates a session id, persists the initial record with
	// status=active, and returns the id.
	CreateSession(ctx context.Context, sourceIP string, sourcePort int, username, passwordOrFP string, method session.AuthMethod) (string, error)

	// SetContainer patches the session's container id.
	SetContainer(ctx context.Context, sessionID, containerID string) error

	// EndSession computes duration from the stored started_at and marks the
	// session completed. Unknown ids are tolerated (logged, no error).
	EndSession(ctx context.Context, sessionID string) error

	// RecordKeystroke enqueues an append-only chunk of TTY traffic.
	RecordKeystroke(sessionID string, direction session.Direction, data []byte, ts time.Time)

	// RecordUpload enqueues one captured file. data is copied before this
	// call returns, so callers may reuse or mutate their buffer afterward.
	RecordUpload(sessionID, filename string, data []byte, ts time.Time)

	// Close releases the gateway's connections.
	Close(ctx context.Context) error
}
