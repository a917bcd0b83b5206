// Package session defines the data model shared by the persistence gateway,
// the SSH adapter, the SFTP subsystem, and the orchestrator.
package session

import "time"

// AuthMethod identifies how an attacker authenticated.
type AuthMethod string

const (
	AuthPassword  AuthMethod = "password"
	AuthPublicKey AuthMethod = "publickey"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Direction tags which side produced a Keystroke chunk.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Session is the canonical record of one attacker SSH connection. The
// persistence gateway holds the authoritative copy; the orchestrator
// mutates it exactly three times (create, set container, end).
type Session struct {
	ID              string
	SourceIP        string
	SourcePort      int
	Username        string
	PasswordOrFP    string
	AuthMethod      AuthMethod
	ContainerID     string // empty until the bridge starts
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds *int64
	Status          Status
}

// ShortID returns the first 8 hex characters of the session id, used to
// name containers and namespace the SFTP scratch directory.
func (s Session) ShortID() string {
	if len(s.ID) <= 8 {
		return s.ID
	}
	return s.ID[:8]
}

// KeystrokeChunk is one append-only slice of a session's TTY traffic.
type KeystrokeChunk struct {
	SessionID string
	Timestamp time.Time
	Direction Direction
	Data      []byte
}

// UploadRecord describes one file captured over SFTP.
type UploadRecord struct {
	SessionID     string
	Filename      string // basename only
	SizeBytes     int64
	ContentSHA256 string // lowercase hex
	UploadedAt    time.Time
	FileRef       string // large-object reference (GridFS ObjectID hex)
}
