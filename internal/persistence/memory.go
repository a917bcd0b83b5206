package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/websoft9/honeyshell/internal/session"
)

// MemoryGateway is an in-process Gateway used by bridge/orchestrator tests
// so persistence never sits on the critical path of testing them. It is
// not used by the shipped binary.
type MemoryGateway struct {
	mu         sync.Mutex
	sessions   map[string]*session.Session
	keystrokes []session.KeystrokeChunk
	uploads    []session.UploadRecord
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{sessions: make(map[string]*session.Session)}
}

func (g *MemoryGateway) CreateSession(_ context.Context, sourceIP string, sourcePort int, username, passwordOrFP string, method session.AuthMethod) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.NewString()
	g.sessions[id] = &session.Session{
		ID:           id,
		SourceIP:     sourceIP,
		SourcePort:   sourcePort,
		Username:     username,
		PasswordOrFP: passwordOrFP,
		AuthMethod:   method,
		StartedAt:    time.Now().UTC(),
		Status:       session.StatusActive,
	}
	return id, nil
}

func (g *MemoryGateway) SetContainer(_ context.Context, sessionID, containerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil
	}
	s.ContainerID = containerID
	return nil
}

func (g *MemoryGateway) EndSession(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	d := int64(now.Sub(s.StartedAt).Seconds())
	s.EndedAt = &now
	s.DurationSeconds = &d
	s.Status = session.StatusCompleted
	return nil
}

func (g *MemoryGateway) RecordKeystroke(sessionID string, direction session.Direction, data []byte, ts time.Time) {
	if len(data) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keystrokes = append(g.keystrokes, session.KeystrokeChunk{
		SessionID: sessionID,
		Timestamp: ts,
		Direction: direction,
		Data:      append([]byte(nil), data...),
	})
}

func (g *MemoryGateway) RecordUpload(sessionID, filename string, data []byte, ts time.Time) {
	sum := sha256.Sum256(data)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uploads = append(g.uploads, session.UploadRecord{
		SessionID:     sessionID,
		Filename:      filename,
		SizeBytes:     int64(len(data)),
		ContentSHA256: hex.EncodeToString(sum[:]),
		UploadedAt:    ts,
	})
}

func (g *MemoryGateway) Close(context.Context) error { return nil }

// Session returns a copy of the stored session, for assertions in tests.
func (g *MemoryGateway) Session(id string) (session.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return session.Session{}, false
	}
	return *s, true
}

// Keystrokes returns a copy of every captured chunk for id, in append order.
func (g *MemoryGateway) Keystrokes(id string) []session.KeystrokeChunk {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []session.KeystrokeChunk
	for _, k := range g.keystrokes {
		if k.SessionID == id {
			out = append(out, k)
		}
	}
	return out
}

// Uploads returns a copy of every captured upload for id.
func (g *MemoryGateway) Uploads(id string) []session.UploadRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []session.UploadRecord
	for _, u := range g.uploads {
		if u.SessionID == id {
			out = append(out, u)
		}
	}
	return out
}
