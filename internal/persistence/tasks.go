package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/websoft9/honeyshell/internal/session"
)

// Task type constants for the embedded Asynq worker. These replace the
// source's pattern of dispatching coroutines onto a background event loop
// from arbitrary threads (see design notes on cross-loop submission) with
// an explicit, typed work queue.
const (
	TaskKeystroke = "capture:keystroke"
	TaskUpload    = "capture:upload"
)

// KeystrokePayload is the TaskKeystroke task payload.
type KeystrokePayload struct {
	SessionID string    `json:"session_id"`
	Direction string    `json:"direction"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// UploadPayload is the TaskUpload task payload.
type UploadPayload struct {
	SessionID string    `json:"session_id"`
	Filename  string    `json:"filename"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func (g *MongoGateway) RecordKeystroke(sessionID string, direction session.Direction, data []byte, ts time.Time) {
	if len(data) == 0 {
		return
	}
	payload, err := json.Marshal(KeystrokePayload{
		SessionID: sessionID,
		Direction: string(direction),
		Data:      append([]byte(nil), data...),
		Timestamp: ts,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("marshal keystroke payload")
		return
	}
	if _, err := g.asynqClient.Enqueue(asynq.NewTask(TaskKeystroke, payload), asynq.Queue("critical")); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("enqueue keystroke task")
	}
}

func (g *MongoGateway) RecordUpload(sessionID, filename string, data []byte, ts time.Time) {
	payload, err := json.Marshal(UploadPayload{
		SessionID: sessionID,
		Filename:  filename,
		Data:      append([]byte(nil), data...),
		Timestamp: ts,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("marshal upload payload")
		return
	}
	if _, err := g.asynqClient.Enqueue(asynq.NewTask(TaskUpload, payload), asynq.Queue("default")); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("enqueue upload task")
	}
}

// handleKeystroke and handleUpload run on the embedded Asynq worker pool;
// errors are logged and returned so Asynq's own retry policy can decide
// whether to redeliver, but they never reach the bridge goroutines that
// originated the capture.

func (g *MongoGateway) handleKeystroke(ctx context.Context, t *asynq.Task) error {
	var p KeystrokePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		log.Error().Err(err).Msg("unmarshal keystroke task")
		return err
	}
	return g.insertKeystroke(ctx, p)
}

func (g *MongoGateway) handleUpload(ctx context.Context, t *asynq.Task) error {
	var p UploadPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		log.Error().Err(err).Msg("unmarshal upload task")
		return err
	}
	return g.insertUpload(ctx, p)
}
