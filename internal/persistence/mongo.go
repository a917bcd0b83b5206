package persistence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/websoft9/honeyshell/internal/session"
)

// MongoGateway is the shipped Gateway implementation. Session, keystroke,
// and upload metadata live in three Mongo collections; uploaded file
// contents live in a GridFS bucket, mirroring the source's motor/GridFS
// split between small documents and large blobs.
type MongoGateway struct {
	client *mongo.Client
	db     *mongo.Database

	sessions   *mongo.Collection
	keystrokes *mongo.Collection
	uploads    *mongo.Collection
	bucket     *gridfs.Bucket

	asynqClient *asynq.Client
	asynqServer *asynq.Server
}

// sessionDoc is the Mongo-facing shape of a session.Session.
type sessionDoc struct {
	ID              string     `bson:"_id"`
	SourceIP        string     `bson:"source_ip"`
	SourcePort      int        `bson:"source_port"`
	Username        string     `bson:"username"`
	PasswordOrFP    string     `bson:"password_or_fp"`
	AuthMethod      string     `bson:"auth_method"`
	ContainerID     string     `bson:"container_id"`
	StartedAt       time.Time  `bson:"started_at"`
	EndedAt         *time.Time `bson:"ended_at"`
	DurationSeconds *int64     `bson:"duration_seconds"`
	Status          string     `bson:"status"`
}

type keystrokeDoc struct {
	SessionID string    `bson:"session_id"`
	Timestamp time.Time `bson:"timestamp"`
	Direction string    `bson:"direction"`
	Data      []byte    `bson:"data"`
}

type uploadDoc struct {
	SessionID  string             `bson:"session_id"`
	Filename   string             `bson:"filename"`
	SizeBytes  int64              `bson:"size_bytes"`
	ContentSHA string             `bson:"content_hash"`
	UploadedAt time.Time          `bson:"uploaded_at"`
	FileRef    primitive.ObjectID `bson:"file_ref"`
}

// NewMongoGateway dials Mongo and the Redis-backed task queue. It does not
// start processing tasks; call Start for that.
func NewMongoGateway(ctx context.Context, mongoURI, mongoDB, redisAddr string) (*MongoGateway, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(mongoDB)
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, err
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	return &MongoGateway{
		client:     client,
		db:         db,
		sessions:   db.Collection("sessions"),
		keystrokes: db.Collection("keystrokes"),
		uploads:    db.Collection("uploads"),
		bucket:     bucket,

		asynqClient: asynq.NewClient(redisOpt),
		asynqServer: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
			},
		}),
	}, nil
}

// Start begins processing keystroke/upload tasks in a background goroutine.
// Call once during process startup.
func (g *MongoGateway) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskKeystroke, g.handleKeystroke)
	mux.HandleFunc(TaskUpload, g.handleUpload)

	go func() {
		if err := g.asynqServer.Run(mux); err != nil {
			log.Error().Err(err).Msg("asynq capture worker stopped")
		}
	}()
}

func (g *MongoGateway) Close(ctx context.Context) error {
	g.asynqServer.Shutdown()
	_ = g.asynqClient.Close()
	return g.client.Disconnect(ctx)
}

func (g *MongoGateway) CreateSession(ctx context.Context, sourceIP string, sourcePort int, username, passwordOrFP string, method session.AuthMethod) (string, error) {
	id := newSessionID()
	doc := sessionDoc{
		ID:           id,
		SourceIP:     sourceIP,
		SourcePort:   sourcePort,
		Username:     username,
		PasswordOrFP: passwordOrFP,
		AuthMethod:   string(method),
		StartedAt:    time.Now().UTC(),
		Status:       string(session.StatusActive),
	}
	if _, err := g.sessions.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (g *MongoGateway) SetContainer(ctx context.Context, sessionID, containerID string) error {
	_, err := g.sessions.UpdateByID(ctx, sessionID, bson.M{
		"$set": bson.M{"container_id": containerID},
	})
	return err
}

func (g *MongoGateway) EndSession(ctx context.Context, sessionID string) error {
	var doc sessionDoc
	err := g.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		log.Warn().Str("session_id", sessionID).Msg("end_session: unknown session id")
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	duration := int64(now.Sub(doc.StartedAt).Seconds())

	_, err = g.sessions.UpdateByID(ctx, sessionID, bson.M{
		"$set": bson.M{
			"ended_at":         now,
			"duration_seconds": duration,
			"status":           string(session.StatusCompleted),
		},
	})
	return err
}

func (g *MongoGateway) insertKeystroke(ctx context.Context, p KeystrokePayload) error {
	_, err := g.keystrokes.InsertOne(ctx, keystrokeDoc{
		SessionID: p.SessionID,
		Timestamp: p.Timestamp,
		Direction: p.Direction,
		Data:      p.Data,
	})
	return err
}

func (g *MongoGateway) insertUpload(ctx context.Context, p UploadPayload) error {
	uploadStream, err := g.bucket.OpenUploadStream(filepath.Base(p.Filename))
	if err != nil {
		return err
	}
	if _, err := uploadStream.Write(p.Data); err != nil {
		_ = uploadStream.Close()
		return err
	}
	if err := uploadStream.Close(); err != nil {
		return err
	}

	sum := sha256.Sum256(p.Data)
	doc := uploadDoc{
		SessionID:  p.SessionID,
		Filename:   filepath.Base(p.Filename),
		SizeBytes:  int64(len(p.Data)),
		ContentSHA: hex.EncodeToString(sum[:]),
		UploadedAt: p.Timestamp,
		FileRef:    uploadStream.FileID.(primitive.ObjectID),
	}
	_, err = g.uploads.InsertOne(ctx, doc)
	return err
}

// FetchBlob reads back a previously uploaded file by its GridFS reference,
// used by operators and by tests verifying the capture round-trip.
func (g *MongoGateway) FetchBlob(ctx context.Context, fileRef primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := g.bucket.DownloadToStream(fileRef, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newSessionID returns a random 128-bit id rendered as a UUID string. The
// first 8 hex characters (session.Session.ShortID) double as the container
// name suffix and the SFTP scratch-directory name.
func newSessionID() string {
	return uuid.NewString()
}
