// Package audit records authentication and account events in MongoDB.
package audit

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Kind identifies what happened.
type Kind string

// Event kinds.
const (
	KindLogin         Kind = "login"
	KindLoginFailed   Kind = "login_failed"
	KindLogout        Kind = "logout"
	KindRegister      Kind = "register"
	KindProfileUpdate Kind = "profile_update"
	KindUserDeleted   Kind = "user_deleted"
)

// CollectionName is the collection events are written to.
const CollectionName = "audit_events"

// DefaultRecentLimit bounds Recent when the caller passes zero.
const DefaultRecentLimit = 10

// Event is one audit trail entry.
type Event struct {
	ID         string    `bson:"_id" json:"id"`
	Kind       Kind      `bson:"kind" json:"kind"`
	UserID     string    `bson:"user_id,omitempty" json:"userId,omitempty"`
	ActorID    string    `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	Email      string    `bson:"email,omitempty" json:"email,omitempty"`
	Success    bool      `bson:"success" json:"success"`
	RemoteAddr string    `bson:"remote_addr,omitempty" json:"remoteAddr,omitempty"`
	At         time.Time `bson:"at" json:"at"`
}

// Recorder stores and lists audit events.
type Recorder interface {
	// Record persists e. Failures are logged, never returned, so auditing
	// cannot break the request that triggered it.
	Record(ctx context.Context, e Event)

	// Recent returns the newest events about or performed by userID,
	// newest first.
	Recent(ctx context.Context, userID string, limit int64) ([]Event, error)
}

// MongoRecorder writes events to a MongoDB collection.
type MongoRecorder struct {
	col    *mongo.Collection
	logger *slog.Logger
	now    func() time.Time
}

// NewMongoRecorder creates a recorder over db's audit collection.
func NewMongoRecorder(db *mongo.Database, logger *slog.Logger) *MongoRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoRecorder{col: db.Collection(CollectionName), logger: logger, now: time.Now}
}

// EnsureIndexes creates the user_id/at and actor_id/at indexes used by
// Recent.
func (r *MongoRecorder) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "at", Value: -1}}},
	})
	if err != nil {
		return oops.Code("AUDIT_INDEX_FAILED").With("collection", CollectionName).Wrap(err)
	}
	return nil
}

// Record implements Recorder.
func (r *MongoRecorder) Record(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.At), rand.Reader).String()
	}
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		r.logger.Error("audit insert failed",
			"kind", string(e.Kind),
			"user_id", e.UserID,
			"error", err)
	}
}

// Recent implements Recorder.
func (r *MongoRecorder) Recent(ctx context.Context, userID string, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(limit)
	filter := bson.M{"$or": bson.A{
		bson.M{"user_id": userID},
		bson.M{"actor_id": userID},
	}}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, oops.Code("AUDIT_QUERY_FAILED").With("user_id", userID).Wrap(err)
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, oops.Code("AUDIT_DECODE_FAILED").With("user_id", userID).Wrap(err)
	}
	return events, nil
}

// Nop discards events. Used when no MongoDB URI is configured.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) {}

// Recent implements Recorder.
func (Nop) Recent(context.Context, string, int64) ([]Event, error) { return []Event{}, nil }

var (
	_ Recorder = (*MongoRecorder)(nil)
	_ Recorder = Nop{}
)
