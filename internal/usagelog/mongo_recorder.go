package usagelog

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"goldprice-api/internal/models"
)

const (
	usageCollection = "api_usage_logs"
	paidCollection  = "paid_api_logs"

	writeTimeout = 3 * time.Second
)

// MongoRecorder persists usage entries to MongoDB. Every entry goes to
// api_usage_logs; entries for the paid upstream are additionally counted
// in paid_api_logs so the monthly call quota can be audited.
type MongoRecorder struct {
	db *mongo.Database
}

// NewMongoRecorder creates a Mongo-backed recorder.
func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{db: db}
}

// Record implements Recorder. Writes happen on a background goroutine
// with a short timeout; a failed write never affects the caller.
func (r *MongoRecorder) Record(_ context.Context, entry Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		doc := bson.M{
			"source":     entry.Source,
			"success":    entry.Success,
			"latency_ms": entry.LatencyMs,
			"created_at": time.Now().UTC(),
		}
		if entry.ErrorMessage != "" {
			doc["error"] = entry.ErrorMessage
		}
		if entry.Endpoint != "" {
			doc["endpoint"] = entry.Endpoint
		}
		if entry.UserID != "" {
			doc["user_id"] = entry.UserID
			doc["username"] = entry.Username
			doc["role"] = entry.Role
		}
		if entry.IP != "" {
			doc["ip"] = entry.IP
		}

		if _, err := r.db.Collection(usageCollection).InsertOne(ctx, doc); err != nil {
			logrus.WithError(err).Debug("failed to write usage log")
		}

		if entry.Source != models.SourcePaid {
			return
		}
		paidDoc := bson.M{
			"success":    entry.Success,
			"latency_ms": entry.LatencyMs,
			"created_at": time.Now().UTC(),
		}
		if _, err := r.db.Collection(paidCollection).InsertOne(ctx, paidDoc); err != nil {
			logrus.WithError(err).Debug("failed to write paid api log")
		}
	}()
}
