// Package repository provides persistence for administrator-managed
// settings. When MongoDB is not configured the in-memory store keeps the
// service usable with margins lasting for the process lifetime.
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const marginsCollection = "margins"

var ErrInvalidMarginKey = errors.New("invalid margin key")

// MarginStore stores per-user price margins. Each user carries their own
// margin set; a user with no stored margins gets unadjusted prices.
type MarginStore interface {
	// GetMargins returns a user's margins keyed by "<CODE>_<side>_marj".
	// Unknown users yield an empty map, not an error.
	GetMargins(ctx context.Context, userID string) (map[string]float64, error)
	// UpdateMargin sets one margin for a user. A value of zero keeps the
	// key with a neutral adjustment.
	UpdateMargin(ctx context.Context, userID, key string, value float64) error
}

// MemoryMarginStore is a process-local MarginStore.
type MemoryMarginStore struct {
	mu      sync.RWMutex
	margins map[string]map[string]float64
}

func NewMemoryMarginStore() *MemoryMarginStore {
	return &MemoryMarginStore{margins: make(map[string]map[string]float64)}
}

func (s *MemoryMarginStore) GetMargins(_ context.Context, userID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.margins[userID]))
	for k, v := range s.margins[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryMarginStore) UpdateMargin(_ context.Context, userID, key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.margins[userID] == nil {
		s.margins[userID] = make(map[string]float64)
	}
	s.margins[userID][key] = value
	return nil
}

// MongoMarginStore persists margins in a MongoDB collection, one document
// per user and margin key.
type MongoMarginStore struct {
	collection *mongo.Collection
}

func NewMongoMarginStore(db *mongo.Database) *MongoMarginStore {
	return &MongoMarginStore{collection: db.Collection(marginsCollection)}
}

type marginDocument struct {
	UserID    string    `bson:"user_id"`
	Key       string    `bson:"key"`
	Value     float64   `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *MongoMarginStore) GetMargins(ctx context.Context, userID string) (map[string]float64, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string]float64)
	for cursor.Next(ctx) {
		var doc marginDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.Key] = doc.Value
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoMarginStore) UpdateMargin(ctx context.Context, userID, key string, value float64) error {
	update := bson.M{"$set": bson.M{
		"user_id":    userID,
		"key":        key,
		"value":      value,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.Update().SetUpsert(true)
	_, err := s.collection.UpdateOne(ctx, bson.M{"user_id": userID, "key": key}, update, opts)
	return err
}
