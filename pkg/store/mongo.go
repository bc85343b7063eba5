package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

const (
	mongoDatabase   = "depscout"
	mongoCollection = "cache_entries"
)

// mongoEntry is the persisted document shape.
type mongoEntry struct {
	Key       string `bson:"_id"`
	Payload   []byte `bson:"payload"`
	ExpiresAt int64  `bson:"expires_at"`
}

// MongoStore is a MongoDB-backed store for shared deployments. Entries
// live in one collection keyed by cache key with an index on the
// expiration column for efficient sweeps.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to the MongoDB instance at uri and prepares
// the cache collection. A bare host:port is accepted alongside a full
// mongodb:// URI.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	if !strings.Contains(uri, "://") {
		uri = "mongodb://" + uri
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot connect to mongodb at %s", uri)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot reach mongodb at %s", uri)
	}

	coll := client.Database(mongoDatabase).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "expires_at", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot create expiration index")
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Get retrieves the payload for key if a non-expired entry exists.
func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": time.Now().Unix()}}

	var entry mongoEntry
	err := s.coll.FindOne(ctx, filter).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache get %s", key)
	}
	return entry.Payload, true, nil
}

// Set upserts the entry with expiration now+ttl.
func (s *MongoStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	entry := mongoEntry{
		Key:       key,
		Payload:   payload,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache set %s", key)
	}
	return nil
}

// Remove deletes a single entry. Absent keys are not an error.
func (s *MongoStore) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache remove %s", key)
	}
	return nil
}

// SweepExpired deletes all expired entries and returns the count removed.
func (s *MongoStore) SweepExpired(ctx context.Context) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().Unix()}})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache sweep")
	}
	return int(res.DeletedCount), nil
}

// Count returns the total number of entries and how many are expired.
func (s *MongoStore) Count(ctx context.Context) (int, int, error) {
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache count")
	}
	expired, err := s.coll.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().Unix()}})
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache count")
	}
	return int(total), int(expired), nil
}

// Clear removes every entry.
func (s *MongoStore) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache clear")
	}
	return nil
}

// Close disconnects from the server.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store and the diagnostics interfaces.
var (
	_ Store   = (*MongoStore)(nil)
	_ Counter = (*MongoStore)(nil)
	_ Clearer = (*MongoStore)(nil)
)
