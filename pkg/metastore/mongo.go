package metastore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unhoist/unhoist/pkg/observability"
)

// mongoEntry is the stored document shape. The key doubles as _id so
// overwrites are a single upsert.
type mongoEntry struct {
	Key       string    `bson:"_id"`
	Text      string    `bson:"text"`
	Size      int64     `bson:"size"`
	WrittenAt time.Time `bson:"written_at"`
}

// MongoStore backs the metadata cache with a MongoDB collection. Expiry is
// evaluated lazily at read time against the written_at field, matching the
// file store: stale documents are reported as misses but only removed when a
// capacity pass or an overwrite touches them.
type MongoStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	maxAge   time.Duration
	maxBytes int64
}

// NewMongoStore connects to uri and uses the given database and collection.
// maxAge 0 disables expiry; maxBytes 0 disables the capacity bound.
func NewMongoStore(ctx context.Context, uri, database, collection string, maxAge time.Duration, maxBytes int64) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client:   client,
		coll:     client.Database(database).Collection(collection),
		maxAge:   maxAge,
		maxBytes: maxBytes,
	}, nil
}

// Read returns the entry for key, or a miss when it is absent or older than
// the configured maximum age.
func (s *MongoStore) Read(ctx context.Context, key string) (string, bool, error) {
	var entry mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.Store().OnMiss(ctx, "mongo", key, false)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.maxAge > 0 && time.Since(entry.WrittenAt) > s.maxAge {
		observability.Store().OnMiss(ctx, "mongo", key, true)
		return "", false, nil
	}
	observability.Store().OnHit(ctx, "mongo", key)
	return entry.Text, true, nil
}

// Write upserts the entry with a fresh timestamp, evicting oldest-write-first
// when the collection would exceed the capacity bound.
func (s *MongoStore) Write(ctx context.Context, key, text string) error {
	if err := s.makeRoom(ctx, key, int64(len(text))); err != nil {
		return err
	}

	entry := mongoEntry{Key: key, Text: text, Size: int64(len(text)), WrittenAt: time.Now()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	observability.Store().OnWrite(ctx, "mongo", key, len(text))
	return nil
}

// Close disconnects from the server.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// makeRoom deletes entries, oldest written_at first, until existing entries
// other than key plus the incoming write fit under maxBytes.
func (s *MongoStore) makeRoom(ctx context.Context, key string, size int64) error {
	if s.maxBytes <= 0 {
		return nil
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "size": 1}).
		SetSort(bson.M{"written_at": 1})
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": key}}, opts)
	if err != nil {
		return err
	}

	var entries []mongoEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	for _, e := range entries {
		if total+size <= s.maxBytes {
			break
		}
		if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": e.Key}); err != nil {
			return err
		}
		observability.Store().OnEvict(ctx, "mongo", e.Key)
		total -= e.Size
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
