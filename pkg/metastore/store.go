// Package metastore caches remote package metadata as keyed text blobs.
//
// Entries are keyed by bare package name and hold the serialized metadata
// record last fetched for that name. Every entry carries an externally
// tracked write timestamp; a configured maximum age turns stale entries into
// misses at read time (lazy expiry), and the file backend additionally bounds
// total stored bytes, evicting oldest-write-first under pressure.
//
// Values for a given key are content-stable, so concurrent writers racing on
// the same key are acceptable: last write wins and readers observe no
// inconsistency either way.
//
// Backends per environment:
//   - FileStore: the default for CLI usage
//   - RedisStore: shared cache for multi-instance deployments
//   - MongoStore: deployments that already run MongoDB
//   - NullStore: caching disabled, tests
package metastore

import "context"

// Store is the metadata cache contract.
//
// Read reports ok=false both for absent and for expired entries; callers
// treat the two uniformly as a miss. Write always overwrites any prior value
// for the key and refreshes its timestamp.
type Store interface {
	Read(ctx context.Context, key string) (text string, ok bool, err error)
	Write(ctx context.Context, key, text string) error
	Close() error
}
