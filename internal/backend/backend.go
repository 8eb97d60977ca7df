package backend

import (
	"errors"
	"fmt"
	"io"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Partition names. Every transaction is scoped to exactly one of them.
const (
	PartitionKeyValue = "keyValue"
	PartitionHash     = "hash"
	PartitionList     = "list"
	PartitionExpiry   = "expiry"
)

// Partitions lists every partition created at schema-initialization time
var Partitions = []string{
	PartitionKeyValue,
	PartitionHash,
	PartitionList,
	PartitionExpiry,
}

var (
	// ErrUnavailable means the database file cannot be opened or used
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnknownPartition means a transaction was requested against a partition that was never created
	ErrUnknownPartition = errors.New("unknown partition")
)

// Backend is a durable, ordered key-value store divided into named partitions.
// Each partition is independently transactable; a read-write transaction
// commits atomically or not at all. Writers are serialized internally,
// so at most one read-write transaction is in flight at a time
type Backend struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Open opens (creating if necessary) the database file and ensures
// all named partitions exist
func Open(path string, openTimeout time.Duration, logger *zap.Logger) (*Backend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range Partitions {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create partition %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info("backend opened",
		zap.String("path", path),
		zap.Int("partitions", len(Partitions)),
	)

	return &Backend{db: db, logger: logger}, nil
}

// Tx is a transaction scoped to a single partition
type Tx struct {
	bucket *bolt.Bucket
}

// Get returns the value for key, or nil if the key is absent.
// The returned slice is only valid for the duration of the transaction
func (t *Tx) Get(key string) []byte {
	return t.bucket.Get([]byte(key))
}

// Put upserts the value for key
func (t *Tx) Put(key string, value []byte) error {
	return t.bucket.Put([]byte(key), value)
}

// Delete removes the key. Deleting an absent key is a no-op
func (t *Tx) Delete(key string) error {
	return t.bucket.Delete([]byte(key))
}

// Has reports whether the key holds a record
func (t *Tx) Has(key string) bool {
	return t.bucket.Get([]byte(key)) != nil
}

// Count returns the number of records in the partition
func (t *Tx) Count() int {
	return t.bucket.Stats().KeyN
}

// ForEach iterates over all records in the partition in key order.
// fn must not retain key or value beyond the callback
func (t *Tx) ForEach(fn func(key string, value []byte) error) error {
	return t.bucket.ForEach(func(k, v []byte) error {
		return fn(string(k), v)
	})
}

// View runs fn inside a read-only transaction against one partition
func (b *Backend) View(partition string, fn func(*Tx) error) error {
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(partition))
		if bucket == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPartition, partition)
		}
		return fn(&Tx{bucket: bucket})
	})
	if err != nil {
		return fmt.Errorf("partition %q: %w", partition, err)
	}
	return nil
}

// Update runs fn inside a read-write transaction against one partition.
// Either every mutation made by fn commits, or none do
func (b *Backend) Update(partition string, fn func(*Tx) error) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(partition))
		if bucket == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPartition, partition)
		}
		return fn(&Tx{bucket: bucket})
	})
	if err != nil {
		return fmt.Errorf("partition %q: transaction failed: %w", partition, err)
	}
	return nil
}

// Snapshot streams a consistent copy of the entire database to w.
// Safe to call while the database is in use
func (b *Backend) Snapshot(w io.Writer) (int64, error) {
	var n int64
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	return n, err
}

// Close releases the database file lock. Operations after Close fail
func (b *Backend) Close() error {
	return b.db.Close()
}
