package store

import (
	"sync"
	"time"

	"github.com/eternalApril/moonstone/internal/backend"
	"github.com/eternalApril/moonstone/internal/expiry"
	"go.uber.org/zap"
)

// valuePartitions are the partitions a key's value may live in.
// Del clears a key from every one of them unconditionally
var valuePartitions = []string{
	backend.PartitionKeyValue,
	backend.PartitionHash,
	backend.PartitionList,
}

// Store is the engine facade: the public operation set composed out of
// per-partition transactions against the backend plus the expiry scheduler.
//
// Every operation is atomic within a single partition only. Compound
// operations (Del across three partitions, Expire's persist-then-schedule)
// are sequences of independent transactions: a failure in a later step
// leaves earlier steps committed
type Store struct {
	backend *backend.Backend
	sched   *expiry.Scheduler
	logger  *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates the facade, re-registers every persisted expiry record with the
// scheduler so active expiry survives restarts, and starts the reap loop
func New(b *backend.Backend, logger *zap.Logger) (*Store, error) {
	s := &Store{
		backend: b,
		sched:   expiry.New(logger),
		logger:  logger,
	}

	if err := s.reloadExpiry(); err != nil {
		s.sched.Stop()
		return nil, err
	}

	s.wg.Add(1)
	go s.reapLoop()

	return s, nil
}

// Close stops the scheduler and waits until the reap loop drains.
// The backend handle is not closed, the caller owns it
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		s.sched.Stop()
		s.wg.Wait()
		s.logger.Info("store closed")
	})
}

// reloadExpiry scans the expiry partition and schedules every record.
// Past-due records fire immediately and get reaped by the loop
func (s *Store) reloadExpiry() error {
	count := 0
	err := s.backend.View(backend.PartitionExpiry, func(tx *backend.Tx) error {
		return tx.ForEach(func(key string, value []byte) error {
			expireAt, err := decodeExpiry(value)
			if err != nil {
				s.logger.Warn("skipping bad expiry record", zap.String("key", key), zap.Error(err))
				return nil
			}
			s.sched.Schedule(key, expireAt)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	if count > 0 {
		s.logger.Info("expiry records rescheduled", zap.Int("count", count))
	}
	return nil
}

// reapLoop consumes scheduler events until Close
func (s *Store) reapLoop() {
	defer s.wg.Done()

	for key := range s.sched.Expired() {
		s.reap(key)
	}
}

// reap handles one scheduler event: delete the key's value everywhere and
// drop its expiry record, but only if the persisted record still says the
// key is due. A record that was re-registered with a later deadline, or
// removed entirely, means this fire is stale and must be ignored
func (s *Store) reap(key string) {
	expireAt, ok, err := s.expiryRecord(key)
	if err != nil {
		s.logger.Error("reap: read expiry record failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !ok || expireAt > time.Now().UnixMilli() {
		return // superseded registration
	}

	if err := s.Del(key); err != nil {
		s.logger.Error("reap: delete failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.removeExpiry(key); err != nil {
		s.logger.Error("reap: remove expiry record failed", zap.String("key", key), zap.Error(err))
		return
	}

	if s.logger.Core().Enabled(zap.DebugLevel) {
		s.logger.Debug("key expired", zap.String("key", key))
	}
}

// Del deletes the key's record from all three value stores, one transaction
// per partition. Deleting an absent key is a no-op. The expiry record, if
// any, is left behind: only the reap path clears it
func (s *Store) Del(key string) error {
	for _, partition := range valuePartitions {
		err := s.backend.Update(partition, func(tx *backend.Tx) error {
			return tx.Delete(key)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Expire sets the key's time-to-live in seconds: it persists the absolute
// deadline and then registers it with the scheduler. Re-registering replaces
// the previous record, the superseded timer fire is ignored by reap
func (s *Store) Expire(key string, seconds int64) error {
	return s.ExpireMillis(key, seconds*1000)
}

// ExpireMillis is Expire with millisecond precision
func (s *Store) ExpireMillis(key string, millis int64) error {
	expireAt := time.Now().UnixMilli() + millis

	if err := s.setExpiry(key, expireAt); err != nil {
		return err
	}

	s.sched.Schedule(key, expireAt)
	return nil
}

// TTL computes the remaining lifetime in whole seconds, rounding up.
// Returns StatusNoTimeout for a key that exists without a deadline and
// StatusNotFound for a key that does not exist, or whose deadline has
// passed but has not been reaped yet (no eager cleanup on this path)
func (s *Store) TTL(key string) (int64, error) {
	millis, err := s.TTLMillis(key)
	if err != nil || millis < 0 {
		return millis, err
	}
	return (millis + 999) / 1000, nil
}

// TTLMillis is TTL with millisecond precision
func (s *Store) TTLMillis(key string) (int64, error) {
	expireAt, ok, err := s.expiryRecord(key)
	if err != nil {
		return 0, err
	}

	if !ok {
		exists, err := s.exists(key)
		if err != nil {
			return 0, err
		}
		if exists {
			return StatusNoTimeout, nil
		}
		return StatusNotFound, nil
	}

	remaining := expireAt - time.Now().UnixMilli()
	if remaining <= 0 {
		return StatusNotFound, nil
	}
	return remaining, nil
}

// Persist removes the key's expiry record, making it eternal.
// Returns 1 if a record existed, 0 otherwise. An already-scheduled timer
// keeps running but its fire is a no-op once the record is gone
func (s *Store) Persist(key string) (int64, error) {
	_, ok, err := s.expiryRecord(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	if err := s.removeExpiry(key); err != nil {
		return 0, err
	}
	return 1, nil
}

// Exists reports whether the key holds a value in any of the three value
// stores. An expired-but-unreaped key reads as absent
func (s *Store) Exists(key string) (bool, error) {
	expired, err := s.expiredNow(key)
	if err != nil || expired {
		return false, err
	}
	return s.exists(key)
}

// exists probes the three value stores without consulting the expiry record
func (s *Store) exists(key string) (bool, error) {
	for _, partition := range valuePartitions {
		var found bool
		err := s.backend.View(partition, func(tx *backend.Tx) error {
			found = tx.Has(key)
			return nil
		})
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// expiryRecord returns the key's persisted deadline, if any
func (s *Store) expiryRecord(key string) (int64, bool, error) {
	var raw []byte
	err := s.backend.View(backend.PartitionExpiry, func(tx *backend.Tx) error {
		if v := tx.Get(key); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}

	expireAt, err := decodeExpiry(raw)
	if err != nil {
		return 0, false, err
	}
	return expireAt, true, nil
}

// expiredNow reports whether the key has a deadline in the past.
// Read paths use it to hide expired-but-unreaped values without deleting them
func (s *Store) expiredNow(key string) (bool, error) {
	expireAt, ok, err := s.expiryRecord(key)
	if err != nil {
		return false, err
	}
	return ok && expireAt <= time.Now().UnixMilli(), nil
}

func (s *Store) setExpiry(key string, expireAt int64) error {
	return s.backend.Update(backend.PartitionExpiry, func(tx *backend.Tx) error {
		return tx.Put(key, encodeExpiry(expireAt))
	})
}

// removeExpiry deletes the expiry record if present, no-op otherwise
func (s *Store) removeExpiry(key string) error {
	return s.backend.Update(backend.PartitionExpiry, func(tx *backend.Tx) error {
		return tx.Delete(key)
	})
}
