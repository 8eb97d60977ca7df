package store

import (
	"github.com/eternalApril/moonstone/internal/backend"
)

// Set upserts the scalar record for key. It touches neither the hash/list
// partitions nor the expiry record
func (s *Store) Set(key, value string) error {
	record, err := encodeScalar(value)
	if err != nil {
		return err
	}

	return s.backend.Update(backend.PartitionKeyValue, func(tx *backend.Tx) error {
		return tx.Put(key, record)
	})
}

// Get returns the scalar value for key. A missing record, or a key whose
// deadline has passed but was not reaped yet, reads as absent
func (s *Store) Get(key string) (string, bool, error) {
	expired, err := s.expiredNow(key)
	if err != nil || expired {
		return "", false, err
	}

	var raw []byte
	err = s.backend.View(backend.PartitionKeyValue, func(tx *backend.Tx) error {
		if v := tx.Get(key); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return "", false, err
	}

	value, err := decodeScalar(raw)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// HSet sets field to value in the hash stored at key, creating the hash if
// absent. The whole record is rewritten inside one transaction. Returns 1 if
// the field was newly created, 0 if it overwrote an existing field
func (s *Store) HSet(key, field, value string) (int64, error) {
	var created int64
	err := s.backend.Update(backend.PartitionHash, func(tx *backend.Tx) error {
		fields, err := decodeHash(tx.Get(key))
		if err != nil {
			return err
		}

		if _, ok := fields[field]; !ok {
			created = 1
		}
		fields[field] = value

		record, err := encodeHash(fields)
		if err != nil {
			return err
		}
		return tx.Put(key, record)
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// HGet returns the value of field in the hash stored at key. A missing hash
// or a missing field is a normal not-found outcome, never an error
func (s *Store) HGet(key, field string) (string, bool, error) {
	expired, err := s.expiredNow(key)
	if err != nil || expired {
		return "", false, err
	}

	var value string
	var found bool
	err = s.backend.View(backend.PartitionHash, func(tx *backend.Tx) error {
		fields, err := decodeHash(tx.Get(key))
		if err != nil {
			return err
		}
		value, found = fields[field]
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// LPush prepends values to the list stored at key as a block: the first
// given value ends up at the head. Returns the new length
func (s *Store) LPush(key string, values ...string) (int64, error) {
	return s.push(key, values, true)
}

// RPush appends values to the list stored at key in the given order.
// Returns the new length
func (s *Store) RPush(key string, values ...string) (int64, error) {
	return s.push(key, values, false)
}

func (s *Store) push(key string, values []string, front bool) (int64, error) {
	var length int64
	err := s.backend.Update(backend.PartitionList, func(tx *backend.Tx) error {
		items, err := decodeList(tx.Get(key))
		if err != nil {
			return err
		}

		if front {
			items = append(append([]string(nil), values...), items...)
		} else {
			items = append(items, values...)
		}
		length = int64(len(items))

		record, err := encodeList(items)
		if err != nil {
			return err
		}
		return tx.Put(key, record)
	})
	return length, err
}

// LPop removes and returns the head of the list stored at key.
// An absent or empty list returns no value and performs no write
func (s *Store) LPop(key string) (string, bool, error) {
	return s.pop(key, true)
}

// RPop removes and returns the tail of the list stored at key.
// An absent or empty list returns no value and performs no write
func (s *Store) RPop(key string) (string, bool, error) {
	return s.pop(key, false)
}

func (s *Store) pop(key string, front bool) (string, bool, error) {
	var value string
	var found bool
	err := s.backend.Update(backend.PartitionList, func(tx *backend.Tx) error {
		items, err := decodeList(tx.Get(key))
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		if front {
			value, items = items[0], items[1:]
		} else {
			value, items = items[len(items)-1], items[:len(items)-1]
		}
		found = true

		record, err := encodeList(items)
		if err != nil {
			return err
		}
		return tx.Put(key, record)
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// LRange returns the inclusive slice [start, stop] of the list stored at key.
// Negative indexes count from the end (-1 is the last element), out-of-range
// bounds clamp, and a start past the end yields an empty result. An absent
// list reads as empty
func (s *Store) LRange(key string, start, stop int64) ([]string, error) {
	expired, err := s.expiredNow(key)
	if err != nil {
		return nil, err
	}
	if expired {
		return []string{}, nil
	}

	var items []string
	err = s.backend.View(backend.PartitionList, func(tx *backend.Tx) error {
		var err error
		items, err = decodeList(tx.Get(key))
		return err
	})
	if err != nil {
		return nil, err
	}

	length := int64(len(items))
	if start < 0 {
		start += length
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += length
	}
	if stop >= length {
		stop = length - 1
	}

	if start >= length || start > stop {
		return []string{}, nil
	}

	result := make([]string, stop-start+1)
	copy(result, items[start:stop+1])
	return result, nil
}
