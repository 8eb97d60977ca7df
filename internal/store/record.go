package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// TTLStatus values reported by TTL for keys without an active deadline
const (
	// StatusNotFound means that the key does not exist (or has expired)
	StatusNotFound int64 = -2
	// StatusNoTimeout means that the key exists, but it does not have a TTL
	StatusNoTimeout int64 = -1
)

// Records are stored as JSON so that an empty scalar value is still a
// non-empty record on disk. Hash records are whole field maps, list records
// are whole sequences; element updates rewrite the full record.

func encodeScalar(value string) ([]byte, error) {
	return json.Marshal(value)
}

func decodeScalar(raw []byte) (string, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("decode scalar record: %w", err)
	}
	return value, nil
}

func encodeHash(fields map[string]string) ([]byte, error) {
	return json.Marshal(fields)
}

// decodeHash treats an absent record as an empty hash
func decodeHash(raw []byte) (map[string]string, error) {
	if raw == nil {
		return map[string]string{}, nil
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode hash record: %w", err)
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return fields, nil
}

func encodeList(items []string) ([]byte, error) {
	return json.Marshal(items)
}

// decodeList treats an absent record as an empty list
func decodeList(raw []byte) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode list record: %w", err)
	}
	return items, nil
}

// Expiry records hold a single absolute instant in unix milliseconds

func encodeExpiry(expireAt int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(expireAt))
	return buf
}

func decodeExpiry(raw []byte) (int64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("decode expiry record: want 8 bytes, got %d", len(raw))
	}
	return int64(binary.LittleEndian.Uint64(raw)), nil
}
