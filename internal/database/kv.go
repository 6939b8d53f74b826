package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the value stored under key. The bool is false when the key
// has never been set.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (db *DB) Set(key, value string) error {
	_, err := db.conn.Exec(`
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored key with the time it was last written.
func (db *DB) Keys() (map[string]string, error) {
	rows, err := db.conn.Query("SELECT key, updated_at FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, at string
		if err := rows.Scan(&k, &at); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		out[k] = at
	}
	return out, rows.Err()
}
