// Package readings stores the latest value reported for each external
// sensor. Growboxes reference sensors by key only; readings arrive through
// the ingest endpoint and expire after a configurable TTL so stale values
// stop feeding derived metrics.
package readings

import (
	"database/sql"
	"fmt"
	"time"
)

// Store persists the latest reading per sensor key.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore creates a readings store. A zero ttl means readings never expire.
func NewStore(db *sql.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Record upserts the value for a sensor key.
func (s *Store) Record(sensor string, value float64) error {
	now := time.Now().UTC().Unix()

	var expiresAt *int64
	if s.ttl > 0 {
		exp := time.Now().Add(s.ttl).UTC().Unix()
		expiresAt = &exp
	}

	_, err := s.db.Exec(`
		INSERT INTO sensor_readings (sensor, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sensor) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, sensor, value, expiresAt, now)

	if err != nil {
		return fmt.Errorf("failed to record reading: %w", err)
	}
	return nil
}

// Latest returns the current value for a sensor key. ok is false when no
// reading exists or the stored one has expired.
func (s *Store) Latest(sensor string) (value float64, ok bool) {
	var expiresAt sql.NullInt64

	err := s.db.QueryRow(`
		SELECT value, expires_at FROM sensor_readings
		WHERE sensor = ?
	`, sensor).Scan(&value, &expiresAt)

	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		return 0, false
	}

	if expiresAt.Valid && time.Now().UTC().Unix() > expiresAt.Int64 {
		// Expired - delete and report absent
		_, _ = s.db.Exec(`DELETE FROM sensor_readings WHERE sensor = ?`, sensor)
		return 0, false
	}

	return value, true
}

// Purge removes expired readings.
func (s *Store) Purge() (int64, error) {
	now := time.Now().UTC().Unix()
	result, err := s.db.Exec(`
		DELETE FROM sensor_readings WHERE expires_at IS NOT NULL AND expires_at < ?
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
