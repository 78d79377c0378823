// Package ledger provides an append-only event history for growflow.
// Every phase change, watering and note lands here for auditing; entity
// snapshots and the API event feed read from it.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventPhaseChanged   EventType = "phase_changed"
	EventWateringAdded  EventType = "watering_added"
	EventNoteAdded      EventType = "note_added"
	EventSensorReading  EventType = "sensor_reading"
	EventActionFailed   EventType = "action_failed"
	EventActionComplete EventType = "action_completed"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64          `json:"-"`
	EventID   string         `json:"event_id"`
	EventType EventType      `json:"event_type"`
	PlantID   string         `json:"plant_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Ledger provides append-only event logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new event to the ledger
func (l *Ledger) Append(eventType EventType, eventID, plantID string, payload map[string]any) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	now := time.Now().UTC().Unix()

	_, err = l.db.Exec(`
		INSERT INTO event_ledger (event_id, event_type, plant_id, timestamp, payload)
		VALUES (?, ?, ?, ?, ?)
	`, eventID, string(eventType), plantID, now, string(payloadJSON))

	return err
}

// GetByPlant returns the most recent entries for a plant, newest first.
func (l *Ledger) GetByPlant(plantID string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_id, event_type, plant_id, timestamp, payload
		FROM event_ledger
		WHERE plant_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, plantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByType returns entries filtered by event type, newest first.
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_id, event_type, plant_id, timestamp, payload
		FROM event_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM event_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr sql.NullString
		var plantID sql.NullString
		var timestamp int64

		err := rows.Scan(&entry.ID, &entry.EventID, &entry.EventType, &plantID, &timestamp, &payloadStr)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.PlantID = plantID.String

		if payloadStr.Valid && payloadStr.String != "" {
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
