package serverdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus/sutra/internal/progress"
)

// Journey is a user's remote progress document.
type Journey struct {
	UserID         string
	Key            string
	State          progress.State
	ProgramKey     string
	ProgramVersion string
	UpdatedAt      time.Time
}

// JourneyWrite is a merge-write against a journey document. Nil fields keep
// whatever the stored document already has.
type JourneyWrite struct {
	DayRecords     map[int]progress.DayRecord
	WeekRecords    map[int]progress.WeekRecord
	Settings       *progress.Settings
	ProgramKey     *string
	ProgramVersion *string
}

// GetJourney returns the document for (userID, key), or nil if none exists.
func (db *ServerDB) GetJourney(userID, key string) (*Journey, error) {
	var days, weeks, settings string
	j := &Journey{}
	err := db.conn.QueryRow(
		`SELECT user_id, journey_key, day_records, week_records, settings, program_key, program_version, updated_at
		 FROM journeys WHERE user_id = ? AND journey_key = ?`,
		userID, key,
	).Scan(&j.UserID, &j.Key, &days, &weeks, &settings, &j.ProgramKey, &j.ProgramVersion, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}

	j.State = progress.Initial()
	if err := json.Unmarshal([]byte(days), &j.State.DayRecords); err != nil {
		return nil, fmt.Errorf("decode day records: %w", err)
	}
	if err := json.Unmarshal([]byte(weeks), &j.State.WeekRecords); err != nil {
		return nil, fmt.Errorf("decode week records: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &j.State.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	// "null" decodes to a nil map.
	j.State = j.State.Clone()
	return j, nil
}

// PutJourney merge-writes w into the document for (userID, key), creating it
// if needed. The server stamps updated_at; concurrent writers resolve as
// last writer wins per field.
func (db *ServerDB) PutJourney(userID, key string, w JourneyWrite) (*Journey, error) {
	if userID == "" || key == "" {
		return nil, fmt.Errorf("user id and journey key are required")
	}

	days, err := optionalJSON(w.DayRecords, w.DayRecords != nil)
	if err != nil {
		return nil, fmt.Errorf("encode day records: %w", err)
	}
	weeks, err := optionalJSON(w.WeekRecords, w.WeekRecords != nil)
	if err != nil {
		return nil, fmt.Errorf("encode week records: %w", err)
	}
	settings, err := optionalJSON(w.Settings, w.Settings != nil)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	now := time.Now().UTC()
	_, err = db.conn.Exec(`
		INSERT INTO journeys (user_id, journey_key, day_records, week_records, settings, program_key, program_version, updated_at)
		VALUES (?, ?, COALESCE(?, '{}'), COALESCE(?, '{}'), COALESCE(?, '{}'), COALESCE(?, ''), COALESCE(?, ''), ?)
		ON CONFLICT(user_id, journey_key) DO UPDATE SET
			day_records = COALESCE(?, journeys.day_records),
			week_records = COALESCE(?, journeys.week_records),
			settings = COALESCE(?, journeys.settings),
			program_key = COALESCE(?, journeys.program_key),
			program_version = COALESCE(?, journeys.program_version),
			updated_at = excluded.updated_at`,
		userID, key, days, weeks, settings, w.ProgramKey, w.ProgramVersion, now,
		days, weeks, settings, w.ProgramKey, w.ProgramVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("put journey: %w", err)
	}

	db.broker.publish(JourneyDocKey(userID, key))
	return db.GetJourney(userID, key)
}

// optionalJSON encodes v, or returns nil (SQL NULL) when present is false.
func optionalJSON(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
