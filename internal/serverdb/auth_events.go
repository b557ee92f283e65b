package serverdb

import (
	"fmt"
	"time"
)

// AuthEvent represents a row in the auth_events table.
type AuthEvent struct {
	ID        int64
	UserID    string
	Email     string
	EventType string
	Metadata  string
	CreatedAt time.Time
}

// Auth event type constants.
const (
	AuthEventSignup      = "signup"
	AuthEventLogin       = "login"
	AuthEventLoginFailed = "login_failed"
	AuthEventLogout      = "logout"
)

// InsertAuthEvent inserts an auth event row. userID may be empty for failed
// logins against unknown emails.
func (db *ServerDB) InsertAuthEvent(userID, email, eventType, metadata string) error {
	if metadata == "" {
		metadata = "{}"
	}
	_, err := db.conn.Exec(
		`INSERT INTO auth_events (user_id, email, event_type, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, email, eventType, metadata, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// RecentAuthEvents returns up to limit events for email, newest first.
func (db *ServerDB) RecentAuthEvents(email string, limit int) ([]AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, user_id, email, event_type, metadata, created_at FROM auth_events
		 WHERE email = ? ORDER BY id DESC LIMIT ?`,
		email, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query auth events: %w", err)
	}
	defer rows.Close()

	var events []AuthEvent
	for rows.Next() {
		var e AuthEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &e.EventType, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth events: %w", err)
	}
	return events, nil
}

// CountRecentLoginFailures returns failed logins for email since the cutoff.
func (db *ServerDB) CountRecentLoginFailures(email string, since time.Time) (int, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM auth_events WHERE email = ? AND event_type = ? AND created_at >= ?`,
		email, AuthEventLoginFailed, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}
	return n, nil
}

// CleanupAuthEvents deletes auth events older than the given duration.
// Returns the number of rows deleted.
func (db *ServerDB) CleanupAuthEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := db.conn.Exec(`DELETE FROM auth_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup auth events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
