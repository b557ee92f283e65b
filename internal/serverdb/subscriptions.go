package serverdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/sutra/internal/subscription"
)

// Subscription is a user's remote subscription document.
type Subscription struct {
	UserID string
	subscription.Record
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetSubscription returns the subscription document for userID, or nil if none exists.
func (db *ServerDB) GetSubscription(userID string) (*Subscription, error) {
	s := &Subscription{}
	err := db.conn.QueryRow(
		`SELECT user_id, status, trial_started_at, trial_ends_at, upgraded_at, created_at, updated_at
		 FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&s.UserID, &s.Status, &s.TrialStartedAt, &s.TrialEndsAt, &s.UpgradedAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

// EnsureSubscription returns the user's subscription document, creating a
// fresh trial starting at now if the user has none. created reports whether
// the trial was created by this call.
func (db *ServerDB) EnsureSubscription(userID string, now time.Time) (sub *Subscription, created bool, err error) {
	if userID == "" {
		return nil, false, fmt.Errorf("user id is required")
	}
	trial := subscription.NewTrial(now)
	stamp := now.UTC()
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO subscriptions (user_id, status, trial_started_at, trial_ends_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, trial.Status, trial.TrialStartedAt, trial.TrialEndsAt, stamp, stamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("create trial: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		created = true
		db.broker.publish(SubscriptionDocKey(userID))
	}

	sub, err = db.GetSubscription(userID)
	if err != nil {
		return nil, false, err
	}
	return sub, created, nil
}

// MarkSubscriptionActive merge-updates the user's document to status active,
// creating the document if it does not exist. Trial timestamps are kept.
func (db *ServerDB) MarkSubscriptionActive(userID string, now time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	stamp := now.UTC()
	_, err := db.conn.Exec(`
		INSERT INTO subscriptions (user_id, status, upgraded_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			status = excluded.status,
			upgraded_at = excluded.upgraded_at,
			updated_at = excluded.updated_at`,
		userID, string(subscription.StatusActive), stamp, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("mark subscription active: %w", err)
	}
	db.broker.publish(SubscriptionDocKey(userID))
	return nil
}
