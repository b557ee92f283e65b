// Package subscription derives the trial/paid gate from the raw subscription
// document and the current time.
package subscription

import (
	"math"
	"time"
)

// Status is the normalized subscription status.
type Status string

const (
	StatusNone    Status = "none"
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// TrialLength is the edit window granted to a new account.
const TrialLength = 30 * 24 * time.Hour

// StorageKey is the local storage key of the last fetched record.
const StorageKey = "raja-yoga-subscription-v1"

// Record is the raw subscription document as stored remotely.
type Record struct {
	Status         string     `json:"subscriptionStatus"`
	TrialStartedAt *time.Time `json:"trialStartedAt,omitempty"`
	TrialEndsAt    *time.Time `json:"trialEndsAt,omitempty"`
	UpgradedAt     *time.Time `json:"upgradedAt,omitempty"`
}

// View is the derived, read-only gate exposed to the rest of the app.
type View struct {
	Status         Status     `json:"status"`
	TrialEndsAt    *time.Time `json:"trialEndsAt,omitempty"`
	DaysLeft       *int       `json:"daysLeft,omitempty"`
	IsTrialActive  bool       `json:"isTrialActive"`
	IsActivePaid   bool       `json:"isActivePaid"`
	IsExpired      bool       `json:"isExpired"`
	CanEditJourney bool       `json:"canEditJourney"`
	// Unrecognized is set when the raw status is none of the known values.
	// Such statuses are passed through but never grant edit access.
	Unrecognized bool `json:"unrecognized,omitempty"`
}

// NewTrial returns the record created on a user's first load.
func NewTrial(now time.Time) Record {
	start := now.UTC()
	end := start.Add(TrialLength)
	return Record{
		Status:         string(StatusTrial),
		TrialStartedAt: &start,
		TrialEndsAt:    &end,
	}
}

// Derive normalizes rec against now.
func Derive(rec Record, now time.Time) View {
	trialValid := rec.Status == string(StatusTrial) && rec.TrialEndsAt != nil && rec.TrialEndsAt.After(now)

	v := View{TrialEndsAt: rec.TrialEndsAt}
	switch {
	case trialValid:
		v.Status = StatusTrial
	case rec.Status == string(StatusActive):
		v.Status = StatusActive
	case rec.Status == string(StatusTrial):
		v.Status = StatusExpired
	case rec.Status == "" || rec.Status == string(StatusNone):
		v.Status = StatusNone
	case rec.Status == string(StatusExpired):
		v.Status = StatusExpired
	default:
		v.Status = Status(rec.Status)
		v.Unrecognized = true
	}

	v.IsActivePaid = v.Status == StatusActive
	v.IsTrialActive = v.Status == StatusTrial && rec.TrialEndsAt != nil && rec.TrialEndsAt.After(now)
	v.IsExpired = v.Status == StatusExpired || (!v.IsActivePaid && !v.IsTrialActive)
	v.CanEditJourney = v.IsActivePaid || v.IsTrialActive

	if v.IsTrialActive {
		days := int(math.Ceil(float64(rec.TrialEndsAt.Sub(now)) / float64(24*time.Hour)))
		days = max(days, 0)
		v.DaysLeft = &days
	}
	return v
}

// None is the view for a signed-out session.
func None() View {
	return Derive(Record{}, time.Now())
}
