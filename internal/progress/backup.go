package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidBackup is returned by Import for anything that is not a
// complete progress backup.
var ErrInvalidBackup = errors.New("file does not look like a progress backup")

// Export encodes s in the backup/local-storage shape.
func Export(s State) ([]byte, error) {
	s = s.Clone()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return data, nil
}

// Import decodes a backup produced by Export. It is all-or-nothing: any
// structural problem rejects the whole file.
func Import(data []byte) (State, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return State{}, fmt.Errorf("%w: not a JSON object", ErrInvalidBackup)
	}

	days, ok := pick(top, "dayRecords", "dayProgress")
	if !ok {
		return State{}, fmt.Errorf("%w: missing dayRecords", ErrInvalidBackup)
	}
	weeks, ok := pick(top, "weekRecords", "weekProgress")
	if !ok {
		return State{}, fmt.Errorf("%w: missing weekRecords", ErrInvalidBackup)
	}
	rawSettings, ok := top["settings"]
	if !ok {
		return State{}, fmt.Errorf("%w: missing settings", ErrInvalidBackup)
	}

	s := Initial()

	var dayMap map[string]DayRecord
	if err := decodeSection(days, &dayMap); err != nil {
		return State{}, fmt.Errorf("%w: dayRecords: %v", ErrInvalidBackup, err)
	}
	for k, rec := range dayMap {
		n, err := recordKey(k, TotalDays)
		if err != nil {
			return State{}, fmt.Errorf("%w: dayRecords: %v", ErrInvalidBackup, err)
		}
		if rec.DayNumber != n {
			return State{}, fmt.Errorf("%w: day %d stored under key %q", ErrInvalidBackup, rec.DayNumber, k)
		}
		s.DayRecords[n] = rec
	}

	var weekMap map[string]WeekRecord
	if err := decodeSection(weeks, &weekMap); err != nil {
		return State{}, fmt.Errorf("%w: weekRecords: %v", ErrInvalidBackup, err)
	}
	for k, rec := range weekMap {
		n, err := recordKey(k, TotalWeeks)
		if err != nil {
			return State{}, fmt.Errorf("%w: weekRecords: %v", ErrInvalidBackup, err)
		}
		if rec.Week != n {
			return State{}, fmt.Errorf("%w: week %d stored under key %q", ErrInvalidBackup, rec.Week, k)
		}
		s.WeekRecords[n] = rec
	}

	var settings struct {
		StartDate *string `json:"startDate"`
	}
	if err := decodeSection(rawSettings, &settings); err != nil {
		return State{}, fmt.Errorf("%w: settings: %v", ErrInvalidBackup, err)
	}
	if settings.StartDate != nil && *settings.StartDate != "" {
		if _, err := ParseStartDate(*settings.StartDate); err != nil {
			return State{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		s.Settings.StartDate = *settings.StartDate
	}

	return s, nil
}

// pick returns the first present key; older app versions wrote
// dayProgress/weekProgress.
func pick(top map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := top[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// decodeSection decodes an object section. A JSON null is treated as empty.
func decodeSection(raw json.RawMessage, v any) error {
	if string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func recordKey(k string, limit int) (int, error) {
	n, err := strconv.Atoi(k)
	if err != nil {
		return 0, fmt.Errorf("non-numeric key %q", k)
	}
	if n < 1 || n > limit {
		return 0, fmt.Errorf("key %d out of range 1..%d", n, limit)
	}
	return n, nil
}
