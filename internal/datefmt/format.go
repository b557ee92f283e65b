package datefmt

import (
	"fmt"
	"time"
)

// Style selects how much of a date is spelled out.
type Style int

const (
	// Short is numeric with two-digit day and month, e.g. 02/01/2006.
	Short Style = iota
	// Medium abbreviates the month, e.g. 2 Jan 2006.
	Medium
	// Long spells the month out, e.g. 2 January 2006.
	Long
)

// Placeholder stands in for a missing date.
const Placeholder = "—"

var dottedLanguages = map[string]bool{
	"da": true, "de": true, "fi": true, "no": true, "nb": true, "nn": true,
	"cs": true, "sk": true, "pl": true, "ro": true, "hr": true, "sl": true,
	"bg": true, "ru": true, "tr": true,
}

var danishMonths = [...]string{
	"januar", "februar", "marts", "april", "maj", "juni",
	"juli", "august", "september", "oktober", "november", "december",
}

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Format renders t's calendar date for locale. An empty locale means
// DetectRuntime().
func Format(t time.Time, locale string, style Style) string {
	if locale == "" {
		locale = DetectRuntime()
	}
	lang, country := split(Normalize(locale))
	us := lang == "en" && country == "US"

	switch style {
	case Medium:
		return spelled(t, lang, us, true)
	case Long:
		return spelled(t, lang, us, false)
	default:
		switch {
		case us:
			return t.Format("01/02/2006")
		case dottedLanguages[lang]:
			return t.Format("02.01.2006")
		case lang == "nl":
			return t.Format("02-01-2006")
		default:
			return t.Format("02/01/2006")
		}
	}
}

// FormatPtr is Format for an optional date; nil yields Placeholder.
func FormatPtr(t *time.Time, locale string, style Style) string {
	if t == nil {
		return Placeholder
	}
	return Format(*t, locale, style)
}

func spelled(t time.Time, lang string, us, abbrev bool) string {
	month := monthName(t.Month(), lang, abbrev)
	switch {
	case us:
		return fmt.Sprintf("%s %d, %d", month, t.Day(), t.Year())
	case dottedLanguages[lang] && lang != "bg" && lang != "ru" && lang != "tr":
		return fmt.Sprintf("%d. %s %d", t.Day(), month, t.Year())
	default:
		return fmt.Sprintf("%d %s %d", t.Day(), month, t.Year())
	}
}

func monthName(m time.Month, lang string, abbrev bool) string {
	switch lang {
	case "da":
		return abbreviate(danishMonths[m-1], abbrev, 3, ".")
	case "de":
		return abbreviate(germanMonths[m-1], abbrev, 4, ".")
	default:
		return abbreviate(m.String(), abbrev, 0, "")
	}
}

// abbreviate cuts name to three letters plus suffix unless it is at most
// keep runes long already.
func abbreviate(name string, abbrev bool, keep int, suffix string) string {
	r := []rune(name)
	if !abbrev || len(r) <= keep || len(r) <= 3 {
		return name
	}
	return string(r[:3]) + suffix
}
