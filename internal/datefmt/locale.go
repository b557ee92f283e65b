// Package datefmt picks a display locale for dates when none is configured
// and formats dates for that locale.
//
// Detection is a static fallback table. Day/month/year ordering is preferred
// whenever anything points at Europe, and "en-GB" is the final fallback.
package datefmt

import (
	"os"
	"slices"
	"strings"
	"time"
)

// Fallback is returned when nothing better can be inferred.
const Fallback = "en-GB"

var europeanCountries = []string{
	"DK", "DE", "FR", "GB", "IT", "ES", "NL", "BE", "AT", "CH", "SE", "NO",
	"FI", "PL", "PT", "GR", "IE", "CZ", "HU", "RO", "BG", "HR", "SK", "SI",
}

var europeanLanguages = []string{
	"da", "de", "fr", "it", "es", "nl", "sv", "no", "fi", "pl", "pt", "el",
	"cs", "hu", "ro", "bg", "hr", "sk", "sl",
}

var languageDefaults = map[string]string{
	"da": "da-DK",
	"de": "de-DE",
	"fr": "fr-FR",
	"it": "it-IT",
	"es": "es-ES",
	"nl": "nl-NL",
	"sv": "sv-SE",
	"no": "no-NO",
	"fi": "fi-FI",
}

// Env is what the runtime tells us about the user's location and language.
type Env struct {
	TimeZone string
	// Locales in preference order; the first usable one wins.
	Locales []string
}

// RuntimeEnv reads the process timezone and POSIX locale variables.
func RuntimeEnv() Env {
	env := Env{TimeZone: os.Getenv("TZ")}
	if env.TimeZone == "" && time.Local != nil {
		env.TimeZone = time.Local.String()
	}
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := os.Getenv(key); v != "" {
			env.Locales = append(env.Locales, v)
		}
	}
	if v := os.Getenv("LANGUAGE"); v != "" {
		env.Locales = append(env.Locales, strings.Split(v, ":")...)
	}
	return env
}

// DetectRuntime is Detect applied to RuntimeEnv.
func DetectRuntime() string {
	return Detect(RuntimeEnv())
}

// Detect infers a display locale from env.
func Detect(env Env) string {
	// Only Copenhagen is decisive. Any other European zone ends on the
	// en-GB fallback whatever the locale says.
	if env.TimeZone == "Europe/Copenhagen" {
		return "da-DK"
	}

	var detected string
	for _, l := range env.Locales {
		if n := Normalize(l); n != "" {
			detected = n
			break
		}
	}
	if detected == "" {
		return Fallback
	}

	lower := strings.ToLower(detected)
	if lower == "en-us" || strings.HasPrefix(lower, "en-us-") {
		return Fallback
	}

	lang, country := split(detected)
	if slices.Contains(europeanCountries, country) {
		return detected
	}
	if lang == "en" {
		return Fallback
	}
	if slices.Contains(europeanLanguages, lang) {
		if country == "" {
			if d, ok := languageDefaults[lang]; ok {
				return d
			}
		}
		return detected
	}
	return Fallback
}

// Normalize turns POSIX and BCP 47 spellings ("da_DK.UTF-8", "en-gb") into
// "ll-CC" form. It returns "" for the C/POSIX locale and empty input.
func Normalize(l string) string {
	l = strings.TrimSpace(l)
	if i := strings.IndexAny(l, ".@"); i >= 0 {
		l = l[:i]
	}
	if l == "" || l == "C" || l == "POSIX" {
		return ""
	}
	l = strings.ReplaceAll(l, "_", "-")
	parts := strings.Split(l, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) > 1 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

func split(locale string) (lang, country string) {
	parts := strings.Split(locale, "-")
	lang = strings.ToLower(parts[0])
	if len(parts) > 1 {
		country = strings.ToUpper(parts[1])
	}
	return lang, country
}
