// Package assemble turns per-field match results into a single draw
// record per screenshot.
package assemble

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrTimestampParse is returned when no configured layout (or the digit
// fallbacks) can make sense of the recognized time text. The record is
// forced into review, never dropped.
var ErrTimestampParse = errors.New("timestamp parse failed")

var (
	cjkDateRunes = strings.NewReplacer("年", "-", "月", "-", "日", "")
	nonTimeChars = regexp.MustCompile(`[^0-9\- :]`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// ParseTimestamp normalizes separators the way the games (and the OCR
// engine) mangle them, then tries each layout in order. As a last resort
// a long enough digit run is interpreted as YYYYMMDDHHMMSS or YYYYMMDD.
func ParseTimestamp(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrTimestampParse)
	}
	s = strings.ReplaceAll(s, "T", " ")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = cjkDateRunes.Replace(s)
	s = nonTimeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "- ")

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}

	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) >= 14 {
		if ts, err := time.Parse("20060102150405", digits[:14]); err == nil {
			return ts, nil
		}
	}
	if len(digits) >= 8 {
		if ts, err := time.Parse("20060102", digits[:8]); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrTimestampParse, raw)
}
