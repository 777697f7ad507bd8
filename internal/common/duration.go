package common

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	iso8601 "github.com/senseyeio/duration"
)

// Zabbix time units: plain seconds or a number with one of s, m, h, d, w.
var timeUnitPattern = regexp.MustCompile(`^(\d+)([smhdw]?)$`)

var timeUnitMultipliers = map[string]time.Duration{
	"":  time.Second,
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseTimeUnit parses a Zabbix time unit ("0", "90", "30s", "15m", "1d").
// ISO 8601 durations ("PT15M") and Go durations ("1h30m") are accepted too.
func ParseTimeUnit(value string) (time.Duration, error) {

	value = strings.TrimSpace(value)

	if len(value) == 0 {
		return 0, fmt.Errorf("empty time unit")
	}

	if matches := timeUnitPattern.FindStringSubmatch(value); matches != nil {
		amount, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time unit %q: %w", value, err)
		}
		multiplier := timeUnitMultipliers[matches[2]]
		if amount > math.MaxInt64/int64(multiplier) {
			return 0, fmt.Errorf("invalid time unit %q: value out of range", value)
		}
		return time.Duration(amount) * multiplier, nil
	}

	if isoDuration, err := iso8601.ParseISO8601(value); err == nil {
		referenceTime := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		return isoDuration.Shift(referenceTime).Sub(referenceTime), nil
	}

	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed, nil
	}

	return 0, fmt.Errorf("invalid time unit format: %s. Expect seconds, a Zabbix time suffix (s, m, h, d, w) or ISO 8601", value)
}

// NormalizeTimeUnit returns the value Zabbix should store. Native Zabbix
// time units are kept verbatim so they compare equal to what the server
// echoes back; anything else is converted to whole seconds.
func NormalizeTimeUnit(value string) (string, error) {

	value = strings.TrimSpace(value)

	parsed, err := ParseTimeUnit(value)
	if err != nil {
		return "", err
	}

	if timeUnitPattern.MatchString(value) {
		return value, nil
	}

	if parsed%time.Second != 0 {
		return "", fmt.Errorf("time unit %q is not a whole number of seconds", value)
	}

	return strconv.FormatInt(int64(parsed/time.Second), 10), nil
}

// ValidateTimeUnitRange checks that value parses and lies within [lower, upper].
// A zero value is allowed when allowZero is set, regardless of lower.
func ValidateTimeUnitRange(value string, lower, upper time.Duration, allowZero bool) error {
	parsed, err := ParseTimeUnit(value)
	if err != nil {
		return err
	}
	if parsed == 0 && allowZero {
		return nil
	}
	if parsed < lower || parsed > upper {
		return fmt.Errorf("%s is outside the allowed range %s..%s", value, lower, upper)
	}
	return nil
}
