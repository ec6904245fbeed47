package ltime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeUnit is a unit of the duration literals accepted in programs and
// configuration files, e.g. "5 msec" or "2 sec".
type TimeUnit int

const (
	Nanosecond TimeUnit = iota
	Microsecond
	Millisecond
	Second
	Minute
	Hour
	Day
	Week
)

var unitScale = [...]time.Duration{
	Nanosecond:  time.Nanosecond,
	Microsecond: time.Microsecond,
	Millisecond: time.Millisecond,
	Second:      time.Second,
	Minute:      time.Minute,
	Hour:        time.Hour,
	Day:         24 * time.Hour,
	Week:        7 * 24 * time.Hour,
}

var unitNames = [...]string{
	Nanosecond:  "nsec",
	Microsecond: "usec",
	Millisecond: "msec",
	Second:      "sec",
	Minute:      "min",
	Hour:        "hour",
	Day:         "day",
	Week:        "week",
}

var unitAliases = map[string]TimeUnit{
	"ns": Nanosecond, "nsec": Nanosecond, "nsecs": Nanosecond,
	"us": Microsecond, "usec": Microsecond, "usecs": Microsecond,
	"ms": Millisecond, "msec": Millisecond, "msecs": Millisecond,
	"s": Second, "sec": Second, "secs": Second, "second": Second, "seconds": Second,
	"m": Minute, "min": Minute, "mins": Minute, "minute": Minute, "minutes": Minute,
	"h": Hour, "hour": Hour, "hours": Hour,
	"d": Day, "day": Day, "days": Day,
	"week": Week, "weeks": Week,
}

// ParseTimeUnit parses a unit name or one of its aliases.
func ParseTimeUnit(s string) (TimeUnit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q", s)
	}
	return u, nil
}

// Duration returns n units as a duration, or ErrTimeOverflow if it does
// not fit.
func (u TimeUnit) Duration(n int64) (time.Duration, error) {
	scale := int64(unitScale[u])
	if n != 0 && (n > math.MaxInt64/scale || n < math.MinInt64/scale) {
		return 0, fmt.Errorf("%d %s: %w", n, u, ErrTimeOverflow)
	}
	return time.Duration(n * scale), nil
}

func (u TimeUnit) String() string {
	if int(u) < 0 || int(u) >= len(unitNames) {
		return fmt.Sprintf("TimeUnit(%d)", int(u))
	}
	return unitNames[u]
}

// ParseDuration accepts "<integer> <unit>" literals ("5 msec", "3sec") as
// well as anything time.ParseDuration accepts ("1m30s"). A bare "0" is
// zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if s == "0" {
		return 0, nil
	}

	// split leading digits from the unit
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) {
		numPart, unitPart := s[:i], strings.TrimSpace(s[i:])
		if u, err := ParseTimeUnit(unitPart); err == nil {
			n, err := strconv.ParseInt(numPart, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			return u.Duration(n)
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
