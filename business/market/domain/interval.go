package domain

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the sampling period of historical series.
type Interval string

const (
	IntervalHour Interval = "HOUR"
	IntervalDay  Interval = "DAY"
	IntervalWeek Interval = "WEEK"
)

// ParseInterval accepts the interval name in any case.
func ParseInterval(s string) (Interval, error) {
	switch i := Interval(strings.ToUpper(strings.TrimSpace(s))); i {
	case IntervalHour, IntervalDay, IntervalWeek:
		return i, nil
	default:
		return "", fmt.Errorf("unknown interval %q", s)
	}
}

// Duration returns the length of one period.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalDay:
		return 24 * time.Hour
	case IntervalWeek:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

func (i Interval) String() string {
	return string(i)
}
