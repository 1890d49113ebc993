package reminders

import (
	"errors"
	"fmt"
	"time"
)

// TimeOption selects how a reminder time is computed.
type TimeOption string

const (
	OneHour  TimeOption = "1hour"
	Tonight  TimeOption = "tonight"
	Tomorrow TimeOption = "tomorrow"
	Weekend  TimeOption = "weekend"
	Custom   TimeOption = "custom"
)

// EveningHour is the hour used by the tonight, tomorrow and weekend options.
const EveningHour = 20

var (
	ErrUnknownOption   = errors.New("unknown reminder option")
	ErrMissingCustom   = errors.New("custom reminder time is required")
	ErrCustomNotFuture = errors.New("custom reminder time must be in the future")
)

// Options lists the accepted options in display order.
func Options() []TimeOption {
	return []TimeOption{OneHour, Tonight, Tomorrow, Weekend, Custom}
}

// ParseTimeOption validates s as a TimeOption.
func ParseTimeOption(s string) (TimeOption, error) {
	for _, opt := range Options() {
		if string(opt) == s {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOption, s)
}

// ComputeReminderTime returns the reminder instant for opt relative to now.
//
// Weekend targets 20:00 on the coming Saturday. On a Saturday the offset is
// zero, so the reminder lands on the same day even when 20:00 has passed.
func ComputeReminderTime(opt TimeOption, now time.Time, custom *time.Time) (time.Time, error) {
	switch opt {
	case OneHour:
		return now.Add(time.Hour), nil
	case Tonight:
		if today := evening(now, 0); !now.After(today) {
			return today, nil
		}
		return evening(now, 1), nil
	case Tomorrow:
		return evening(now, 1), nil
	case Weekend:
		days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		return evening(now, days), nil
	case Custom:
		if custom == nil || custom.IsZero() {
			return time.Time{}, ErrMissingCustom
		}
		if !custom.After(now) {
			return time.Time{}, ErrCustomNotFuture
		}
		return *custom, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownOption, opt)
	}
}

func evening(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+days, EveningHour, 0, 0, 0, now.Location())
}

// FormatRelative renders t relative to now, e.g. "in 2 hours" or "5 minutes ago".
func FormatRelative(t, now time.Time) string {
	d := t.Sub(now)
	future := d >= 0
	if !future {
		d = -d
	}

	var label string
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		label = plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		label = plural(int(d/time.Hour), "hour")
	default:
		label = plural(int(d/(24*time.Hour)), "day")
	}

	if future {
		return "in " + label
	}
	return label + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
