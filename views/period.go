package views

import (
	"fmt"
	"strings"
	"time"
)

// Period is a dashboard date range preset.
type Period string

const (
	OneMonth     Period = "1 month"
	ThreeMonths  Period = "3 months"
	SixMonths    Period = "6 months"
	TwelveMonths Period = "12 months"
	All          Period = "all"
)

// DefaultPeriod is selected when the caller does not pick one.
const DefaultPeriod = OneMonth

var periodMonths = map[Period]int{
	OneMonth:     0,
	ThreeMonths:  3,
	SixMonths:    6,
	TwelveMonths: 12,
}

// Periods lists the presets in display order.
func Periods() []Period {
	return []Period{OneMonth, ThreeMonths, SixMonths, TwelveMonths, All}
}

// ParsePeriod accepts the display labels ("3 months") and their compact
// forms ("3month", "3months"). An empty label is the default period.
func ParsePeriod(label string) (Period, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return DefaultPeriod, nil
	}
	if s == string(All) {
		return All, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, "s")
	for p := range periodMonths {
		if strings.ReplaceAll(strings.TrimSuffix(string(p), "s"), " ", "") == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", label)
}

// Cutoff resolves p against now. Month presets start at the first instant
// of the month n months before now, in now's location; one month is the
// start of the current month. All is the Unix epoch.
func (p Period) Cutoff(now time.Time) time.Time {
	if p == All {
		return time.Unix(0, 0).UTC()
	}
	back, ok := periodMonths[p]
	if !ok {
		back = periodMonths[DefaultPeriod]
	}
	y, m, _ := now.Date()
	return time.Date(y, m-time.Month(back), 1, 0, 0, 0, 0, now.Location())
}

func (p Period) String() string {
	return string(p)
}
