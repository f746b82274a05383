package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-expense-ledger/pkg/testsupport"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		label string
		want  Period
	}{
		{"1 month", OneMonth},
		{"1month", OneMonth},
		{"3 months", ThreeMonths},
		{"3month", ThreeMonths},
		{"6months", SixMonths},
		{" 12 Months ", TwelveMonths},
		{"12month", TwelveMonths},
		{"all", All},
		{"ALL", All},
		{"", DefaultPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParsePeriod(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePeriod("2 weeks")
	assert.Error(t, err)
}

func TestPeriodCutoff(t *testing.T) {
	tests := []struct {
		period Period
		want   time.Time
	}{
		{OneMonth, testsupport.Date(2024, time.June, 1)},
		{ThreeMonths, testsupport.Date(2024, time.March, 1)},
		{SixMonths, testsupport.Date(2023, time.December, 1)},
		{TwelveMonths, testsupport.Date(2023, time.June, 1)},
		{All, time.Unix(0, 0).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.period.Cutoff(now)), "got %v", tt.period.Cutoff(now))
		})
	}
}

func TestPeriodCutoff_EndOfMonth(t *testing.T) {
	// May 31 minus three months must not roll over into March.
	ref := time.Date(2024, time.May, 31, 23, 0, 0, 0, time.UTC)
	assert.True(t, testsupport.Date(2024, time.February, 1).Equal(ThreeMonths.Cutoff(ref)))
}

func TestPeriodCutoff_KeepsLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	ref := time.Date(2024, time.January, 10, 0, 0, 0, 0, lagos)

	got := ThreeMonths.Cutoff(ref)
	assert.Equal(t, time.Date(2023, time.October, 1, 0, 0, 0, 0, lagos), got)
}

func TestPeriods(t *testing.T) {
	assert.Equal(t, []Period{OneMonth, ThreeMonths, SixMonths, TwelveMonths, All}, Periods())
}
