package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T12:30:00Z", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01T12:30:00+01:00", time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)},
		{"2024-03-01T12:30:00", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01 12:30:00", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"01-MAR-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"01-Mar-2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}

	_, err := parseTimestamp("not a time")
	assert.Error(t, err)
}

func TestParseDateClock(t *testing.T) {
	got, err := parseDateClock("2024-03-01T00:00:00", "14:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), got)

	_, err = parseDateClock("2024-03-01", "25:99")
	assert.Error(t, err)
}

func TestNearestHalfHour(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC), time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{time.Date(2024, 3, 1, 12, 29, 59, 0, time.UTC), time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{time.Date(2024, 3, 1, 23, 45, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nearestHalfHour(tt.in), "for %v", tt.in)
	}
}

func TestSettlementPeriod(t *testing.T) {
	day, period := settlementPeriod(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), day)
	assert.Equal(t, 1, period)

	_, period = settlementPeriod(time.Date(2024, 3, 1, 12, 45, 0, 0, time.UTC))
	assert.Equal(t, 26, period)

	_, period = settlementPeriod(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, 48, period)

	// round trip
	start := settlementPeriodStart(day, 26)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), start)
}
