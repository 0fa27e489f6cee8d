package coordinator

import (
	"testing"
	"time"

	"github.com/gridpulse/gridpulse/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSchedule(t *testing.T) {
	s := NewSchedule()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never refreshed is due", func(t *testing.T) {
		assert.True(t, s.IsDue(types.CategoryGridFrequency, now))
		assert.True(t, s.IsDue(types.CategoryDFSRequirements, now))
	})

	t.Run("due again only after the interval", func(t *testing.T) {
		s.MarkUpdated(types.CategoryGridFrequency, now)
		assert.False(t, s.IsDue(types.CategoryGridFrequency, now))
		assert.False(t, s.IsDue(types.CategoryGridFrequency, now.Add(time.Minute)))
		assert.True(t, s.IsDue(types.CategoryGridFrequency, now.Add(2*time.Minute)))
	})

	t.Run("intervals differ per category", func(t *testing.T) {
		s.MarkUpdated(types.CategorySolarForecast, now)
		assert.False(t, s.IsDue(types.CategorySolarForecast, now.Add(15*time.Minute)))
		assert.True(t, s.IsDue(types.CategorySolarForecast, now.Add(30*time.Minute)))
	})

	t.Run("status is a copy", func(t *testing.T) {
		status := s.Status()
		assert.Equal(t, now, status[types.CategoryGridFrequency])
		delete(status, types.CategoryGridFrequency)
		assert.False(t, s.IsDue(types.CategoryGridFrequency, now))
	})
}

func TestInterval(t *testing.T) {
	assert.Equal(t, 2*time.Minute, Interval(types.CategoryGridFrequency))
	assert.Equal(t, 5*time.Minute, Interval(types.CategoryGridGeneration))
	assert.Equal(t, 15*time.Minute, Interval(types.CategoryCarbonIntensity))
	assert.Equal(t, 30*time.Minute, Interval(types.CategoryDemandForecast))
}
