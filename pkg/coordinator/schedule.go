package coordinator

import (
	"sync"
	"time"

	"github.com/gridpulse/gridpulse/pkg/types"
)

// intervals is how often each category is refreshed. Everything else in the
// pass is carried over untouched until its interval elapses.
var intervals = map[types.Category]time.Duration{
	types.CategoryGridFrequency: 2 * time.Minute,

	types.CategorySellPrice:      5 * time.Minute,
	types.CategoryGridGeneration: 5 * time.Minute,
	types.CategorySystemWarnings: 5 * time.Minute,

	types.CategoryCarbonIntensity: 15 * time.Minute,
	types.CategoryMarginForecast:  15 * time.Minute,

	types.CategoryWindForecast:      30 * time.Minute,
	types.CategoryWindForecastEarly: 30 * time.Minute,
	types.CategorySolarForecast:     30 * time.Minute,
	types.CategoryDemandDayAhead:    30 * time.Minute,
	types.CategoryDemandForecast:    30 * time.Minute,
	types.CategoryLongTermWind:      30 * time.Minute,
	types.CategoryLongTermEmbedded:  30 * time.Minute,
	types.CategoryDFSRequirements:   30 * time.Minute,
}

// Interval returns the refresh interval for a category.
func Interval(cat types.Category) time.Duration {
	return intervals[cat]
}

// Schedule tracks when each category last refreshed successfully.
type Schedule struct {
	mu   sync.Mutex
	last map[types.Category]time.Time
}

// NewSchedule returns a schedule with every category immediately due.
func NewSchedule() *Schedule {
	return &Schedule{last: make(map[types.Category]time.Time)}
}

// IsDue returns whether the category's interval has elapsed since its last
// successful refresh. A category that has never refreshed is always due.
func (s *Schedule) IsDue(cat types.Category, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.last[cat]
	if !ok {
		return true
	}
	return now.Sub(last) >= intervals[cat]
}

// MarkUpdated records a successful refresh of the category.
func (s *Schedule) MarkUpdated(cat types.Category, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[cat] = now
}

// Status returns the last successful refresh time per category. Categories
// that have never refreshed are absent.
func (s *Schedule) Status() map[types.Category]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := make(map[types.Category]time.Time, len(s.last))
	for cat, t := range s.last {
		status[cat] = t
	}
	return status
}
