// Package series holds the append-only, time-ordered bar history that every
// indicator reads.
package series

import (
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// BarSeries is the ordered bar history of one instrument.
// It is not safe for concurrent use; the owning session serializes access.
type BarSeries struct {
	instrument string
	bars       []types.Bar
	// capacity bounds the retained bars, 0 keeps everything.
	capacity int
	// appended counts every accepted bar, including evicted ones.
	appended int
}

// NewBarSeries returns an unbounded series.
func NewBarSeries(instrument string) *BarSeries {
	return &BarSeries{
		instrument: instrument,
		bars:       nil,
		capacity:   0,
		appended:   0,
	}
}

// NewBarSeriesWithCapacity returns a series that keeps only the latest
// capacity bars. Capacity must cover the longest indicator window plus one.
func NewBarSeriesWithCapacity(instrument string, capacity int) *BarSeries {
	s := NewBarSeries(instrument)
	if capacity > 0 {
		s.capacity = capacity
		s.bars = make([]types.Bar, 0, capacity*2)
	}

	return s
}

// Instrument returns the instrument this series belongs to.
func (s *BarSeries) Instrument() string {
	return s.instrument
}

// Append adds a bar after the last one. A bar at the same timestamp as the
// last bar is rejected as a duplicate, an earlier one as out of order.
func (s *BarSeries) Append(bar types.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	if len(s.bars) > 0 {
		last := s.bars[len(s.bars)-1].Time

		if bar.Time.Equal(last) {
			return errors.Newf(errors.ErrCodeDuplicateBar, "%s: bar at %s already applied", s.instrument, bar.Time.Format(time.RFC3339))
		}

		if bar.Time.Before(last) {
			return errors.Newf(errors.ErrCodeOutOfOrderBar, "%s: bar at %s is before last bar at %s",
				s.instrument, bar.Time.Format(time.RFC3339), last.Format(time.RFC3339))
		}
	}

	s.bars = append(s.bars, bar)
	s.appended++

	if s.capacity > 0 && len(s.bars) >= s.capacity*2 {
		// compact once the backing array holds twice the capacity
		kept := make([]types.Bar, s.capacity, s.capacity*2)
		copy(kept, s.bars[len(s.bars)-s.capacity:])
		s.bars = kept
	}

	return nil
}

// Len is the number of retained bars.
func (s *BarSeries) Len() int {
	return len(s.bars)
}

// Appended is the number of bars ever accepted.
func (s *BarSeries) Appended() int {
	return s.appended
}

// At returns the i-th retained bar, oldest first.
func (s *BarSeries) At(i int) (types.Bar, bool) {
	if i < 0 || i >= len(s.bars) {
		return types.Bar{}, false
	}

	return s.bars[i], true
}

// Last returns the most recent bar.
func (s *BarSeries) Last() (types.Bar, bool) {
	return s.At(len(s.bars) - 1)
}

// Window returns the last n bars including the current one.
// It returns fewer than n bars when history is short.
func (s *BarSeries) Window(n int) []types.Bar {
	if n <= 0 {
		return nil
	}

	start := max(len(s.bars)-n, 0)

	return s.bars[start:len(s.bars):len(s.bars)]
}

// Prior returns the n bars preceding the current one, excluding it.
// It returns fewer than n bars when history is short.
func (s *BarSeries) Prior(n int) []types.Bar {
	if n <= 0 || len(s.bars) < 2 {
		return nil
	}

	end := len(s.bars) - 1
	start := max(end-n, 0)

	return s.bars[start:end:end]
}

// Bars returns a copy of every retained bar.
func (s *BarSeries) Bars() []types.Bar {
	out := make([]types.Bar, len(s.bars))
	copy(out, s.bars)

	return out
}
