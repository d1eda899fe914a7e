// Package indicator computes the Donchian channel and the Wilder average
// true range. Every function reads a trailing window and never panics on
// short history: it returns None instead.
package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/series"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// HighestHigh is the max high over the last period bars of the slice,
// inclusive of the final bar.
func HighestHigh(bars []types.Bar, period int) optional.Option[float64] {
	if period <= 0 || len(bars) < period {
		return optional.None[float64]()
	}

	window := bars[len(bars)-period:]
	highest := window[0].High

	for _, bar := range window[1:] {
		highest = max(highest, bar.High)
	}

	return optional.Some(highest)
}

// LowestLow is the min low over the last period bars of the slice,
// inclusive of the final bar.
func LowestLow(bars []types.Bar, period int) optional.Option[float64] {
	if period <= 0 || len(bars) < period {
		return optional.None[float64]()
	}

	window := bars[len(bars)-period:]
	lowest := window[0].Low

	for _, bar := range window[1:] {
		lowest = min(lowest, bar.Low)
	}

	return optional.Some(lowest)
}

// Donchian is a breakout channel over the period bars before the current one.
type Donchian struct {
	period int
}

// NewDonchian creates a channel with the given lookback.
func NewDonchian(period int) (*Donchian, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return &Donchian{period: period}, nil
}

// Period returns the lookback.
func (d *Donchian) Period() int {
	return d.period
}

// Upper is the highest high of the period bars preceding the latest bar.
// The latest bar is excluded so a breakout is measured against prior bars only.
func (d *Donchian) Upper(s *series.BarSeries) optional.Option[float64] {
	return HighestHigh(s.Prior(d.period), d.period)
}

// Lower is the lowest low of the period bars preceding the latest bar.
func (d *Donchian) Lower(s *series.BarSeries) optional.Option[float64] {
	return LowestLow(s.Prior(d.period), d.period)
}
