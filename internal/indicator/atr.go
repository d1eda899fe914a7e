package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(bar types.Bar, prevClose float64) float64 {
	return math.Max(
		math.Max(
			bar.High-bar.Low,
			math.Abs(bar.High-prevClose),
		),
		math.Abs(bar.Low-prevClose),
	)
}

// ATR is an incremental Wilder average true range.
//
// The first bar only provides a previous close. The next period true ranges
// are averaged to seed the value, after which each bar is smoothed in as
// atr = (atr*(period-1) + tr) / period.
type ATR struct {
	period    int
	prevClose optional.Option[float64]
	seedSum   float64
	seedCount int
	value     optional.Option[float64]
}

// NewATR creates an ATR with the given smoothing period.
func NewATR(period int) (*ATR, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return &ATR{
		period:    period,
		prevClose: optional.None[float64](),
		seedSum:   0,
		seedCount: 0,
		value:     optional.None[float64](),
	}, nil
}

// Period returns the smoothing period.
func (a *ATR) Period() int {
	return a.period
}

// Update folds one bar into the average and returns the current value.
func (a *ATR) Update(bar types.Bar) optional.Option[float64] {
	if a.prevClose.IsNone() {
		a.prevClose = optional.Some(bar.Close)

		return a.value
	}

	tr := TrueRange(bar, a.prevClose.Unwrap())
	a.prevClose = optional.Some(bar.Close)

	if a.value.IsSome() {
		p := float64(a.period)
		a.value = optional.Some((a.value.Unwrap()*(p-1) + tr) / p)

		return a.value
	}

	a.seedSum += tr
	a.seedCount++

	if a.seedCount == a.period {
		a.value = optional.Some(a.seedSum / float64(a.period))
	}

	return a.value
}

// Value returns the current average, None until period true ranges were seen.
func (a *ATR) Value() optional.Option[float64] {
	return a.value
}

// Ready reports whether Value is available.
func (a *ATR) Ready() bool {
	return a.value.IsSome()
}

// Clone returns an independent copy of the smoother state.
func (a *ATR) Clone() *ATR {
	clone := *a

	return &clone
}

// ComputeATR replays bars through a fresh ATR and returns the final value.
func ComputeATR(bars []types.Bar, period int) (optional.Option[float64], error) {
	atr, err := NewATR(period)
	if err != nil {
		return optional.None[float64](), err
	}

	for _, bar := range bars {
		atr.Update(bar)
	}

	return atr.Value(), nil
}
