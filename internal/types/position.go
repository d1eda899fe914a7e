package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/shopspring/decimal"
)

// Direction is the side of a position.
type Direction string

const (
	DirectionFlat  Direction = "FLAT"
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for long, -1 for short and 0 for flat.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	case DirectionFlat:
		return 0
	}

	return 0
}

// Unit is one pyramided slice of a position.
type Unit struct {
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	Size       float64   `yaml:"size" json:"size"`
	EntryTime  time.Time `yaml:"entry_time" json:"entry_time"`
}

// Position is the strategy's exposure in one instrument.
// Units are kept in entry order and are never shared between positions.
type Position struct {
	Instrument string                  `yaml:"instrument" json:"instrument"`
	Direction  Direction               `yaml:"direction" json:"direction"`
	Units      []Unit                  `yaml:"units" json:"units"`
	StopPrice  optional.Option[float64] `yaml:"-" json:"stop_price"`
}

// NewFlatPosition returns an empty position for the instrument.
func NewFlatPosition(instrument string) Position {
	return Position{
		Instrument: instrument,
		Direction:  DirectionFlat,
		Units:      nil,
		StopPrice:  optional.None[float64](),
	}
}

// IsFlat reports whether the position carries no exposure.
func (p Position) IsFlat() bool {
	return p.Direction == DirectionFlat
}

// TotalSize is the sum of all unit sizes.
func (p Position) TotalSize() float64 {
	total := decimal.Zero
	for _, u := range p.Units {
		total = total.Add(decimal.NewFromFloat(u.Size))
	}

	result, _ := total.Float64()

	return result
}

// AverageEntryPrice is the size-weighted entry price of all units, 0 when flat.
func (p Position) AverageEntryPrice() float64 {
	notional := decimal.Zero
	size := decimal.Zero

	for _, u := range p.Units {
		unitSize := decimal.NewFromFloat(u.Size)
		notional = notional.Add(decimal.NewFromFloat(u.EntryPrice).Mul(unitSize))
		size = size.Add(unitSize)
	}

	if size.IsZero() {
		return 0
	}

	result, _ := notional.Div(size).Float64()

	return result
}

// LastUnit returns the most recently added unit.
func (p Position) LastUnit() optional.Option[Unit] {
	if len(p.Units) == 0 {
		return optional.None[Unit]()
	}

	return optional.Some(p.Units[len(p.Units)-1])
}

// OpenTime is the entry time of the first unit, zero when flat.
func (p Position) OpenTime() time.Time {
	if len(p.Units) == 0 {
		return time.Time{}
	}

	return p.Units[0].EntryTime
}

// UnrealizedPnL marks every unit to the given price.
func (p Position) UnrealizedPnL(price float64) float64 {
	pnl := decimal.Zero
	mark := decimal.NewFromFloat(price)
	sign := decimal.NewFromFloat(p.Direction.Sign())

	for _, u := range p.Units {
		diff := mark.Sub(decimal.NewFromFloat(u.EntryPrice))
		pnl = pnl.Add(diff.Mul(decimal.NewFromFloat(u.Size)).Mul(sign))
	}

	result, _ := pnl.Float64()

	return result
}

// Clone returns a deep copy so callers can never alias the unit slice.
func (p Position) Clone() Position {
	clone := p
	if p.Units != nil {
		clone.Units = make([]Unit, len(p.Units))
		copy(clone.Units, p.Units)
	}

	if p.StopPrice.IsSome() {
		clone.StopPrice = optional.Some(p.StopPrice.Unwrap())
	} else {
		clone.StopPrice = optional.None[float64]()
	}

	return clone
}

// Validate checks the position invariants:
// flat iff no units, at most maxUnits units, stop defined iff not flat.
func (p Position) Validate(maxUnits int) error {
	switch p.Direction {
	case DirectionFlat:
		if len(p.Units) != 0 {
			return errors.Newf(errors.ErrCodeInvariantViolation, "%s: flat position holds %d units", p.Instrument, len(p.Units))
		}

		if p.StopPrice.IsSome() {
			return errors.Newf(errors.ErrCodeInvariantViolation, "%s: flat position has a stop price", p.Instrument)
		}
	case DirectionLong, DirectionShort:
		if len(p.Units) == 0 {
			return errors.Newf(errors.ErrCodeInvariantViolation, "%s: %s position holds no units", p.Instrument, p.Direction)
		}

		if p.StopPrice.IsNone() {
			return errors.Newf(errors.ErrCodeInvariantViolation, "%s: %s position has no stop price", p.Instrument, p.Direction)
		}
	default:
		return errors.Newf(errors.ErrCodeInvariantViolation, "%s: unknown direction %q", p.Instrument, p.Direction)
	}

	if len(p.Units) > maxUnits {
		return errors.Newf(errors.ErrCodeInvariantViolation, "%s: %d units exceed max %d", p.Instrument, len(p.Units), maxUnits)
	}

	for i, u := range p.Units {
		if u.Size <= 0 || u.EntryPrice <= 0 {
			return errors.Newf(errors.ErrCodeInvariantViolation, "%s: unit %d has size %.8f at price %.8f", p.Instrument, i, u.Size, u.EntryPrice)
		}
	}

	return nil
}

// Open starts a new position from flat.
func (p *Position) Open(direction Direction, unit Unit, stop float64) error {
	if !p.IsFlat() {
		return errors.Newf(errors.ErrCodeInvariantViolation, "%s: cannot open %s while %s", p.Instrument, direction, p.Direction)
	}

	if direction == DirectionFlat {
		return errors.Newf(errors.ErrCodeInvariantViolation, "%s: cannot open a flat position", p.Instrument)
	}

	p.Direction = direction
	p.Units = []Unit{unit}
	p.StopPrice = optional.Some(stop)

	return nil
}

// AddUnit appends a pyramided unit. The stop only moves in the position's
// favor: up for longs, down for shorts.
func (p *Position) AddUnit(unit Unit, candidateStop float64) error {
	if p.IsFlat() {
		return errors.Newf(errors.ErrCodeInvariantViolation, "%s: cannot add a unit to a flat position", p.Instrument)
	}

	p.Units = append(p.Units, unit)
	p.StopPrice = optional.Some(TightenStop(p.Direction, p.StopPrice, candidateStop))

	return nil
}

// Close resets the position to flat and returns the units that were held.
func (p *Position) Close() []Unit {
	units := p.Units
	p.Direction = DirectionFlat
	p.Units = nil
	p.StopPrice = optional.None[float64]()

	return units
}

// TightenStop returns the tighter of the current stop and a candidate.
func TightenStop(direction Direction, current optional.Option[float64], candidate float64) float64 {
	if current.IsNone() {
		return candidate
	}

	existing := current.Unwrap()

	switch direction {
	case DirectionLong:
		return max(existing, candidate)
	case DirectionShort:
		return min(existing, candidate)
	case DirectionFlat:
		return candidate
	}

	return candidate
}
