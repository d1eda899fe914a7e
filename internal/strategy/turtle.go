// Package strategy implements the turtle breakout rules: the per-bar signal
// state machine, the volatility sizer and the signal confidence heuristic.
package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/indicator"
	"github.com/rxtech-lab/turtle-trading/internal/series"
	"github.com/rxtech-lab/turtle-trading/internal/types"
)

// Decision is the outcome of evaluating one bar.
type Decision struct {
	Kind types.SignalKind
	// ReferencePrice is the bar close, or the stop level for stop exits.
	ReferencePrice float64
	ExitReason     types.ExitReason
	// StopPrice is the stop implied by entering at ReferencePrice.
	// Only set for entries and adds with a usable ATR.
	StopPrice optional.Option[float64]
	ATR       optional.Option[float64]
	Reason    string
}

func hold(atr optional.Option[float64], reason string) Decision {
	return Decision{
		Kind:           types.SignalKindHold,
		ReferencePrice: 0,
		ExitReason:     types.ExitReasonNone,
		StopPrice:      optional.None[float64](),
		ATR:            atr,
		Reason:         reason,
	}
}

// Turtle evaluates the breakout rules. It holds no per-bar state; the series,
// the ATR and the position are owned by the caller.
type Turtle struct {
	params types.TurtleParams
	entry  *indicator.Donchian
	exit   *indicator.Donchian
}

// NewTurtle validates params and builds the entry and exit channels.
func NewTurtle(params types.TurtleParams) (*Turtle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	entry, err := indicator.NewDonchian(params.EntryPeriod)
	if err != nil {
		return nil, err
	}

	exit, err := indicator.NewDonchian(params.ExitPeriod)
	if err != nil {
		return nil, err
	}

	return &Turtle{
		params: params,
		entry:  entry,
		exit:   exit,
	}, nil
}

// Params returns the rules' configuration.
func (t *Turtle) Params() types.TurtleParams {
	return t.params
}

// Evaluate decides what to do on the latest bar of s. Rules are checked in
// priority order and the first that fires wins:
// stop, channel exit, pyramid, breakout entry, hold.
func (t *Turtle) Evaluate(s *series.BarSeries, atr optional.Option[float64], position types.Position) Decision {
	bar, ok := s.Last()
	if !ok {
		return hold(atr, "no bars")
	}

	switch position.Direction {
	case types.DirectionLong, types.DirectionShort:
		return t.evaluateOpen(s, bar, atr, position)
	case types.DirectionFlat:
		return t.evaluateFlat(s, bar, atr)
	}

	return hold(atr, fmt.Sprintf("unknown direction %q", position.Direction))
}

func (t *Turtle) evaluateOpen(s *series.BarSeries, bar types.Bar, atr optional.Option[float64], position types.Position) Decision {
	direction := position.Direction

	if position.StopPrice.IsSome() {
		stop := position.StopPrice.Unwrap()

		stopped := (direction == types.DirectionLong && bar.Low <= stop) ||
			(direction == types.DirectionShort && bar.High >= stop)
		if stopped {
			return Decision{
				Kind:           types.SignalKindExit,
				ReferencePrice: stop,
				ExitReason:     types.ExitReasonStop,
				StopPrice:      optional.None[float64](),
				ATR:            atr,
				Reason:         fmt.Sprintf("stop %.8f hit", stop),
			}
		}
	}

	if channel, ok := t.exitThreshold(s, direction); ok {
		broken := (direction == types.DirectionLong && bar.Close < channel) ||
			(direction == types.DirectionShort && bar.Close > channel)
		if broken {
			return Decision{
				Kind:           types.SignalKindExit,
				ReferencePrice: bar.Close,
				ExitReason:     types.ExitReasonChannel,
				StopPrice:      optional.None[float64](),
				ATR:            atr,
				Reason:         fmt.Sprintf("close %.8f crossed %d-bar exit channel %.8f", bar.Close, t.params.ExitPeriod, channel),
			}
		}
	}

	if len(position.Units) >= t.params.MaxUnits {
		return hold(atr, "max units reached")
	}

	atrValue, usable := usableATR(atr)
	if !usable {
		return hold(atr, "atr unavailable, pyramiding suppressed")
	}

	last := position.LastUnit()
	if last.IsNone() {
		return hold(atr, "position has no units")
	}

	move := (bar.Close - last.Unwrap().EntryPrice) * direction.Sign()
	step := t.params.PyramidStep * atrValue

	if move < step {
		return hold(atr, "")
	}

	return Decision{
		Kind:           types.SignalKindAddUnit,
		ReferencePrice: bar.Close,
		ExitReason:     types.ExitReasonNone,
		StopPrice:      optional.Some(StopFor(direction, bar.Close, atrValue, t.params.StopMultiple)),
		ATR:            atr,
		Reason:         fmt.Sprintf("moved %.8f since last unit, step %.8f", move, step),
	}
}

func (t *Turtle) evaluateFlat(s *series.BarSeries, bar types.Bar, atr optional.Option[float64]) Decision {
	upper := t.entry.Upper(s)
	lower := t.entry.Lower(s)

	if upper.IsNone() || lower.IsNone() {
		return hold(atr, fmt.Sprintf("need %d prior bars for entry channel", t.params.EntryPeriod))
	}

	var direction types.Direction

	var kind types.SignalKind

	var threshold float64

	switch {
	case bar.Close > upper.Unwrap():
		direction, kind, threshold = types.DirectionLong, types.SignalKindEnterLong, upper.Unwrap()
	case bar.Close < lower.Unwrap():
		direction, kind, threshold = types.DirectionShort, types.SignalKindEnterShort, lower.Unwrap()
	default:
		return hold(atr, "")
	}

	stop := optional.None[float64]()
	if atrValue, usable := usableATR(atr); usable {
		stop = optional.Some(StopFor(direction, bar.Close, atrValue, t.params.StopMultiple))
	}

	return Decision{
		Kind:           kind,
		ReferencePrice: bar.Close,
		ExitReason:     types.ExitReasonNone,
		StopPrice:      stop,
		ATR:            atr,
		Reason:         fmt.Sprintf("close %.8f broke %d-bar channel %.8f", bar.Close, t.params.EntryPeriod, threshold),
	}
}

// exitThreshold is the lowest low for longs and the highest high for shorts
// over the exit period, excluding the latest bar.
func (t *Turtle) exitThreshold(s *series.BarSeries, direction types.Direction) (float64, bool) {
	var value optional.Option[float64]

	switch direction {
	case types.DirectionLong:
		value = t.exit.Lower(s)
	case types.DirectionShort:
		value = t.exit.Upper(s)
	case types.DirectionFlat:
		return 0, false
	}

	if value.IsNone() {
		return 0, false
	}

	return value.Unwrap(), true
}

// StopFor places the stop multiple ATRs against the direction of the entry.
func StopFor(direction types.Direction, entryPrice, atr, multiple float64) float64 {
	return entryPrice - direction.Sign()*multiple*atr
}

func usableATR(atr optional.Option[float64]) (float64, bool) {
	if atr.IsNone() {
		return 0, false
	}

	value := atr.Unwrap()

	return value, value > 0
}
