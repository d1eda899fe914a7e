package types

import (
	"time"

	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

type SignalKind string

const (
	// SignalKindEnterLong opens a long position on an upper channel breakout.
	SignalKindEnterLong SignalKind = "ENTER_LONG"
	// SignalKindEnterShort opens a short position on a lower channel breakout.
	SignalKindEnterShort SignalKind = "ENTER_SHORT"
	// SignalKindAddUnit pyramids one more unit onto the open position.
	SignalKindAddUnit SignalKind = "ADD_UNIT"
	// SignalKindExit closes every unit of the open position.
	SignalKindExit SignalKind = "EXIT"
	// SignalKindHold takes no action. It is never emitted downstream.
	SignalKindHold SignalKind = "HOLD"
)

// AllSignalKinds lists every kind in a stable order.
var AllSignalKinds = []SignalKind{
	SignalKindEnterLong,
	SignalKindEnterShort,
	SignalKindAddUnit,
	SignalKindExit,
	SignalKindHold,
}

// IsActionable reports whether the kind changes the position.
func (k SignalKind) IsActionable() bool {
	switch k {
	case SignalKindEnterLong, SignalKindEnterShort, SignalKindAddUnit, SignalKindExit:
		return true
	case SignalKindHold:
		return false
	}

	return false
}

// EntryDirection returns the direction an entry signal opens, FLAT for the rest.
func (k SignalKind) EntryDirection() Direction {
	switch k {
	case SignalKindEnterLong:
		return DirectionLong
	case SignalKindEnterShort:
		return DirectionShort
	case SignalKindAddUnit, SignalKindExit, SignalKindHold:
		return DirectionFlat
	}

	return DirectionFlat
}

// ParseSignalKind converts a stored kind back to its typed value.
func ParseSignalKind(s string) (SignalKind, error) {
	for _, kind := range AllSignalKinds {
		if string(kind) == s {
			return kind, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidParameter, "unknown signal kind %q", s)
}

// ExitReason tells why an Exit signal fired.
type ExitReason string

const (
	ExitReasonNone    ExitReason = ""
	ExitReasonStop    ExitReason = "STOP"
	ExitReasonChannel ExitReason = "CHANNEL"
)

// Signal is an actionable decision produced for one bar.
type Signal struct {
	// ID is deterministic in backtests: instrument, kind and bar time.
	ID         string     `yaml:"id" json:"id" csv:"id"`
	Instrument string     `yaml:"instrument" json:"instrument" csv:"instrument"`
	Time       time.Time  `yaml:"time" json:"time" csv:"time"`
	Kind       SignalKind `yaml:"kind" json:"kind" csv:"kind"`
	// ReferencePrice is the price the decision was taken at: the bar close,
	// or the stop price for stop exits.
	ReferencePrice float64 `yaml:"reference_price" json:"reference_price" csv:"reference_price"`
	// Confidence is a heuristic in [0.1, 0.9]. Informational only.
	Confidence float64    `yaml:"confidence" json:"confidence" csv:"confidence"`
	Reason     string     `yaml:"reason" json:"reason" csv:"reason"`
	ExitReason ExitReason `yaml:"exit_reason,omitempty" json:"exit_reason,omitempty" csv:"exit_reason"`
	// Size is the number of units of the instrument bought or sold, 0 for exits until filled.
	Size float64 `yaml:"size" json:"size" csv:"size"`
}
