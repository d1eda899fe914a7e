package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// TurtleParams configures the breakout, sizing and pyramiding rules.
// It is never mutated after construction.
type TurtleParams struct {
	// EntryPeriod is the Donchian lookback used for breakout entries.
	EntryPeriod int `yaml:"entry_period" json:"entry_period" jsonschema:"title=Entry Period,default=20,minimum=1" validate:"gt=0"`
	// ExitPeriod is the Donchian lookback used for channel exits.
	ExitPeriod int `yaml:"exit_period" json:"exit_period" jsonschema:"title=Exit Period,default=10,minimum=1" validate:"gt=0"`
	// ATRPeriod is the Wilder smoothing period of the average true range.
	ATRPeriod int `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR Period,default=20,minimum=1" validate:"gt=0"`
	// RiskPerTrade is the fraction of equity risked by one unit.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" jsonschema:"title=Risk Per Trade,default=0.02,exclusiveMinimum=0,exclusiveMaximum=1" validate:"gt=0,lt=1"`
	// MaxUnits caps the number of pyramided units.
	MaxUnits int `yaml:"max_units" json:"max_units" jsonschema:"title=Max Units,default=4,minimum=1" validate:"gte=1"`
	// StopMultiple is the stop distance in ATRs.
	StopMultiple float64 `yaml:"stop_multiple" json:"stop_multiple" jsonschema:"title=Stop Multiple,default=2,exclusiveMinimum=0" validate:"gt=0"`
	// PyramidStep is the favorable move in ATRs required before adding a unit.
	PyramidStep float64 `yaml:"pyramid_step" json:"pyramid_step" jsonschema:"title=Pyramid Step,default=0.5,exclusiveMinimum=0" validate:"gt=0"`
}

// DefaultTurtleParams returns the classic turtle settings.
func DefaultTurtleParams() TurtleParams {
	return TurtleParams{
		EntryPeriod:  20,
		ExitPeriod:   10,
		ATRPeriod:    20,
		RiskPerTrade: 0.02,
		MaxUnits:     4,
		StopMultiple: 2.0,
		PyramidStep:  0.5,
	}
}

var paramsValidator = validator.New()

// Validate fails fast on any out-of-range field. Values are never clamped.
func (p TurtleParams) Validate() error {
	err := paramsValidator.Struct(p)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid turtle params", err)
	}

	first := validationErrors[0]
	message := fmt.Sprintf("%s=%v violates %s", first.Field(), first.Value(), first.ActualTag())

	switch first.Field() {
	case "EntryPeriod", "ExitPeriod", "ATRPeriod":
		return errors.New(errors.ErrCodeInvalidPeriod, message)
	case "RiskPerTrade":
		return errors.New(errors.ErrCodeInvalidRiskFraction, message)
	case "MaxUnits":
		return errors.New(errors.ErrCodeInvalidMaxUnits, message)
	case "StopMultiple", "PyramidStep":
		return errors.New(errors.ErrCodeInvalidMultiplier, message)
	default:
		return errors.New(errors.ErrCodeInvalidConfiguration, message)
	}
}

// WarmupBars is the number of bars retained so every indicator window stays computable.
func (p TurtleParams) WarmupBars() int {
	return max(p.EntryPeriod, p.ExitPeriod, p.ATRPeriod) + 1
}
