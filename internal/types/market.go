package types

import (
	"time"

	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// Bar is one OHLCV candle for an instrument. Bars are immutable once stored.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks the shape of a bar before it enters a series.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return errors.New(errors.ErrCodeInvalidBar, "bar time is zero")
	}

	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has non-positive price", b.Time.Format(time.RFC3339))
	}

	if b.High < b.Low {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has high %.8f below low %.8f", b.Time.Format(time.RFC3339), b.High, b.Low)
	}

	if b.Volume < 0 {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has negative volume", b.Time.Format(time.RFC3339))
	}

	return nil
}

// Tick is a raw ticker snapshot kept for live telemetry. The strategy never reads it.
type Tick struct {
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Time      time.Time `yaml:"time" json:"time"`
	Last      float64   `yaml:"last" json:"last"`
	Bid       float64   `yaml:"bid" json:"bid"`
	Ask       float64   `yaml:"ask" json:"ask"`
	Volume24h float64   `yaml:"volume_24h" json:"volume_24h"`
}
