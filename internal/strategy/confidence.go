package strategy

import (
	"github.com/rxtech-lab/turtle-trading/internal/series"
	"github.com/rxtech-lab/turtle-trading/internal/types"
)

const (
	confidenceBase       = 0.5
	confidenceExit       = 0.8
	confidenceMin        = 0.1
	confidenceMax        = 0.9
	confidenceVolumeBars = 10
)

// Confidence scores an actionable signal between 0.1 and 0.9. It is
// informational and never gates execution. Exits score a flat 0.8 and Hold 0.
//
// Entries and adds start at 0.5, gain 0.2 when the latest volume exceeds 1.5x
// the mean volume of the last ten bars including the latest (0.1 above 1.2x),
// and 0.1 when the latest close moved in the signal's direction.
func Confidence(s *series.BarSeries, kind types.SignalKind, direction types.Direction) float64 {
	switch kind {
	case types.SignalKindHold:
		return 0
	case types.SignalKindExit:
		return confidenceExit
	case types.SignalKindEnterLong, types.SignalKindEnterShort, types.SignalKindAddUnit:
	}

	score := confidenceBase

	last, ok := s.Last()
	if !ok {
		return score
	}

	window := s.Window(confidenceVolumeBars)
	if len(window) > 1 {
		var total float64
		for _, bar := range window {
			total += bar.Volume
		}

		mean := total / float64(len(window))
		if mean > 0 {
			ratio := last.Volume / mean

			switch {
			case ratio > 1.5:
				score += 0.2
			case ratio > 1.2:
				score += 0.1
			}
		}

		previous := window[len(window)-2]
		if (last.Close-previous.Close)*direction.Sign() > 0 {
			score += 0.1
		}
	}

	return min(max(score, confidenceMin), confidenceMax)
}
