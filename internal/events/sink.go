// Package events fans signals and trades out to observers.
package events

import (
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"go.uber.org/zap"
)

// Sink observes what the manager emits. Calls for one instrument arrive in
// bar order; calls for different instruments may be concurrent.
type Sink interface {
	OnSignal(signal types.Signal)
	OnTrade(trade types.Trade)
}

// LogSink writes every signal and trade to the logger.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &LogSink{log: log.Named("events")}
}

// OnSignal implements Sink.
func (s *LogSink) OnSignal(signal types.Signal) {
	s.log.Info("Signal",
		zap.String("id", signal.ID),
		zap.String("instrument", signal.Instrument),
		zap.String("kind", string(signal.Kind)),
		zap.Time("time", signal.Time),
		zap.Float64("reference_price", signal.ReferencePrice),
		zap.Float64("confidence", signal.Confidence),
		zap.Float64("size", signal.Size),
		zap.String("reason", signal.Reason),
	)
}

// OnTrade implements Sink.
func (s *LogSink) OnTrade(trade types.Trade) {
	s.log.Info("Trade",
		zap.String("id", trade.ID),
		zap.String("instrument", trade.Instrument),
		zap.String("direction", string(trade.Direction)),
		zap.Float64("entry_price", trade.EntryPrice),
		zap.Float64("exit_price", trade.ExitPrice),
		zap.Float64("size", trade.Size),
		zap.Float64("pnl", trade.PnL),
		zap.String("exit_reason", string(trade.ExitReason)),
	)
}
