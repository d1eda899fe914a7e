package engine

import (
	"context"
	"sync"

	"github.com/rxtech-lab/turtle-trading/internal/backtest/commission_fee"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"go.uber.org/zap"
)

// PaperExecutionAdapter fills every order immediately at its reference price,
// moved against the trader by the configured slippage, and charges the
// configured commission. It never routes to a broker.
type PaperExecutionAdapter struct {
	commission  commission_fee.CommissionFee
	slippageBps float64
	log         *logger.Logger

	mu    sync.Mutex
	fills []Fill
}

// NewPaperExecutionAdapter creates a paper fill source. A nil commission
// model charges nothing.
func NewPaperExecutionAdapter(commission commission_fee.CommissionFee, slippageBps float64, log *logger.Logger) *PaperExecutionAdapter {
	if commission == nil {
		commission = commission_fee.NewZeroCommissionFee()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PaperExecutionAdapter{
		commission:  commission,
		slippageBps: slippageBps,
		log:         log.Named("paper"),
		mu:          sync.Mutex{},
		fills:       nil,
	}
}

// Fill implements FillSource.
func (p *PaperExecutionAdapter) Fill(ctx context.Context, order Order) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, errors.Wrap(errors.ErrCodeFillFailed, "fill cancelled", err)
	}

	if order.Size <= 0 {
		return Fill{}, errors.Newf(errors.ErrCodeFillFailed, "order %s has size %.8f", order.ID, order.Size)
	}

	price := commission_fee.ApplySlippage(order.ReferencePrice, order.Side == SideBuy, p.slippageBps)
	fill := Fill{
		OrderID: order.ID,
		Price:   price,
		Size:    order.Size,
		Fee:     p.commission.Calculate(order.Size, price),
		Time:    order.Time,
	}

	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	p.log.Info("Paper fill",
		zap.String("order_id", order.ID),
		zap.String("instrument", order.Instrument),
		zap.String("side", string(order.Side)),
		zap.Float64("price", fill.Price),
		zap.Float64("size", fill.Size),
		zap.Float64("fee", fill.Fee),
	)

	return fill, nil
}

// Fills returns a copy of every fill executed so far.
func (p *PaperExecutionAdapter) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Fill, len(p.fills))
	copy(out, p.fills)

	return out
}
