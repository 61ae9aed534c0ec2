package trader

import (
	"context"
	"time"

	"demo-trading-go/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine runs the periodic lifecycle work on independent timers: a fast
// expiry sweep, a live price refresh for the active set, and a slower
// market board refresh. Each tick is a complete unit of work; canceling
// the context stops the loop between ticks, never mid-mutation.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger     *zap.Logger
	cfg        config.Trading
	controller *Controller
	markets    *Markets
}

// NewEngine creates the lifecycle engine.
func NewEngine(cfg config.Trading, controller *Controller, markets *Markets, logger *zap.Logger) *Engine {
	return &Engine{
		UUID:       uuid.NewString(),
		Name:       "demo-trading-engine",
		StartTime:  time.Now(),
		logger:     logger,
		cfg:        cfg,
		controller: controller,
		markets:    markets,
	}
}

// Run starts the engine's main loop and blocks until the context is
// canceled.
func (e *Engine) Run(ctx context.Context) {
	sweepInterval := time.Duration(e.cfg.SweepInterval) * time.Second
	refreshInterval := time.Duration(e.cfg.RefreshInterval) * time.Second
	marketInterval := time.Duration(e.cfg.MarketRefreshInterval) * time.Second

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()
	market := time.NewTicker(marketInterval)
	defer market.Stop()

	e.logger.Info("Starting lifecycle loop",
		zap.Duration("sweep_interval", sweepInterval),
		zap.Duration("refresh_interval", refreshInterval),
		zap.Duration("market_interval", marketInterval),
	)

	// Prime the market board so the first API call has data.
	e.markets.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping lifecycle loop...")
			return
		case now := <-sweep.C:
			settled, err := e.controller.SweepExpired(now)
			if err != nil {
				e.logger.Error("Expiry sweep failed", zap.Error(err))
			} else if len(settled) > 0 {
				e.logger.Info("Expiry sweep settled trades", zap.Int("count", len(settled)))
			}
		case <-refresh.C:
			if _, err := e.controller.RefreshLivePrices(ctx); err != nil {
				e.logger.Error("Live price refresh failed", zap.Error(err))
			}
		case <-market.C:
			e.markets.Refresh(ctx)
		}
	}
}
