// Package settlement holds the payout math for simulated trades. All
// functions are pure; randomness comes in through an injected *rand.Rand
// so outcomes can be forced in tests.
package settlement

import (
	"math/rand"

	"demo-trading-go/internal/config"
	"demo-trading-go/internal/models"
)

// Moves applied when a trade's timeframe is not in the table, matching
// the catch-all branch of the per-timeframe tables.
const (
	defaultTargetMovePercent = 27.5
	defaultSettleMovePercent = 28
)

// Config names the payout economics: the timeframe tables and the house
// win probability. These define the product's payout behavior and must
// stay overridable configuration, never inlined literals.
type Config struct {
	Timeframes     []config.Timeframe
	WinProbability float64
}

// NewConfig builds a settlement config from the trading configuration.
func NewConfig(t config.Trading) Config {
	return Config{
		Timeframes:     t.Timeframes,
		WinProbability: t.WinProbability,
	}
}

// LiveMetrics is the display snapshot for an active trade.
type LiveMetrics struct {
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_percent"`
	TargetPercent float64 `json:"target_percent"`
}

// Outcome is the final result of a settled trade.
type Outcome struct {
	ExitPrice     float64
	Profit        float64
	ProfitPercent float64
	Won           bool
}

// targetMove returns the displayed expected move for a timeframe.
func (c Config) targetMove(seconds int) float64 {
	for _, tf := range c.Timeframes {
		if tf.Seconds == seconds {
			return tf.TargetMovePercent
		}
	}
	return defaultTargetMovePercent
}

// settleMove returns the settlement move for a timeframe.
func (c Config) settleMove(seconds int) float64 {
	for _, tf := range c.Timeframes {
		if tf.Seconds == seconds {
			return tf.SettleMovePercent
		}
	}
	return defaultSettleMovePercent
}

// ComputeLiveMetrics recomputes an active trade's profit from the current
// price. TargetPercent is a display figure, not a cap: it is the expected
// move for the timeframe, positive for long and negative for short.
func ComputeLiveMetrics(cfg Config, entryPrice, currentPrice float64, direction string, amount float64, timeframeSeconds int) LiveMetrics {
	ratio := (currentPrice - entryPrice) / entryPrice
	sign := models.DirectionSign(direction)

	return LiveMetrics{
		Profit:        ratio * sign * amount,
		ProfitPercent: ratio * sign * 100,
		TargetPercent: cfg.targetMove(timeframeSeconds) * sign,
	}
}

// ComputeSettlement draws a win/loss outcome and produces the final exit
// price and profit. The price moves by the timeframe's settlement
// percentage in the direction that pays the trade on a win and costs it
// on a loss: a winning short sees the price fall. Profit is derived from
// the exit price through the same formula as live metrics, so the sign
// of the profit always agrees with the exit price and the direction.
func ComputeSettlement(cfg Config, entryPrice float64, direction string, amount float64, timeframeSeconds int, rng *rand.Rand) Outcome {
	outcome := -1.0
	won := rng.Float64() < cfg.WinProbability
	if won {
		outcome = 1
	}

	sign := models.DirectionSign(direction)
	movePercent := cfg.settleMove(timeframeSeconds) * outcome * sign
	exitPrice := entryPrice * (1 + movePercent/100)

	ratio := (exitPrice - entryPrice) / entryPrice
	return Outcome{
		ExitPrice:     exitPrice,
		Profit:        ratio * sign * amount,
		ProfitPercent: ratio * sign * 100,
		Won:           won,
	}
}
