package settlement

import (
	"math/rand"
	"testing"

	"demo-trading-go/internal/config"
	"demo-trading-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func testConfig(winProbability float64) Config {
	return Config{
		Timeframes:     config.DefaultTimeframes(),
		WinProbability: winProbability,
	}
}

func TestComputeLiveMetrics_Long(t *testing.T) {
	cfg := testConfig(0.6)

	// +5% price move on a long position
	m := ComputeLiveMetrics(cfg, 2000, 2100, models.DirectionLong, 1000, 60)

	assert.InDelta(t, 50.0, m.Profit, 1e-9)
	assert.InDelta(t, 5.0, m.ProfitPercent, 1e-9)
	assert.InDelta(t, 13.0, m.TargetPercent, 1e-9)
}

func TestComputeLiveMetrics_Short(t *testing.T) {
	cfg := testConfig(0.6)

	// Price rose, so the short is losing
	m := ComputeLiveMetrics(cfg, 2000, 2100, models.DirectionShort, 1000, 60)

	assert.InDelta(t, -50.0, m.Profit, 1e-9)
	assert.InDelta(t, -5.0, m.ProfitPercent, 1e-9)
	assert.InDelta(t, -13.0, m.TargetPercent, 1e-9)
}

func TestComputeLiveMetrics_TargetTable(t *testing.T) {
	cfg := testConfig(0.6)

	cases := map[int]float64{
		60:  13,
		90:  13.5,
		120: 17.5,
		180: 22.5,
		360: 27.5,
		999: defaultTargetMovePercent, // unknown timeframe falls back
	}

	for seconds, want := range cases {
		m := ComputeLiveMetrics(cfg, 100, 100, models.DirectionLong, 500, seconds)
		assert.InDelta(t, want, m.TargetPercent, 1e-9, "timeframe %ds", seconds)
	}
}

func TestComputeSettlement_LongWin(t *testing.T) {
	cfg := testConfig(1.0) // always win
	rng := rand.New(rand.NewSource(1))

	o := ComputeSettlement(cfg, 2000, models.DirectionLong, 1000, 60, rng)

	assert.True(t, o.Won)
	assert.InDelta(t, 2000*1.14, o.ExitPrice, 1e-9) // 14% settle move at 60s
	assert.InDelta(t, 140.0, o.Profit, 1e-9)
	assert.InDelta(t, 14.0, o.ProfitPercent, 1e-9)
}

func TestComputeSettlement_ShortWin(t *testing.T) {
	cfg := testConfig(1.0)
	rng := rand.New(rand.NewSource(1))

	o := ComputeSettlement(cfg, 2000, models.DirectionShort, 1000, 60, rng)

	// A winning short sees the price fall and still pays out.
	assert.True(t, o.Won)
	assert.InDelta(t, 2000*0.86, o.ExitPrice, 1e-9)
	assert.InDelta(t, 140.0, o.Profit, 1e-9)
	assert.InDelta(t, 14.0, o.ProfitPercent, 1e-9)
}

func TestComputeSettlement_LongLoss(t *testing.T) {
	cfg := testConfig(0.0) // always lose
	rng := rand.New(rand.NewSource(1))

	o := ComputeSettlement(cfg, 2000, models.DirectionLong, 1000, 60, rng)

	assert.False(t, o.Won)
	assert.InDelta(t, 2000*0.86, o.ExitPrice, 1e-9)
	assert.InDelta(t, -140.0, o.Profit, 1e-9)
	assert.InDelta(t, -14.0, o.ProfitPercent, 1e-9)
}

func TestComputeSettlement_SignConsistency(t *testing.T) {
	// For every direction and outcome: a long profits iff the price rose,
	// a short profits iff the price fell.
	for _, winProb := range []float64{0.0, 1.0} {
		cfg := testConfig(winProb)
		for _, direction := range []string{models.DirectionLong, models.DirectionShort} {
			rng := rand.New(rand.NewSource(7))
			o := ComputeSettlement(cfg, 1500, direction, 2000, 120, rng)

			priceRose := o.ExitPrice > 1500
			switch direction {
			case models.DirectionLong:
				assert.Equal(t, priceRose, o.Profit > 0, "long: p=%v rose=%v", winProb, priceRose)
			case models.DirectionShort:
				assert.Equal(t, !priceRose, o.Profit > 0, "short: p=%v rose=%v", winProb, priceRose)
			}
		}
	}
}

func TestComputeSettlement_ProfitMatchesExitPrice(t *testing.T) {
	cfg := testConfig(0.6)
	rng := rand.New(rand.NewSource(99))

	// Whatever the draw, the recorded profit must equal the profit a live
	// recomputation from the exit price would produce.
	for i := 0; i < 50; i++ {
		o := ComputeSettlement(cfg, 2650, models.DirectionShort, 5000, 90, rng)
		m := ComputeLiveMetrics(cfg, 2650, o.ExitPrice, models.DirectionShort, 5000, 90)
		assert.InDelta(t, m.Profit, o.Profit, 1e-9)
		assert.InDelta(t, m.ProfitPercent, o.ProfitPercent, 1e-9)
	}
}

func TestComputeSettlement_WinProbability(t *testing.T) {
	cfg := testConfig(0.6)
	rng := rand.New(rand.NewSource(1234))

	wins := 0
	const draws = 10000
	for i := 0; i < draws; i++ {
		if ComputeSettlement(cfg, 100, models.DirectionLong, 500, 60, rng).Won {
			wins++
		}
	}

	assert.InDelta(t, 0.6, float64(wins)/draws, 0.02)
}

func TestConfigOverride(t *testing.T) {
	cfg := Config{
		Timeframes: []config.Timeframe{
			{Seconds: 300, MinAmount: 40000, TargetMovePercent: 25, SettleMovePercent: 26},
		},
		WinProbability: 1.0,
	}
	rng := rand.New(rand.NewSource(1))

	o := ComputeSettlement(cfg, 1000, models.DirectionLong, 1000, 300, rng)
	assert.InDelta(t, 1260.0, o.ExitPrice, 1e-9)

	m := ComputeLiveMetrics(cfg, 1000, 1000, models.DirectionLong, 1000, 300)
	assert.InDelta(t, 25.0, m.TargetPercent, 1e-9)
}
