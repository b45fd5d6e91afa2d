// src/stats/engine_test.go
package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/username/lotlens/src/models"
)

func tradeAt(day int, profit, volume, balance float64) models.DataPoint {
	return models.DataPoint{
		Timestamp: time.Date(2023, 1, day, 10, 0, 0, 0, time.UTC),
		NetProfit: profit,
		Volume:    volume,
		Balance:   balance,
	}
}

func balanceAt(day int, amount, balance float64) models.DataPoint {
	p := tradeAt(day, amount, 0, balance)
	p.Kind = "balance"
	return p
}

func TestCompute_EmptyEvents(t *testing.T) {
	meta := Compute(nil, 10000)
	assert.Equal(t, 0, meta.TotalTrades)
	assert.Equal(t, "", meta.TotalNetProfit)
	assert.Equal(t, "", meta.ProfitFactor)
}

func TestCompute_ResimulatedScenario(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(2, 200, 0.2, 10200),
		tradeAt(3, -100, 0.2, 10100),
		tradeAt(4, 900, 0.2, 11000),
	}

	meta := Compute(events, 10000)

	assert.Equal(t, 3, meta.TotalTrades)
	assert.Equal(t, "1000.00", meta.TotalNetProfit)
	assert.Equal(t, "11.00", meta.ProfitFactor) // 1100 / 100
	assert.Equal(t, "1100.00", meta.GrossProfit)
	assert.Equal(t, "-100.00", meta.GrossLoss)
	assert.Equal(t, "2 (66.67%)", meta.ProfitTrades)
	assert.Equal(t, "1 (33.33%)", meta.LossTrades)
	assert.Equal(t, "900.00", meta.LargestProfitTrade)
	assert.Equal(t, "-100.00", meta.LargestLossTrade)
	assert.Equal(t, "550.00", meta.AverageProfitTrade)
	assert.Equal(t, "-100.00", meta.AverageLossTrade)
}

func TestCompute_ProfitFactorZeroGuard(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(2, 100, 0.1, 10100),
		tradeAt(3, 200, 0.1, 10300),
	}

	meta := Compute(events, 10000)

	// No losses: profit factor is defined as the gross profit itself,
	// never Inf or NaN.
	assert.Equal(t, "300.00", meta.ProfitFactor)
	assert.Equal(t, "300.00", meta.GrossProfit)
}

func TestCompute_StreakMaximaAreIndependent(t *testing.T) {
	// Three small wins beat on count; one large win beats on dollars.
	events := []models.DataPoint{
		tradeAt(1, 1, 0.1, 10001),
		tradeAt(2, 1, 0.1, 10002),
		tradeAt(3, 1, 0.1, 10003),
		tradeAt(4, -5, 0.1, 9998),
		tradeAt(5, 100, 0.1, 10098),
	}

	meta := Compute(events, 10000)

	assert.Equal(t, "3 (3.00)", meta.MaxConsecutiveWins)
	assert.Equal(t, "100.00 (1)", meta.MaxConsecutiveProfit)
	assert.Equal(t, "1 (-5.00)", meta.MaxConsecutiveLosses)
	assert.Equal(t, "-5.00 (1)", meta.MaxConsecutiveLoss)
}

func TestCompute_LossStreakResetOnWin(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(1, -10, 0.1, 9990),
		tradeAt(2, -10, 0.1, 9980),
		tradeAt(3, 5, 0.1, 9985),
		tradeAt(4, -10, 0.1, 9975),
	}

	meta := Compute(events, 10000)

	assert.Equal(t, "2 (-20.00)", meta.MaxConsecutiveLosses)
	assert.Equal(t, "-20.00 (2)", meta.MaxConsecutiveLoss)
	assert.Equal(t, "1 (5.00)", meta.MaxConsecutiveWins)
}

func TestCompute_DrawdownMaximaAreIndependent(t *testing.T) {
	// A small peak with a deep relative drop, then a large peak with a
	// bigger absolute drop but a shallower relative one.
	events := []models.DataPoint{
		balanceAt(1, 100, 200),
		balanceAt(2, -100, 100), // dd 100 off peak 200 -> 50%
		balanceAt(3, 900, 1000), // new peak
		balanceAt(4, -150, 850), // dd 150 off peak 1000 -> 15%
	}

	meta := Compute(events, 100)

	assert.Equal(t, "150.00 (15.00%)", meta.BalanceDrawdownMaximal)
	assert.Equal(t, "50.00% (100.00)", meta.BalanceDrawdownRelative)
}

func TestCompute_DrawdownIncludesNonTradeEvents(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(1, 500, 0.1, 10500),
		balanceAt(2, -3000, 7500), // withdrawal drags the balance down
		tradeAt(3, 100, 0.1, 7600),
	}

	meta := Compute(events, 10000)

	assert.Equal(t, "3000.00 (28.57%)", meta.BalanceDrawdownMaximal)
	// Withdrawal is not a trade: it must not touch trade statistics.
	assert.Equal(t, 2, meta.TotalTrades)
	assert.Equal(t, "600.00", meta.TotalNetProfit)
}

func TestCompute_DrawdownNonNegative(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(1, 100, 0.1, 10100),
		tradeAt(2, 200, 0.1, 10300),
	}

	meta := Compute(events, 10000)

	assert.Equal(t, "0.00 (0.00%)", meta.BalanceDrawdownMaximal)
	assert.Equal(t, "0.00% (0.00)", meta.BalanceDrawdownRelative)
	assert.Equal(t, "0.00", meta.BalanceDrawdownAbsolute)
}

func TestCompute_PlaceholdersNeverBackfilled(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(1, 100, 0.1, 10100),
	}

	meta := Compute(events, 10000)

	assert.Equal(t, Placeholder, meta.SharpeRatio)
	assert.Equal(t, Placeholder, meta.ShortTrades)
	assert.Equal(t, Placeholder, meta.LongTrades)
	assert.Equal(t, Placeholder, meta.EquityDrawdownMaximal)
	assert.Equal(t, Placeholder, meta.AverageConsecutiveWins)
	assert.Equal(t, Placeholder, meta.AverageConsecutiveLosses)
	assert.Equal(t, Placeholder, meta.RecoveryFactor)
}

func TestCompute_ExpectedPayoff(t *testing.T) {
	events := []models.DataPoint{
		tradeAt(1, 100, 0.1, 10100),
		tradeAt(2, -40, 0.1, 10060),
	}

	meta := Compute(events, 10000)
	assert.Equal(t, "30.00", meta.ExpectedPayoff) // 60 / 2
}
