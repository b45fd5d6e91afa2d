// src/stats/engine.go
package stats

import (
	"fmt"

	"github.com/username/lotlens/src/models"
)

// Placeholder marks summary fields this engine cannot derive from a bare
// event sequence: direction-based splits need per-trade side data that is
// not retained, a genuine Sharpe ratio needs return variance over time,
// and equity-based drawdown needs intra-trade equity, not just balance.
// They are emitted verbatim rather than backfilled with invented formulas
// so a recomputed summary is never mistaken for broker-reported truth.
const Placeholder = "n/a"

// Compute summarizes an ordered event sequence into a ReportMeta. The
// caller supplies the sequence already sorted chronologically (original
// parse order or a resimulated copy); the engine does not re-sort. Empty
// input yields a summary with zero trades and nothing else populated.
func Compute(events []models.DataPoint, startingBalance float64) models.ReportMeta {
	var meta models.ReportMeta
	if len(events) == 0 {
		return meta
	}

	var (
		grossProfit float64
		lossSum     float64 // signed, accumulates negative trade profits
		winCount    int
		lossCount   int

		largestWin  float64
		largestLoss float64

		curWinCount  int
		curWinAmt    float64
		curLossCount int
		curLossAmt   float64

		maxWinCount    int
		maxWinCountAmt float64
		maxWinAmt      float64
		maxWinAmtCount int

		maxLossCount    int
		maxLossCountAmt float64
		maxLossAmt      float64 // most negative cumulative loss streak
		maxLossAmtCount int

		maxAbsDD float64
		relAtAbs float64
		maxRelDD float64
		absAtRel float64
	)

	peak := startingBalance
	minBalance := startingBalance

	trades := 0
	for _, e := range events {
		if e.IsTrade() {
			trades++
			p := e.NetProfit

			if p >= 0 {
				grossProfit += p
				winCount++
				if p > largestWin {
					largestWin = p
				}
				curWinCount++
				curWinAmt += p
				curLossCount = 0
				curLossAmt = 0
				if curWinCount > maxWinCount {
					maxWinCount = curWinCount
					maxWinCountAmt = curWinAmt
				}
				if curWinAmt > maxWinAmt {
					maxWinAmt = curWinAmt
					maxWinAmtCount = curWinCount
				}
			} else {
				lossSum += p
				lossCount++
				if p < largestLoss {
					largestLoss = p
				}
				curLossCount++
				curLossAmt += p
				curWinCount = 0
				curWinAmt = 0
				if curLossCount > maxLossCount {
					maxLossCount = curLossCount
					maxLossCountAmt = curLossAmt
				}
				if curLossAmt < maxLossAmt {
					maxLossAmt = curLossAmt
					maxLossAmtCount = curLossCount
				}
			}
		}

		// Drawdown runs over every event, not only trades: deposits and
		// withdrawals move the balance too.
		if e.Balance > peak {
			peak = e.Balance
		} else {
			dd := peak - e.Balance
			rel := 0.0
			if peak > 0 {
				rel = dd / peak * 100
			}
			if dd > maxAbsDD {
				maxAbsDD = dd
				relAtAbs = rel
			}
			if rel > maxRelDD {
				maxRelDD = rel
				absAtRel = dd
			}
		}
		if e.Balance < minBalance {
			minBalance = e.Balance
		}
	}

	grossLoss := -lossSum // positive magnitude
	netProfit := grossProfit - grossLoss

	profitFactor := grossProfit
	if grossLoss != 0 {
		profitFactor = grossProfit / grossLoss
	}

	expectedPayoff := 0.0
	if trades > 0 {
		expectedPayoff = netProfit / float64(trades)
	}

	avgWin := 0.0
	if winCount > 0 {
		avgWin = grossProfit / float64(winCount)
	}
	avgLoss := 0.0
	if lossCount > 0 {
		avgLoss = lossSum / float64(lossCount)
	}

	winPct, lossPct := 0.0, 0.0
	if trades > 0 {
		winPct = float64(winCount) / float64(trades) * 100
		lossPct = float64(lossCount) / float64(trades) * 100
	}

	absoluteDD := startingBalance - minBalance
	if absoluteDD < 0 {
		absoluteDD = 0
	}

	meta.TotalNetProfit = fmt.Sprintf("%.2f", netProfit)
	meta.GrossProfit = fmt.Sprintf("%.2f", grossProfit)
	meta.GrossLoss = fmt.Sprintf("%.2f", lossSum)
	meta.ProfitFactor = fmt.Sprintf("%.2f", profitFactor)
	meta.ExpectedPayoff = fmt.Sprintf("%.2f", expectedPayoff)
	meta.RecoveryFactor = Placeholder
	meta.SharpeRatio = Placeholder

	meta.BalanceDrawdownAbsolute = fmt.Sprintf("%.2f", absoluteDD)
	meta.BalanceDrawdownMaximal = fmt.Sprintf("%.2f (%.2f%%)", maxAbsDD, relAtAbs)
	meta.BalanceDrawdownRelative = fmt.Sprintf("%.2f%% (%.2f)", maxRelDD, absAtRel)
	meta.EquityDrawdownMaximal = Placeholder

	meta.TotalTrades = trades
	meta.ShortTrades = Placeholder
	meta.LongTrades = Placeholder
	meta.ProfitTrades = fmt.Sprintf("%d (%.2f%%)", winCount, winPct)
	meta.LossTrades = fmt.Sprintf("%d (%.2f%%)", lossCount, lossPct)

	meta.LargestProfitTrade = fmt.Sprintf("%.2f", largestWin)
	meta.LargestLossTrade = fmt.Sprintf("%.2f", largestLoss)
	meta.AverageProfitTrade = fmt.Sprintf("%.2f", avgWin)
	meta.AverageLossTrade = fmt.Sprintf("%.2f", avgLoss)

	meta.MaxConsecutiveWins = fmt.Sprintf("%d (%.2f)", maxWinCount, maxWinCountAmt)
	meta.MaxConsecutiveLosses = fmt.Sprintf("%d (%.2f)", maxLossCount, maxLossCountAmt)
	meta.MaxConsecutiveProfit = fmt.Sprintf("%.2f (%d)", maxWinAmt, maxWinAmtCount)
	meta.MaxConsecutiveLoss = fmt.Sprintf("%.2f (%d)", maxLossAmt, maxLossAmtCount)
	meta.AverageConsecutiveWins = Placeholder
	meta.AverageConsecutiveLosses = Placeholder

	return meta
}
