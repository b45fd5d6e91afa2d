// src/simulation/resimulate.go
package simulation

import (
	"errors"
	"math"

	"github.com/username/lotlens/src/models"
	"github.com/username/lotlens/src/utils"
)

// Resimulation errors. ErrMixedLotSizes is deliberately distinct from the
// no-data case so callers can surface a specific "unavailable" state: the
// proportional rescaling below is only valid when every historical trade
// shared one lot size.
var (
	ErrMixedLotSizes = errors.New("report trades use mixed lot sizes, resimulation is unavailable")
	ErrNoTrades      = errors.New("report contains no trades to resimulate")
	ErrInvalidLot    = errors.New("lot size must be positive")
)

// Resimulate replays the event sequence under a counterfactual uniform lot
// size. Trade profits are rescaled proportionally on their volume-bound
// components while swap, a time-based holding cost, stays untouched;
// non-trade events pass through with profit unchanged. The running balance
// restarts at initialDeposit and accumulates the new per-event profit.
// The input slice is never mutated; the result is a fresh copy.
func Resimulate(events []models.DataPoint, initialDeposit, lotSize float64) ([]models.DataPoint, error) {
	if lotSize <= 0 {
		return nil, ErrInvalidLot
	}

	baseLot := 0.0
	for _, e := range events {
		if e.Volume <= 0 {
			continue
		}
		if baseLot == 0 {
			baseLot = e.Volume
			continue
		}
		if e.Volume != baseLot {
			return nil, ErrMixedLotSizes
		}
	}
	if baseLot == 0 {
		return nil, ErrNoTrades
	}

	simulated := make([]models.DataPoint, len(events))
	balance := initialDeposit
	for i, e := range events {
		point := e
		if e.Volume > 0 {
			// The fixed-lot precondition makes the ratio constant, but it is
			// read per event so a stray odd row cannot poison its neighbours.
			r := lotSize / e.Volume
			if e.HasComponents {
				point.RawProfit = e.RawProfit * r
				point.Commission = e.Commission * r
				point.NetProfit = point.RawProfit + e.Swap + point.Commission
			} else {
				point.NetProfit = e.NetProfit / e.Volume * lotSize
				point.RawProfit = point.NetProfit
			}
			point.Volume = lotSize
		}
		balance += point.NetProfit
		point.Balance = balance
		simulated[i] = point
	}
	return simulated, nil
}

// Compare relates the baseline report's net profit (as parsed from its own
// summary text, separators and all) to a resimulated total. The percentage
// difference is taken against the absolute value of the original so the
// sign stays meaningful when the original profit is negative, and is
// defined as 0 when the original profit is exactly 0.
func Compare(baselineNetProfit string, simulatedNetProfit float64) models.Comparison {
	original := utils.ParseDecimal(baselineNetProfit)
	diff := simulatedNetProfit - original

	pct := 0.0
	if original != 0 {
		pct = diff / math.Abs(original) * 100
	}

	return models.Comparison{
		OriginalNetProfit:  original,
		SimulatedNetProfit: simulatedNetProfit,
		Difference:         diff,
		PercentChange:      pct,
	}
}

// NetProfit sums the per-event profit of a sequence; trade and non-trade
// contributions are separated so deposits do not inflate the comparison.
func NetProfit(events []models.DataPoint) float64 {
	total := 0.0
	for _, e := range events {
		if e.IsTrade() {
			total += e.NetProfit
		}
	}
	return total
}
