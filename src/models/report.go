// src/models/report.go
package models

import "time"

// DataPoint is one row of the broker ledger: a closed trade or a
// balance-affecting operation (deposit, withdrawal, adjustment).
// Each parser populates as many fields as the source report carries.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Balance   float64   `json:"balance"`    // account balance right after this event, as reported
	NetProfit float64   `json:"net_profit"` // raw profit + swap + commission when the breakdown exists
	Volume    float64   `json:"volume"`     // position size; 0 for non-trade rows
	Kind      string    `json:"kind"`       // report's own label ("buy", "sell", "balance", ...), may be empty

	// Profit sub-components. Only meaningful when HasComponents is set;
	// resimulation needs them to rescale the volume-bound part while
	// leaving swap untouched.
	RawProfit     float64 `json:"raw_profit"`
	Swap          float64 `json:"swap"`
	Commission    float64 `json:"commission"`
	HasComponents bool    `json:"has_components"`
}

// IsTrade reports whether the event participates in win/loss accounting.
// Classification prefers the report's own label when present and falls
// back to the volume column.
func (d DataPoint) IsTrade() bool {
	switch d.Kind {
	case "balance", "deposit", "withdrawal", "credit", "correction":
		return false
	}
	return d.Volume > 0
}

// ReportMeta is the summary block of a strategy tester report. Values keep
// the report's own display notation (e.g. "123.45" or "12 (34.00%)") so a
// recomputed summary and a broker-reported one render the same way.
// Labels the parser does not recognize are carried in Extra untouched.
type ReportMeta struct {
	TotalNetProfit string `json:"total_net_profit"`
	GrossProfit    string `json:"gross_profit"`
	GrossLoss      string `json:"gross_loss"`
	ProfitFactor   string `json:"profit_factor"`
	ExpectedPayoff string `json:"expected_payoff"`
	RecoveryFactor string `json:"recovery_factor"`
	SharpeRatio    string `json:"sharpe_ratio"`

	BalanceDrawdownAbsolute string `json:"balance_drawdown_absolute"`
	BalanceDrawdownMaximal  string `json:"balance_drawdown_maximal"`
	BalanceDrawdownRelative string `json:"balance_drawdown_relative"`
	EquityDrawdownMaximal   string `json:"equity_drawdown_maximal"`

	TotalTrades  int    `json:"total_trades"`
	ShortTrades  string `json:"short_trades"`
	LongTrades   string `json:"long_trades"`
	ProfitTrades string `json:"profit_trades"`
	LossTrades   string `json:"loss_trades"`

	LargestProfitTrade string `json:"largest_profit_trade"`
	LargestLossTrade   string `json:"largest_loss_trade"`
	AverageProfitTrade string `json:"average_profit_trade"`
	AverageLossTrade   string `json:"average_loss_trade"`

	MaxConsecutiveWins       string `json:"max_consecutive_wins"`   // "count (amount)"
	MaxConsecutiveLosses     string `json:"max_consecutive_losses"` // "count (amount)"
	MaxConsecutiveProfit     string `json:"max_consecutive_profit"` // "amount (count)"
	MaxConsecutiveLoss       string `json:"max_consecutive_loss"`   // "amount (count)"
	AverageConsecutiveWins   string `json:"average_consecutive_wins"`
	AverageConsecutiveLosses string `json:"average_consecutive_losses"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Report is the full output of parsing one uploaded HTML report.
type Report struct {
	Events         []DataPoint `json:"events"`
	InitialDeposit float64     `json:"initial_deposit"`
	Meta           ReportMeta  `json:"meta"`
	FixedLotSize   float64     `json:"fixed_lot_size"` // only meaningful when HasFixedLot
	HasFixedLot    bool        `json:"has_fixed_lot"`
}

// ReportAnalysis is what the upload endpoint hands back: the broker-reported
// summary plus the engine's own recomputation over the parsed events.
type ReportAnalysis struct {
	DatasetID      string     `json:"dataset_id"`
	EventCount     int        `json:"event_count"`
	InitialDeposit float64    `json:"initial_deposit"`
	FixedLotSize   float64    `json:"fixed_lot_size"`
	HasFixedLot    bool       `json:"has_fixed_lot"`
	Meta           ReportMeta `json:"meta"`
	ComputedMeta   ReportMeta `json:"computed_meta"`
}

// Comparison relates the baseline report's net profit to a resimulated one.
// PercentChange is relative to the absolute value of the original so the
// sign stays meaningful when the original profit is itself negative; it is
// 0 when the original profit is exactly 0.
type Comparison struct {
	OriginalNetProfit  float64 `json:"original_net_profit"`
	SimulatedNetProfit float64 `json:"simulated_net_profit"`
	Difference         float64 `json:"difference"`
	PercentChange      float64 `json:"percent_change"`
}

// SimulationResult is the stored outcome of one what-if run.
type SimulationResult struct {
	DatasetID    string      `json:"dataset_id"`
	LotSize      float64     `json:"lot_size"`
	Events       []DataPoint `json:"events"`
	FinalBalance float64     `json:"final_balance"`
	Meta         ReportMeta  `json:"meta"`
	Comparison   Comparison  `json:"comparison"`
}
