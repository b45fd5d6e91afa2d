// src/parsers/metatrader/parser.go
package metatrader

import (
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/username/lotlens/src/logger"
	"github.com/username/lotlens/src/models"
	"github.com/username/lotlens/src/utils"
)

// Parser extracts the metrics summary and the deals ledger from a
// MetaTrader strategy tester HTML report. It is strictly best-effort:
// broker report layouts vary, so anything it cannot locate degrades to
// empty/zero values instead of failing the whole upload.
type Parser struct{}

// NewParser creates a new instance of the Parser.
func NewParser() *Parser {
	return &Parser{}
}

// columnRule maps one semantic ledger column onto the header keywords that
// may name it. fallback is the classic report's fixed position, used when
// no keyword matches; -1 means the column is treated as absent rather than
// guessed, since a wrong guess would silently corrupt net-profit values.
type columnRule struct {
	name     string
	keywords []string
	fallback int
}

var columnRules = []columnRule{
	{"time", []string{"time", "date"}, 0},
	{"type", []string{"type", "direction", "side"}, 2},
	{"volume", []string{"volume", "size", "lots", "amount", "qty"}, 5},
	{"profit", []string{"profit", "gain"}, 10},
	{"balance", []string{"balance"}, 11},
	{"swap", []string{"swap"}, -1},
	{"commission", []string{"commission", "fee"}, -1},
}

// metricRules maps the summary table's literal labels onto ReportMeta
// fields. Matching is prefix-based on the trimmed cell text; the value is
// the immediately following cell, kept in the report's own notation.
var metricRules = []struct {
	label  string
	assign func(m *models.ReportMeta, v string)
}{
	{"Total Net Profit:", func(m *models.ReportMeta, v string) { m.TotalNetProfit = v }},
	{"Gross Profit:", func(m *models.ReportMeta, v string) { m.GrossProfit = v }},
	{"Gross Loss:", func(m *models.ReportMeta, v string) { m.GrossLoss = v }},
	{"Profit Factor:", func(m *models.ReportMeta, v string) { m.ProfitFactor = v }},
	{"Expected Payoff:", func(m *models.ReportMeta, v string) { m.ExpectedPayoff = v }},
	{"Recovery Factor:", func(m *models.ReportMeta, v string) { m.RecoveryFactor = v }},
	{"Sharpe Ratio:", func(m *models.ReportMeta, v string) { m.SharpeRatio = v }},
	{"Balance Drawdown Absolute:", func(m *models.ReportMeta, v string) { m.BalanceDrawdownAbsolute = v }},
	{"Balance Drawdown Maximal:", func(m *models.ReportMeta, v string) { m.BalanceDrawdownMaximal = v }},
	{"Balance Drawdown Relative:", func(m *models.ReportMeta, v string) { m.BalanceDrawdownRelative = v }},
	{"Equity Drawdown Maximal:", func(m *models.ReportMeta, v string) { m.EquityDrawdownMaximal = v }},
	{"Total Trades:", func(m *models.ReportMeta, v string) { m.TotalTrades = int(utils.ParseDecimal(v)) }},
	{"Short Trades (won %):", func(m *models.ReportMeta, v string) { m.ShortTrades = v }},
	{"Long Trades (won %):", func(m *models.ReportMeta, v string) { m.LongTrades = v }},
	{"Profit Trades (% of total):", func(m *models.ReportMeta, v string) { m.ProfitTrades = v }},
	{"Loss Trades (% of total):", func(m *models.ReportMeta, v string) { m.LossTrades = v }},
	{"Largest profit trade:", func(m *models.ReportMeta, v string) { m.LargestProfitTrade = v }},
	{"Largest loss trade:", func(m *models.ReportMeta, v string) { m.LargestLossTrade = v }},
	{"Average profit trade:", func(m *models.ReportMeta, v string) { m.AverageProfitTrade = v }},
	{"Average loss trade:", func(m *models.ReportMeta, v string) { m.AverageLossTrade = v }},
	{"Maximum consecutive wins ($):", func(m *models.ReportMeta, v string) { m.MaxConsecutiveWins = v }},
	{"Maximum consecutive losses ($):", func(m *models.ReportMeta, v string) { m.MaxConsecutiveLosses = v }},
	{"Maximal consecutive profit (count):", func(m *models.ReportMeta, v string) { m.MaxConsecutiveProfit = v }},
	{"Maximal consecutive loss (count):", func(m *models.ReportMeta, v string) { m.MaxConsecutiveLoss = v }},
	{"Average consecutive wins:", func(m *models.ReportMeta, v string) { m.AverageConsecutiveWins = v }},
	{"Average consecutive losses:", func(m *models.ReportMeta, v string) { m.AverageConsecutiveLosses = v }},
}

const initialDepositLabel = "Initial Deposit:"

// ledgerTimePattern discriminates genuine ledger rows from decorative and
// summary rows sharing the same table: four digits, dot, two digits, dot,
// two digits at the start of the time cell.
var ledgerTimePattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}`)

// Parse reads an HTML strategy tester report and returns the normalized
// event sequence, the initial deposit and the broker-reported summary.
// It never fails: malformed or unrecognized input yields an empty Report.
func (p *Parser) Parse(r io.Reader) models.Report {
	var report models.Report

	doc, err := html.Parse(r)
	if err != nil {
		// html.Parse only errors on reader failure; the tokenizer itself
		// accepts arbitrary malformed markup.
		logger.L.Warn("metatrader parser: unreadable input", "error", err)
		return report
	}

	rows := collectRows(doc)
	cells := flattenCells(rows)

	report.Meta = extractMeta(cells)
	report.InitialDeposit = utils.ParseDecimal(findMetric(cells, initialDepositLabel))
	report.Events = extractEvents(rows)

	sort.SliceStable(report.Events, func(i, j int) bool {
		return report.Events[i].Timestamp.Before(report.Events[j].Timestamp)
	})

	report.FixedLotSize, report.HasFixedLot = detectFixedLot(report.Events)
	return report
}

// collectRows walks the parsed tree and returns the text of every table
// row's cells, in document order.
func collectRows(doc *html.Node) [][]string {
	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, cellText(c))
				}
			}
			rows = append(rows, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

// cellText concatenates all text nodes under a cell with whitespace
// collapsed, so nested spans and line breaks do not fragment a value.
func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func flattenCells(rows [][]string) []string {
	var cells []string
	for _, row := range rows {
		cells = append(cells, row...)
	}
	return cells
}

// findMetric returns the cell immediately following the first cell whose
// trimmed text starts with label. A missing label yields "0" so callers
// always get a displayable value; a genuinely-zero metric looks the same.
func findMetric(cells []string, label string) string {
	for i, cell := range cells {
		if strings.HasPrefix(strings.TrimSpace(cell), label) && i+1 < len(cells) {
			return strings.TrimSpace(cells[i+1])
		}
	}
	return "0"
}

// extractMeta applies every metric rule and sweeps leftover "label:" cells
// into the open Extra mapping so unknown report variants round-trip.
func extractMeta(cells []string) models.ReportMeta {
	var meta models.ReportMeta

	consumed := make(map[int]bool)
	for _, rule := range metricRules {
		value := "0"
		for i, cell := range cells {
			if strings.HasPrefix(strings.TrimSpace(cell), rule.label) && i+1 < len(cells) {
				value = strings.TrimSpace(cells[i+1])
				consumed[i] = true
				break
			}
		}
		rule.assign(&meta, value)
	}

	for i, cell := range cells {
		text := strings.TrimSpace(cell)
		if !strings.HasSuffix(text, ":") || consumed[i] || i+1 >= len(cells) {
			continue
		}
		if text == initialDepositLabel {
			continue
		}
		value := strings.TrimSpace(cells[i+1])
		if value == "" || strings.HasSuffix(value, ":") {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]string)
		}
		key := strings.TrimSuffix(text, ":")
		if _, exists := meta.Extra[key]; !exists {
			meta.Extra[key] = value
		}
	}
	return meta
}

// resolveColumns performs dynamic column detection against the ledger
// header row: first keyword match wins, otherwise the rule's fallback.
func resolveColumns(header []string) map[string]int {
	indexes := make(map[string]int, len(columnRules))
	for _, rule := range columnRules {
		indexes[rule.name] = rule.fallback
		for i, cell := range header {
			if matchesAny(strings.ToLower(cell), rule.keywords) {
				indexes[rule.name] = i
				break
			}
		}
	}
	return indexes
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractEvents locates the deals table and converts its ledger rows into
// DataPoints. The header row must carry a time-like and a profit-like
// token in the same row; that is what separates the deals table from the
// metrics summary, which never combines the two.
func extractEvents(rows [][]string) []models.DataPoint {
	headerIdx := -1
	for i, row := range rows {
		joined := strings.ToLower(strings.Join(row, " "))
		if strings.Contains(joined, "time") && strings.Contains(joined, "profit") {
			headerIdx = i
			break
		}
	}

	var columns map[string]int
	if headerIdx >= 0 {
		columns = resolveColumns(rows[headerIdx])
	} else {
		// No strict header: fall back to default positions. Most rows will
		// then fail the time-pattern check, which is the accepted
		// degrade-gracefully outcome.
		columns = resolveColumns(nil)
	}

	required := 0
	for _, idx := range columns {
		if idx > required {
			required = idx
		}
	}

	hasComponents := columns["swap"] >= 0 || columns["commission"] >= 0

	var events []models.DataPoint
	for _, row := range rows[headerIdx+1:] {
		if len(row) <= required {
			continue
		}
		timeText := strings.TrimSpace(row[columns["time"]])
		if !ledgerTimePattern.MatchString(timeText) {
			continue
		}
		ts, ok := parseTimestamp(timeText)
		if !ok {
			continue
		}

		point := models.DataPoint{
			Timestamp:     ts,
			Volume:        utils.ParseDecimal(row[columns["volume"]]),
			RawProfit:     utils.ParseDecimal(row[columns["profit"]]),
			Balance:       utils.ParseDecimal(row[columns["balance"]]),
			Kind:          strings.ToLower(strings.TrimSpace(row[columns["type"]])),
			HasComponents: hasComponents,
		}
		if idx := columns["swap"]; idx >= 0 {
			point.Swap = utils.ParseDecimal(row[idx])
		}
		if idx := columns["commission"]; idx >= 0 {
			point.Commission = utils.ParseDecimal(row[idx])
		}
		// Deriving the net from the components keeps the total aligned with
		// the broker's own "Total Net Profit" regardless of which sign
		// convention the source used for swap and commission.
		point.NetProfit = point.RawProfit + point.Swap + point.Commission

		events = append(events, point)
	}
	return events
}

func parseTimestamp(text string) (time.Time, bool) {
	if len(text) >= 19 {
		if ts, err := time.Parse("2006.01.02 15:04:05", text[:19]); err == nil {
			return ts, true
		}
	}
	if len(text) >= 10 {
		if ts, err := time.Parse("2006.01.02", text[:10]); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// detectFixedLot reports the common volume when every trade in the ledger
// used the exact same position size. Resimulation by proportional rescaling
// is only sound under that precondition, so mixed volumes leave it unset.
func detectFixedLot(events []models.DataPoint) (float64, bool) {
	lot := 0.0
	found := false
	for _, e := range events {
		if e.Volume <= 0 {
			continue
		}
		if !found {
			lot = e.Volume
			found = true
			continue
		}
		if e.Volume != lot {
			return 0, false
		}
	}
	return lot, found
}
