// Package report renders the candle, ATR and trade-plan tables, plus the
// machine-readable JSON form of each command's final result.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gregtusar/gerchik/pkg/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// Candles prints one row per closed daily candle.
func Candles(w io.Writer, rows []models.DailyRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tHIGH\tLOW\tCLOSE\tRANGE")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.Date, num(row.High), num(row.Low), num(row.Close), num(row.Range))
	}
	return tw.Flush()
}

// ATRSummary prints the trimmed-mean ATR breakdown.
func ATRSummary(w io.Writer, result *models.ATRResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ATR GERCHIK\tATR %\tLAST CLOSE\tTRIMMED RANGES\tDROPPED MIN\tDROPPED MAX")
	fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\n",
		num(result.ATR), result.ATRPercent, num(result.LastClose),
		joinNums(result.TrimmedRanges), num(result.DroppedMin), num(result.DroppedMax))
	return tw.Flush()
}

// Plan prints the derived entry/stop plan and its targets.
func Plan(w io.Writer, p *models.TradePlan) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tDIRECTION\tLEVEL\tENTRY\tSTOP\tRISK\tREFERENCE\tSTATUS")
	reference := num(p.ReferencePrice)
	if p.Degraded {
		reference += " (last close)"
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		p.Symbol, p.Direction, num(p.LevelPrice), num(p.EntryPrice), num(p.StopPrice),
		num(p.RiskDistance), reference, p.TriggerStatus)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(p.Targets) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "R MULTIPLE\tTARGET")
	for _, target := range p.Targets {
		fmt.Fprintf(tw, "%s\t%s\n", num(target.RRMultiple), num(target.TargetPrice))
	}
	return tw.Flush()
}

// OrderAck prints the exchange's acknowledgment of a placed order.
func OrderAck(w io.Writer, ack *models.OrderAck) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ORDER ID\tSYMBOL\tSIDE\tPOSITION\tTYPE\tQTY\tSTOP PRICE\tSTATUS")
	fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		ack.OrderID, ack.Symbol, ack.Side, ack.PositionSide, ack.Type,
		ack.OrigQty, ack.StopPrice, ack.Status)
	return tw.Flush()
}

// JSON writes the final result as indented JSON, the downstream-inspection
// form of each command's outcome.
func JSON(w io.Writer, result interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}

func joinNums(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = num(v)
	}
	return strings.Join(parts, ", ")
}
