package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"id", "order_id", "agg_trade_id", "symbol", "action", "price", "amount", "cost",
	"stop_loss_price", "atr", "free_balance", "total_balance", "pl", "pl_percent",
	"position_status", "closed_positions", "created_at",
}

// WriteCSV exports records, one row each, with a header line.
func WriteCSV(w io.Writer, legs []Leg) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range legs {
		if err := cw.Write([]string{
			l.ID,
			l.OrderID,
			l.AggTradeID,
			l.Symbol,
			string(l.Action),
			f(l.Price),
			f(l.Amount),
			f(l.Cost),
			f(l.StopLossPrice),
			f(l.ATR),
			f(l.FreeBalance),
			f(l.TotalBalance),
			f(l.PL),
			f(l.PLPercent),
			string(l.Status),
			strings.Join(l.ClosedLegs, " "),
			l.CreatedAt.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
