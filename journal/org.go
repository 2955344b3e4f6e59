package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatLegOrg renders a record as an Org-mode block. Structured facts go in
// a PROPERTIES drawer for easy search.
func FormatLegOrg(l Leg) string {
	heading := fmt.Sprintf("** %s %s (%s)", strings.ToUpper(string(l.Action)), l.Symbol, shortID(l.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", l.ID))
	b.WriteString(fmt.Sprintf(":ORDER_ID: %s\n", l.OrderID))
	b.WriteString(fmt.Sprintf(":AGG_TRADE_ID: %s\n", l.AggTradeID))
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", l.Status))
	b.WriteString(fmt.Sprintf(":PRICE: %.5f\n", l.Price))
	b.WriteString(fmt.Sprintf(":AMOUNT: %.6f\n", l.Amount))
	b.WriteString(fmt.Sprintf(":COST: %.2f\n", l.Cost))
	if l.Action == ActionClose {
		b.WriteString(fmt.Sprintf(":CLOSED_LEGS: %s\n", strings.Join(l.ClosedLegs, " ")))
		b.WriteString(fmt.Sprintf(":PL: %.2f\n", l.PL))
		b.WriteString(fmt.Sprintf(":PL_PERCENT: %.2f\n", l.PLPercent))
	} else {
		b.WriteString(fmt.Sprintf(":STOP_LOSS: %.5f\n", l.StopLossPrice))
		b.WriteString(fmt.Sprintf(":ATR: %.5f\n", l.ATR))
	}
	b.WriteString(fmt.Sprintf(":FREE_BALANCE: %.2f\n", l.FreeBalance))
	b.WriteString(fmt.Sprintf(":CREATED: %s\n", l.CreatedAt.UTC().Format(time.RFC3339)))
	b.WriteString(":END:\n")

	return b.String()
}

// FormatLegsOrg renders records under a single heading.
func FormatLegsOrg(legs []Leg) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("* Records (%d)\n", len(legs)))
	for _, l := range legs {
		b.WriteString(FormatLegOrg(l))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
