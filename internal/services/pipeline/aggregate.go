package pipeline

import (
	"strconv"
	"strings"

	"shopdash/internal/models"
)

// ParseFloat parses a numeric cell, returning false for missing or malformed
// values. Per-value parse failures are never fatal; the value simply drops out
// of whatever aggregate is being computed.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == models.Missing {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AggregatePayments groups the raw payment table by order_id and sums
// payment_value, producing exactly one row per order. Orders with no payment
// rows are simply absent; MergeOrdersPayments decides how that absence shows
// up. This must run before any join that treats one row as one order, or an
// order paid in installments would fan out into duplicate rows.
func AggregatePayments(payments *models.Table) (*models.Table, error) {
	orderIdx, ok := payments.ColumnIndex("order_id")
	if !ok {
		return nil, &models.SchemaError{Table: payments.Name(), Columns: []string{"order_id"}}
	}
	valueIdx, ok := payments.ColumnIndex("payment_value")
	if !ok {
		return nil, &models.SchemaError{Table: payments.Name(), Columns: []string{"payment_value"}}
	}

	totals := make(map[string]float64)
	var order []string // first-seen order of order_ids, for stable output

	for i := 0; i < payments.Len(); i++ {
		row := payments.Row(i)
		orderID := row[orderIdx]
		if orderID == models.Missing {
			continue
		}
		if _, seen := totals[orderID]; !seen {
			order = append(order, orderID)
			totals[orderID] = 0
		}
		if v, ok := ParseFloat(row[valueIdx]); ok {
			totals[orderID] += v
		}
	}

	rows := make([][]string, len(order))
	for i, orderID := range order {
		rows[i] = []string{orderID, strconv.FormatFloat(totals[orderID], 'f', -1, 64)}
	}

	return models.NewTable("order_payments_total", []string{"order_id", "payment_value"}, rows), nil
}
