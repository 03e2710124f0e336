package pipeline

import (
	"shopdash/internal/models"
)

// joinMode selects the multiplicity/loss semantics of a join. The mode is part
// of each exported join function's contract, not a caller option: call sites
// depend on whether unmatched rows are dropped or null-padded, and conflating
// the two silently changes downstream counts.
type joinMode int

const (
	innerJoin joinMode = iota // rows without a match in both inputs are dropped
	leftJoin                  // every left row kept, unmatched right fields Missing
)

// join merges two tables on a shared key column. The result carries every left
// column followed by the right table's non-key columns; a right column whose
// name collides with a left column is suffixed with "_" and the right table's
// name. Rows whose key cell is Missing never match. A right key with multiple
// rows multiplies matching left rows (fan-out), which is why payments are
// aggregated before any join that treats one row as one order.
func join(name string, left, right *models.Table, key string, mode joinMode) (*models.Table, error) {
	leftKey, ok := left.ColumnIndex(key)
	if !ok {
		return nil, &models.SchemaError{Table: left.Name(), Columns: []string{key}}
	}
	rightKey, ok := right.ColumnIndex(key)
	if !ok {
		return nil, &models.SchemaError{Table: right.Name(), Columns: []string{key}}
	}

	// Output schema: left columns, then right columns minus the key
	leftCols := left.Columns()
	haveCol := make(map[string]bool, len(leftCols))
	for _, col := range leftCols {
		haveCol[col] = true
	}

	cols := leftCols
	var rightIdx []int // right column positions carried into the output
	for i, col := range right.Columns() {
		if i == rightKey {
			continue
		}
		if haveCol[col] {
			col = col + "_" + right.Name()
		}
		haveCol[col] = true
		cols = append(cols, col)
		rightIdx = append(rightIdx, i)
	}

	// Index right rows by key value
	byKey := make(map[string][]int)
	for i := 0; i < right.Len(); i++ {
		k := right.Row(i)[rightKey]
		if k == models.Missing {
			continue
		}
		byKey[k] = append(byKey[k], i)
	}

	var rows [][]string
	for i := 0; i < left.Len(); i++ {
		leftRow := left.Row(i)
		matches := byKey[leftRow[leftKey]]
		if leftRow[leftKey] == models.Missing {
			matches = nil
		}

		if len(matches) == 0 {
			if mode == innerJoin {
				continue
			}
			row := make([]string, len(cols))
			copy(row, leftRow)
			// trailing cells stay Missing
			rows = append(rows, row)
			continue
		}

		for _, m := range matches {
			rightRow := right.Row(m)
			row := make([]string, 0, len(cols))
			row = append(row, leftRow...)
			for _, idx := range rightIdx {
				row = append(row, rightRow[idx])
			}
			rows = append(rows, row)
		}
	}

	return models.NewTable(name, cols, rows), nil
}

// MergeOrdersPayments left-joins orders with the aggregated payment table on
// order_id. Every order is preserved; an order with no recorded payment gets a
// Missing payment_value. The payment table must already be one row per order
// (see AggregatePayments) or order rows would be duplicated.
func MergeOrdersPayments(orders, payments *models.Table) (*models.Table, error) {
	return join("orders", orders, payments, "order_id", leftJoin)
}

// MergeOrderItemsSellers inner-joins order items with sellers on seller_id.
// Items whose seller_id cannot be resolved are dropped, which makes this view
// suitable for seller-geography displays but not as a basis for order-count
// totals.
func MergeOrderItemsSellers(items, sellers *models.Table) (*models.Table, error) {
	return join("order_items_sellers", items, sellers, "seller_id", innerJoin)
}

// BuildOrderDetail builds the wide denormalized order view: orders left-joined
// with items, raw payments, sellers, products, and the category translation.
// Every stage is a left join, so no order is lost; orders with several items
// or payment installments appear once per item/payment combination. The view
// exists so that every filter dimension is physically present on one table.
func BuildOrderDetail(orders, items, payments, sellers, products, translation *models.Table) (*models.Table, error) {
	detail, err := join("order_detail", orders, items, "order_id", leftJoin)
	if err != nil {
		return nil, err
	}
	detail, err = join("order_detail", detail, payments, "order_id", leftJoin)
	if err != nil {
		return nil, err
	}
	detail, err = join("order_detail", detail, sellers, "seller_id", leftJoin)
	if err != nil {
		return nil, err
	}
	detail, err = join("order_detail", detail, products, "product_id", leftJoin)
	if err != nil {
		return nil, err
	}
	return join("order_detail", detail, translation, "product_category_name", leftJoin)
}
