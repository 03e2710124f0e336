package pipeline

import (
	"shopdash/internal/models"
)

// FilterOrders returns the subset of rows whose value in every filter
// dimension is a member of that dimension's selected set.
//
// Semantics are strict conjunction: an empty selected set matches nothing, and
// rows whose cell is Missing in any dimension are excluded. Callers offering a
// "select all" control populate the full value domain explicitly (see
// SelectionDomains) instead of relying on an empty set meaning "everything".
//
// The table must physically carry every dimension column; applying the filter
// to a table that was never joined with, say, seller_state is a caller error
// and fails with a SchemaError naming every absent dimension rather than
// silently returning wrong rows.
func FilterOrders(t *models.Table, sel models.FilterSelections) (*models.Table, error) {
	dims := sel.Dimensions()

	cols := make([]string, len(dims))
	for i, d := range dims {
		cols[i] = d.Column
	}
	if err := t.RequireColumns(cols...); err != nil {
		return nil, err
	}

	type dimSet struct {
		idx    int
		values map[string]bool
	}
	sets := make([]dimSet, len(dims))
	for i, d := range dims {
		idx, _ := t.ColumnIndex(d.Column)
		values := make(map[string]bool, len(d.Values))
		for _, v := range d.Values {
			values[v] = true
		}
		sets[i] = dimSet{idx: idx, values: values}
	}

	return t.Filter(t.Name(), func(row []string) bool {
		for _, s := range sets {
			v := row[s.idx]
			if v == models.Missing || !s.values[v] {
				return false
			}
		}
		return true
	}), nil
}

// SelectionDomains returns the full value domain of every filter dimension,
// drawn from the dataset each dimension naturally lives on. The presentation
// layer uses this both to render the filter controls and to populate a
// dimension's selection when the user has not narrowed it.
func SelectionDomains(datasets map[string]*models.Table) (models.FilterSelections, error) {
	var domains models.FilterSelections

	sources := []struct {
		dataset string
		column  string
		dest    *[]string
	}{
		{"orders", models.DimYear, &domains.Years},
		{"orders", models.DimMonth, &domains.Months},
		{"category_translation", models.DimCategory, &domains.Categories},
		{"sellers", models.DimSellerState, &domains.SellerStates},
		{"order_payments", models.DimPaymentType, &domains.PaymentTypes},
		{"orders", models.DimOrderStatus, &domains.OrderStatuses},
	}

	for _, src := range sources {
		table, ok := datasets[src.dataset]
		if !ok {
			return models.FilterSelections{}, &models.NotFoundError{Sources: []string{src.dataset}}
		}
		values, err := table.DistinctValues(src.column)
		if err != nil {
			return models.FilterSelections{}, err
		}
		*src.dest = values
	}

	return domains, nil
}
