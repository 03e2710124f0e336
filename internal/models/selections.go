package models

// Filter dimension columns on the enriched order view.
const (
	DimYear        = "year"
	DimMonth       = "month"
	DimCategory    = "product_category_name_english"
	DimSellerState = "seller_state"
	DimPaymentType = "payment_type"
	DimOrderStatus = "order_status"
)

// FilterSelections holds the selected values for each filter dimension.
// Handlers construct one per request and thread it through the pipeline
// explicitly; there is no ambient selection state.
//
// Semantics are strict conjunction: a row survives only if its value in every
// dimension is a member of that dimension's selected set. An empty set matches
// nothing, so a caller presenting "select all" must populate the full value
// domain rather than leave the set empty.
type FilterSelections struct {
	Years         []string
	Months        []string
	Categories    []string
	SellerStates  []string
	PaymentTypes  []string
	OrderStatuses []string
}

// Dimension pairs a filterable column with its selected values.
type Dimension struct {
	Column string
	Values []string
}

// Dimensions returns every selection keyed by the column it applies to, in a
// fixed order.
func (s FilterSelections) Dimensions() []Dimension {
	return []Dimension{
		{Column: DimYear, Values: s.Years},
		{Column: DimMonth, Values: s.Months},
		{Column: DimCategory, Values: s.Categories},
		{Column: DimSellerState, Values: s.SellerStates},
		{Column: DimPaymentType, Values: s.PaymentTypes},
		{Column: DimOrderStatus, Values: s.OrderStatuses},
	}
}
