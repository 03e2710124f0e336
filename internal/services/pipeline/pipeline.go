// Package pipeline derives the enriched and filtered order views every chart
// reads from: time features on orders, payment totals per order, and the fixed
// join sequence across items, payments, sellers, products, and the category
// translation.
package pipeline

import (
	"shopdash/internal/models"
)

// enrichInputs are the datasets Enrich consumes. The remaining registered
// datasets (customers, geolocation, order_reviews) pass through untouched.
var enrichInputs = []string{
	"orders",
	"order_items",
	"order_payments",
	"sellers",
	"products",
	"category_translation",
}

// Enrich applies the fixed derivation sequence to the raw dataset mapping and
// returns a new mapping with the same keys plus the derived views:
//
//	orders               replaced by orders + year/month + summed payment_value
//	order_items_sellers  items inner-joined with sellers (seller views only)
//	order_detail         wide left-join view carrying every filter dimension
//
// The input mapping and its tables are not modified; calling Enrich twice on
// the same raw input yields identical output.
func Enrich(datasets map[string]*models.Table) (map[string]*models.Table, error) {
	var missing []string
	for _, name := range enrichInputs {
		if datasets[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &models.NotFoundError{Sources: missing}
	}

	orders := datasets["orders"]
	items := datasets["order_items"]
	payments := datasets["order_payments"]
	sellers := datasets["sellers"]
	products := datasets["products"]
	translation := datasets["category_translation"]

	ordersTimed, err := AddTimeFeatures(orders, "order_purchase_timestamp")
	if err != nil {
		return nil, err
	}

	paymentTotals, err := AggregatePayments(payments)
	if err != nil {
		return nil, err
	}

	ordersEnriched, err := MergeOrdersPayments(ordersTimed, paymentTotals)
	if err != nil {
		return nil, err
	}

	itemsSellers, err := MergeOrderItemsSellers(items, sellers)
	if err != nil {
		return nil, err
	}

	// The wide view starts from the time-featured orders without the summed
	// payment column: it joins the raw payment rows instead, so payment_value
	// there is per installment, not per order.
	detail, err := BuildOrderDetail(ordersTimed, items, payments, sellers, products, translation)
	if err != nil {
		return nil, err
	}

	enriched := make(map[string]*models.Table, len(datasets)+2)
	for name, table := range datasets {
		enriched[name] = table
	}
	enriched["orders"] = ordersEnriched
	enriched["order_items_sellers"] = itemsSellers
	enriched["order_detail"] = detail

	return enriched, nil
}
