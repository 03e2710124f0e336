// Package insights computes the summary metrics and chart series the
// dashboard pages render. Every function reads tables produced by the loader
// and pipeline; none of them mutates its input.
package insights

import (
	"sort"
	"strconv"

	"shopdash/internal/models"
	"shopdash/internal/services/pipeline"
)

// OverviewMetrics are the headline KPIs shown on every page.
type OverviewMetrics struct {
	UniqueCustomers    int     `json:"uniqueCustomers"`
	OnTimeDeliveryRate float64 `json:"onTimeDeliveryRate"` // fraction of delivered orders on or before the estimate
	AvgFreightValue    float64 `json:"avgFreightValue"`
	FiveStarReviews    int     `json:"fiveStarReviews"`
}

// NameCount is a generic label/count chart point.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MonthlyOrders counts orders for one calendar month of one year.
type MonthlyOrders struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Orders int `json:"orders"`
}

// YearRevenue sums order payment totals for one year.
type YearRevenue struct {
	Year    int     `json:"year"`
	Revenue float64 `json:"revenue"`
}

// StatusTypeCount counts payments of one type under one order status.
type StatusTypeCount struct {
	Status      string `json:"status"`
	PaymentType string `json:"paymentType"`
	Count       int    `json:"count"`
}

// PricePoint is one item on the price-vs-freight scatter.
type PricePoint struct {
	Price   float64 `json:"price"`
	Freight float64 `json:"freight"`
}

// PhotoCount counts products with a given number of photos.
type PhotoCount struct {
	Photos   int `json:"photos"`
	Products int `json:"products"`
}

// FreqBucket counts customers with a given number of purchases.
type FreqBucket struct {
	Purchases int `json:"purchases"`
	Customers int `json:"customers"`
}

// DeliveryBucket counts orders delivered in a given number of days.
type DeliveryBucket struct {
	Days   int `json:"days"`
	Orders int `json:"orders"`
}

// GeoPoint is one geolocation sample on the map scatter.
type GeoPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	State string  `json:"state"`
}

// Overview computes the headline KPIs from the raw datasets. The on-time rate
// only counts orders where both the delivered and estimated dates parse;
// orders still in flight carry no delivered date and drop out.
func Overview(datasets map[string]*models.Table) (*OverviewMetrics, error) {
	customers, orders := datasets["customers"], datasets["orders"]
	items, reviews := datasets["order_items"], datasets["order_reviews"]
	if customers == nil || orders == nil || items == nil || reviews == nil {
		return nil, &models.NotFoundError{Sources: []string{"customers", "orders", "order_items", "order_reviews"}}
	}

	customerIDs, err := customers.DistinctValues("customer_id")
	if err != nil {
		return nil, err
	}

	deliveredIdx, ok := orders.ColumnIndex("order_delivered_customer_date")
	if !ok {
		return nil, &models.SchemaError{Table: orders.Name(), Columns: []string{"order_delivered_customer_date"}}
	}
	estimatedIdx, ok := orders.ColumnIndex("order_estimated_delivery_date")
	if !ok {
		return nil, &models.SchemaError{Table: orders.Name(), Columns: []string{"order_estimated_delivery_date"}}
	}

	var delivered, onTime int
	for i := 0; i < orders.Len(); i++ {
		row := orders.Row(i)
		d, okD := pipeline.ParseTimestamp(row[deliveredIdx])
		e, okE := pipeline.ParseTimestamp(row[estimatedIdx])
		if !okD || !okE {
			continue
		}
		delivered++
		if !d.After(e) {
			onTime++
		}
	}
	var onTimeRate float64
	if delivered > 0 {
		onTimeRate = float64(onTime) / float64(delivered)
	}

	freightIdx, ok := items.ColumnIndex("freight_value")
	if !ok {
		return nil, &models.SchemaError{Table: items.Name(), Columns: []string{"freight_value"}}
	}
	var freightSum float64
	var freightCount int
	for i := 0; i < items.Len(); i++ {
		if v, ok := pipeline.ParseFloat(items.Row(i)[freightIdx]); ok {
			freightSum += v
			freightCount++
		}
	}
	var avgFreight float64
	if freightCount > 0 {
		avgFreight = freightSum / float64(freightCount)
	}

	scoreIdx, ok := reviews.ColumnIndex("review_score")
	if !ok {
		return nil, &models.SchemaError{Table: reviews.Name(), Columns: []string{"review_score"}}
	}
	fiveStar := 0
	for i := 0; i < reviews.Len(); i++ {
		if reviews.Row(i)[scoreIdx] == "5" {
			fiveStar++
		}
	}

	return &OverviewMetrics{
		UniqueCustomers:    len(customerIDs),
		OnTimeDeliveryRate: onTimeRate,
		AvgFreightValue:    avgFreight,
		FiveStarReviews:    fiveStar,
	}, nil
}

// OrderIDSet returns the distinct order ids of a table. Applied to the
// filtered order_detail view it recovers order-level identity from a view
// where joins have multiplied rows.
func OrderIDSet(t *models.Table) (map[string]bool, error) {
	ids, err := t.DistinctValues("order_id")
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// RestrictTo filters a table to rows whose value in the named column is in
// the keep set. A nil set keeps everything.
func RestrictTo(t *models.Table, column string, keep map[string]bool) (*models.Table, error) {
	if keep == nil {
		return t, nil
	}
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return nil, &models.SchemaError{Table: t.Name(), Columns: []string{column}}
	}
	return t.Filter(t.Name(), func(row []string) bool {
		return keep[row[idx]]
	}), nil
}

// MonthlyOrderCounts groups the enriched order table by derived year and
// month and counts orders. Rows with missing time features drop out. The
// input must be order-level (one row per order), not the fanned-out detail
// view, or counts would be inflated.
func MonthlyOrderCounts(orders *models.Table) ([]MonthlyOrders, error) {
	if err := orders.RequireColumns(models.DimYear, models.DimMonth); err != nil {
		return nil, err
	}
	yearIdx, _ := orders.ColumnIndex(models.DimYear)
	monthIdx, _ := orders.ColumnIndex(models.DimMonth)

	type ym struct{ year, month int }
	counts := make(map[ym]int)
	for i := 0; i < orders.Len(); i++ {
		row := orders.Row(i)
		year, errY := strconv.Atoi(row[yearIdx])
		month, errM := strconv.Atoi(row[monthIdx])
		if errY != nil || errM != nil {
			continue
		}
		counts[ym{year, month}]++
	}

	result := make([]MonthlyOrders, 0, len(counts))
	for k, n := range counts {
		result = append(result, MonthlyOrders{Year: k.year, Month: k.month, Orders: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result, nil
}

// YearlyRevenue sums the aggregated payment_value of the enriched order table
// per derived year.
func YearlyRevenue(orders *models.Table) ([]YearRevenue, error) {
	if err := orders.RequireColumns(models.DimYear, "payment_value"); err != nil {
		return nil, err
	}
	yearIdx, _ := orders.ColumnIndex(models.DimYear)
	valueIdx, _ := orders.ColumnIndex("payment_value")

	totals := make(map[int]float64)
	for i := 0; i < orders.Len(); i++ {
		row := orders.Row(i)
		year, err := strconv.Atoi(row[yearIdx])
		if err != nil {
			continue
		}
		if v, ok := pipeline.ParseFloat(row[valueIdx]); ok {
			totals[year] += v
		}
	}

	result := make([]YearRevenue, 0, len(totals))
	for year, revenue := range totals {
		result = append(result, YearRevenue{Year: year, Revenue: revenue})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Year < result[j].Year })
	return result, nil
}

// PaymentTypeCounts counts payment rows per payment type, restricted to the
// given order ids (nil means all orders). Sorted by count descending.
func PaymentTypeCounts(payments *models.Table, orderIDs map[string]bool) ([]NameCount, error) {
	if err := payments.RequireColumns("order_id", models.DimPaymentType); err != nil {
		return nil, err
	}
	restricted, err := RestrictTo(payments, "order_id", orderIDs)
	if err != nil {
		return nil, err
	}
	return countByColumn(restricted, models.DimPaymentType, byCountDesc)
}

// StateOrderCounts counts item/seller rows per seller state over the lossy
// inner-join view, restricted to the given order ids. Sorted by count
// ascending, matching the state chart's presentation order.
func StateOrderCounts(itemsSellers *models.Table, orderIDs map[string]bool) ([]NameCount, error) {
	if err := itemsSellers.RequireColumns("order_id", models.DimSellerState); err != nil {
		return nil, err
	}
	restricted, err := RestrictTo(itemsSellers, "order_id", orderIDs)
	if err != nil {
		return nil, err
	}
	return countByColumn(restricted, models.DimSellerState, byCountAsc)
}

// PaymentsByStatus counts payments grouped by order status and payment type,
// restricted to the given order ids (nil means all orders). Payments whose
// order_id has no matching order are dropped.
func PaymentsByStatus(orders, payments *models.Table, orderIDs map[string]bool) ([]StatusTypeCount, error) {
	if err := orders.RequireColumns("order_id", models.DimOrderStatus); err != nil {
		return nil, err
	}
	if err := payments.RequireColumns("order_id", models.DimPaymentType); err != nil {
		return nil, err
	}
	payments, err := RestrictTo(payments, "order_id", orderIDs)
	if err != nil {
		return nil, err
	}

	orderIdx, _ := orders.ColumnIndex("order_id")
	statusIdx, _ := orders.ColumnIndex(models.DimOrderStatus)
	statusByOrder := make(map[string]string, orders.Len())
	for i := 0; i < orders.Len(); i++ {
		row := orders.Row(i)
		if row[orderIdx] != models.Missing {
			statusByOrder[row[orderIdx]] = row[statusIdx]
		}
	}

	payOrderIdx, _ := payments.ColumnIndex("order_id")
	typeIdx, _ := payments.ColumnIndex(models.DimPaymentType)

	type key struct{ status, payType string }
	counts := make(map[key]int)
	for i := 0; i < payments.Len(); i++ {
		row := payments.Row(i)
		status, ok := statusByOrder[row[payOrderIdx]]
		if !ok {
			continue
		}
		counts[key{status, row[typeIdx]}]++
	}

	result := make([]StatusTypeCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, StatusTypeCount{Status: k.status, PaymentType: k.payType, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Status != result[j].Status {
			return result[i].Status < result[j].Status
		}
		return result[i].PaymentType < result[j].PaymentType
	})
	return result, nil
}

// PriceFreightPoints extracts price/freight pairs from the item table,
// restricted to the given order ids and capped at limit points (0 = no cap).
func PriceFreightPoints(items *models.Table, orderIDs map[string]bool, limit int) ([]PricePoint, error) {
	if err := items.RequireColumns("order_id", "price", "freight_value"); err != nil {
		return nil, err
	}
	restricted, err := RestrictTo(items, "order_id", orderIDs)
	if err != nil {
		return nil, err
	}

	priceIdx, _ := restricted.ColumnIndex("price")
	freightIdx, _ := restricted.ColumnIndex("freight_value")

	var points []PricePoint
	for i := 0; i < restricted.Len(); i++ {
		row := restricted.Row(i)
		price, okP := pipeline.ParseFloat(row[priceIdx])
		freight, okF := pipeline.ParseFloat(row[freightIdx])
		if !okP || !okF {
			continue
		}
		points = append(points, PricePoint{Price: price, Freight: freight})
		if limit > 0 && len(points) >= limit {
			break
		}
	}
	return points, nil
}

// TopSellers returns the n sellers with the most items sold, descending.
func TopSellers(items *models.Table, n int) ([]NameCount, error) {
	if err := items.RequireColumns("seller_id"); err != nil {
		return nil, err
	}
	counts, err := countByColumn(items, "seller_id", byCountDesc)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts, nil
}

// ProductsByPhotos counts products per photo quantity, sorted by quantity.
func ProductsByPhotos(products *models.Table) ([]PhotoCount, error) {
	if err := products.RequireColumns("product_photos_qty"); err != nil {
		return nil, err
	}
	qtyIdx, _ := products.ColumnIndex("product_photos_qty")

	counts := make(map[int]int)
	for i := 0; i < products.Len(); i++ {
		qty, err := strconv.Atoi(products.Row(i)[qtyIdx])
		if err != nil {
			continue
		}
		counts[qty]++
	}

	result := make([]PhotoCount, 0, len(counts))
	for qty, n := range counts {
		result = append(result, PhotoCount{Photos: qty, Products: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Photos < result[j].Photos })
	return result, nil
}

// PurchaseFrequency buckets customers by how many orders they placed, keyed
// by customer_unique_id: one physical customer gets a fresh customer_id per
// order, so counting customer_id rows per unique id recovers purchase counts.
// Returns the histogram and the number of dormant customers (under two
// purchases).
func PurchaseFrequency(customers *models.Table) ([]FreqBucket, int, error) {
	if err := customers.RequireColumns("customer_id", "customer_unique_id"); err != nil {
		return nil, 0, err
	}
	uniqueIdx, _ := customers.ColumnIndex("customer_unique_id")

	perCustomer := make(map[string]int)
	for i := 0; i < customers.Len(); i++ {
		id := customers.Row(i)[uniqueIdx]
		if id == models.Missing {
			continue
		}
		perCustomer[id]++
	}

	buckets := make(map[int]int)
	dormant := 0
	for _, purchases := range perCustomer {
		buckets[purchases]++
		if purchases < 2 {
			dormant++
		}
	}

	result := make([]FreqBucket, 0, len(buckets))
	for purchases, n := range buckets {
		result = append(result, FreqBucket{Purchases: purchases, Customers: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Purchases < result[j].Purchases })
	return result, dormant, nil
}

// DeliveryTimeBuckets groups orders by whole days between purchase and
// delivery. Orders with an unparsable timestamp on either end drop out, as do
// orders whose delivered date precedes the purchase date.
func DeliveryTimeBuckets(orders *models.Table) ([]DeliveryBucket, error) {
	if err := orders.RequireColumns("order_purchase_timestamp", "order_delivered_customer_date"); err != nil {
		return nil, err
	}
	purchaseIdx, _ := orders.ColumnIndex("order_purchase_timestamp")
	deliveredIdx, _ := orders.ColumnIndex("order_delivered_customer_date")

	counts := make(map[int]int)
	for i := 0; i < orders.Len(); i++ {
		row := orders.Row(i)
		purchased, okP := pipeline.ParseTimestamp(row[purchaseIdx])
		delivered, okD := pipeline.ParseTimestamp(row[deliveredIdx])
		if !okP || !okD || delivered.Before(purchased) {
			continue
		}
		days := int(delivered.Sub(purchased).Hours() / 24)
		counts[days]++
	}

	result := make([]DeliveryBucket, 0, len(counts))
	for days, n := range counts {
		result = append(result, DeliveryBucket{Days: days, Orders: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Days < result[j].Days })
	return result, nil
}

// GeoPoints samples geolocation rows for the map scatter, optionally
// restricted to a set of states, capped at limit points (0 = no cap). Rows
// with unparsable coordinates are skipped.
func GeoPoints(geo *models.Table, states map[string]bool, limit int) ([]GeoPoint, error) {
	if err := geo.RequireColumns("geolocation_lat", "geolocation_lng", "geolocation_state"); err != nil {
		return nil, err
	}
	latIdx, _ := geo.ColumnIndex("geolocation_lat")
	lngIdx, _ := geo.ColumnIndex("geolocation_lng")
	stateIdx, _ := geo.ColumnIndex("geolocation_state")

	var points []GeoPoint
	for i := 0; i < geo.Len(); i++ {
		row := geo.Row(i)
		if states != nil && !states[row[stateIdx]] {
			continue
		}
		lat, okLat := pipeline.ParseFloat(row[latIdx])
		lng, okLng := pipeline.ParseFloat(row[lngIdx])
		if !okLat || !okLng {
			continue
		}
		points = append(points, GeoPoint{Lat: lat, Lng: lng, State: row[stateIdx]})
		if limit > 0 && len(points) >= limit {
			break
		}
	}
	return points, nil
}

type countOrder int

const (
	byCountDesc countOrder = iota
	byCountAsc
)

// countByColumn counts rows per distinct value of a column, skipping missing
// values, with a stable name tiebreak.
func countByColumn(t *models.Table, column string, order countOrder) ([]NameCount, error) {
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return nil, &models.SchemaError{Table: t.Name(), Columns: []string{column}}
	}

	counts := make(map[string]int)
	for i := 0; i < t.Len(); i++ {
		v := t.Row(i)[idx]
		if v == models.Missing {
			continue
		}
		counts[v]++
	}

	result := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, NameCount{Name: name, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			if order == byCountAsc {
				return result[i].Count < result[j].Count
			}
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}
