package pipeline

import (
	"errors"
	"testing"

	"shopdash/internal/models"
)

// rawDatasets builds the minimal raw dataset mapping Enrich consumes: one
// order paid in two installments, one item, one seller, one product.
func rawDatasets() map[string]*models.Table {
	return map[string]*models.Table{
		"orders": models.NewTable("orders",
			[]string{"order_id", "customer_id", "order_status", "order_purchase_timestamp"},
			[][]string{
				{"o1", "c1", "delivered", "2018-01-05 10:00:00"},
			}),
		"order_items": models.NewTable("order_items",
			[]string{"order_id", "product_id", "seller_id", "price", "freight_value"},
			[][]string{
				{"o1", "p1", "s1", "50.00", "10.00"},
			}),
		"order_payments": models.NewTable("order_payments",
			[]string{"order_id", "payment_sequential", "payment_type", "payment_value"},
			[][]string{
				{"o1", "1", "credit_card", "50"},
				{"o1", "2", "voucher", "25"},
			}),
		"sellers": models.NewTable("sellers",
			[]string{"seller_id", "seller_state"},
			[][]string{{"s1", "SP"}}),
		"products": models.NewTable("products",
			[]string{"product_id", "product_category_name"},
			[][]string{{"p1", "beleza_saude"}}),
		"category_translation": models.NewTable("category_translation",
			[]string{"product_category_name", "product_category_name_english"},
			[][]string{{"beleza_saude", "health_beauty"}}),
	}
}

func TestEnrich(t *testing.T) {
	enriched, err := Enrich(rawDatasets())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	orders := enriched["orders"]
	if orders.Len() != 1 {
		t.Fatalf("Expected 1 enriched order, got %d", orders.Len())
	}

	// Installments summed before the join, so the order did not fan out
	if got := orders.Value(0, "payment_value"); got != "75" {
		t.Errorf("Expected payment total 75, got %q", got)
	}
	if got := orders.Value(0, models.DimYear); got != "2018" {
		t.Errorf("Expected derived year 2018, got %q", got)
	}
	if got := orders.Value(0, models.DimMonth); got != "1" {
		t.Errorf("Expected derived month 1, got %q", got)
	}

	// The wide view joins raw payments, one row per installment
	detail := enriched["order_detail"]
	if detail.Len() != 2 {
		t.Fatalf("Expected 2 detail rows (one per installment), got %d", detail.Len())
	}
	if got := detail.Value(0, models.DimCategory); got != "health_beauty" {
		t.Errorf("Expected translated category on detail view, got %q", got)
	}
	if got := detail.Value(0, models.DimSellerState); got != "SP" {
		t.Errorf("Expected seller state on detail view, got %q", got)
	}

	if enriched["order_items_sellers"].Len() != 1 {
		t.Errorf("Expected 1 item/seller row, got %d", enriched["order_items_sellers"].Len())
	}
}

func TestEnrichThenFilter(t *testing.T) {
	enriched, err := Enrich(rawDatasets())
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	domains, err := SelectionDomains(enriched)
	if err != nil {
		t.Fatalf("SelectionDomains failed: %v", err)
	}

	// Full domains keep the order
	filtered, err := FilterOrders(enriched["order_detail"], domains)
	if err != nil {
		t.Fatalf("FilterOrders failed: %v", err)
	}
	if filtered.Len() != 2 {
		t.Errorf("Expected both installment rows under full domains, got %d", filtered.Len())
	}

	// Narrowing to delivered 2018 keeps it too
	sel := domains
	sel.Years = []string{"2018"}
	sel.OrderStatuses = []string{"delivered"}
	filtered, err = FilterOrders(enriched["order_detail"], sel)
	if err != nil {
		t.Fatalf("FilterOrders failed: %v", err)
	}
	if filtered.Len() != 2 {
		t.Errorf("Expected delivered 2018 rows kept, got %d", filtered.Len())
	}

	// A status the data never has matches nothing
	sel.OrderStatuses = []string{"shipped"}
	filtered, err = FilterOrders(enriched["order_detail"], sel)
	if err != nil {
		t.Fatalf("FilterOrders failed: %v", err)
	}
	if filtered.Len() != 0 {
		t.Errorf("Expected no shipped rows, got %d", filtered.Len())
	}
}

func TestEnrichDoesNotModifyInput(t *testing.T) {
	raw := rawDatasets()
	ordersBefore := raw["orders"]

	if _, err := Enrich(raw); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if raw["orders"] != ordersBefore {
		t.Error("Expected input mapping unchanged")
	}
	if ordersBefore.HasColumn(models.DimYear) {
		t.Error("Expected raw orders table unchanged")
	}

	// Deterministic: a second run over the same raw input is identical
	first, err := Enrich(raw)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	second, err := Enrich(raw)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if first["orders"].Len() != second["orders"].Len() ||
		first["order_detail"].Len() != second["order_detail"].Len() {
		t.Error("Expected repeated enrichment to be identical")
	}
}

func TestEnrichMissingInputs(t *testing.T) {
	raw := rawDatasets()
	delete(raw, "order_payments")
	delete(raw, "sellers")

	_, err := Enrich(raw)
	var nfErr *models.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if len(nfErr.Sources) != 2 {
		t.Errorf("Expected both missing inputs collected, got %v", nfErr.Sources)
	}
}
