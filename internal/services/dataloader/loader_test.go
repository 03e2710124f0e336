package dataloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shopdash/internal/models"
	"shopdash/internal/services/storage"
	"shopdash/internal/testutil"
)

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()

	dir := testutil.WriteDatasetFixtures(t)
	store, err := storage.New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return New(dir, store), dir
}

func TestLoadAll(t *testing.T) {
	loader, _ := newTestLoader(t)

	datasets, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(datasets) != len(Specs) {
		t.Fatalf("Expected %d datasets, got %d", len(Specs), len(datasets))
	}

	orders := datasets["orders"]
	if orders == nil {
		t.Fatal("Expected orders dataset")
	}
	if orders.Len() != 3 {
		t.Errorf("Expected 3 order rows, got %d", orders.Len())
	}
	if got := orders.Value(0, "order_status"); got != "delivered" {
		t.Errorf("Expected first order delivered, got %q", got)
	}
}

func TestLoadCollectsAllMissingSources(t *testing.T) {
	loader, dir := newTestLoader(t)
	testutil.RemoveFixture(t, dir, "olist_orders_dataset.csv")
	testutil.RemoveFixture(t, dir, "olist_sellers_dataset.csv")

	_, err := loader.LoadAll()
	var nfErr *models.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}

	expected := []string{"orders", "sellers"}
	if len(nfErr.Sources) != 2 || nfErr.Sources[0] != expected[0] || nfErr.Sources[1] != expected[1] {
		t.Errorf("Expected both missing datasets collected as %v, got %v", expected, nfErr.Sources)
	}
}

func TestLoadUnknownDataset(t *testing.T) {
	loader, _ := newTestLoader(t)

	if _, err := loader.Load([]string{"orders", "no_such_dataset"}); err == nil {
		t.Error("Expected error for unknown dataset name")
	}
}

func TestLoadSchemaError(t *testing.T) {
	loader, dir := newTestLoader(t)

	// Drop required columns from the sellers source
	broken := "seller_id,seller_city\ns1,sao paulo\n"
	path := filepath.Join(dir, "olist_sellers_dataset.csv")
	if err := os.WriteFile(path, []byte(broken), 0644); err != nil {
		t.Fatalf("Failed to rewrite fixture: %v", err)
	}

	_, err := loader.Load([]string{"sellers"})
	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %v", err)
	}
	if schemaErr.Table != "sellers" {
		t.Errorf("Expected error to name dataset sellers, got %q", schemaErr.Table)
	}
	if len(schemaErr.Columns) != 2 {
		t.Errorf("Expected both missing columns listed, got %v", schemaErr.Columns)
	}
}

func TestLoadNeverPartial(t *testing.T) {
	loader, dir := newTestLoader(t)
	testutil.RemoveFixture(t, dir, "olist_products_dataset.csv")

	datasets, err := loader.Load([]string{"orders", "products"})
	if err == nil {
		t.Fatal("Expected error for missing source")
	}
	if datasets != nil {
		t.Error("Expected no partial result on failure")
	}
}

func TestLoadCaching(t *testing.T) {
	loader, dir := newTestLoader(t)

	first, err := loader.Load([]string{"orders"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := loader.Load([]string{"orders"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first["orders"] != second["orders"] {
		t.Error("Expected unchanged source to be served from cache")
	}

	// Rewriting the file invalidates the entry
	path := filepath.Join(dir, "olist_orders_dataset.csv")
	content := "order_id,customer_id,order_status,order_purchase_timestamp,order_delivered_customer_date,order_estimated_delivery_date\n" +
		"o9,c9,delivered,2018-05-01 10:00:00,2018-05-05 10:00:00,2018-05-10 00:00:00\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to rewrite fixture: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Failed to bump mtime: %v", err)
	}

	third, err := loader.Load([]string{"orders"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if third["orders"] == second["orders"] {
		t.Error("Expected changed source to be reparsed")
	}
	if third["orders"].Len() != 1 {
		t.Errorf("Expected 1 row after rewrite, got %d", third["orders"].Len())
	}
}

func TestRowCap(t *testing.T) {
	loader, _ := newTestLoader(t)
	loader.SetRowCap("geolocation", 2)

	datasets, err := loader.Load([]string{"geolocation"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := datasets["geolocation"].Len(); got != 2 {
		t.Errorf("Expected row cap of 2, got %d rows", got)
	}
}

func TestDatasetNamesSorted(t *testing.T) {
	names := DatasetNames()
	if len(names) != len(Specs) {
		t.Fatalf("Expected %d names, got %d", len(Specs), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Expected sorted names, got %v", names)
			break
		}
	}
}
