package main

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"shopdash/internal/config"
	"shopdash/internal/testutil"
)

// setupTestServer initializes dependencies over a fixture dataset directory
// and returns a test server. No templates are loaded; pages fall back to the
// minimal placeholder markup.
func setupTestServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	dataDir := testutil.WriteDatasetFixtures(t)
	testCfg := &config.Config{
		ListenAddr:         ":0",
		Debug:              true,
		DataDirectory:      dataDir,
		TemplatesDirectory: t.TempDir(),
		StaticDirectory:    t.TempDir(),
		GeoRowCap:          100000,
		ScatterPointCap:    20000,
	}

	if err := SetupDependencies(testCfg); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}

	router := SetupRouter()
	return testutil.NewTestServer(t, router)
}

// setupTemplatedServer is setupTestServer with the real page templates, for
// tests asserting on rendered markup.
func setupTemplatedServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	root := testutil.ProjectRoot()
	dataDir := testutil.WriteDatasetFixtures(t)
	testCfg := &config.Config{
		ListenAddr:         ":0",
		Debug:              false,
		DataDirectory:      dataDir,
		TemplatesDirectory: filepath.Join(root, "web", "templates"),
		StaticDirectory:    filepath.Join(root, "web", "static"),
		GeoRowCap:          100000,
		ScatterPointCap:    20000,
	}

	if err := SetupDependencies(testCfg); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}

	router := SetupRouter()
	return testutil.NewTestServer(t, router)
}

// TestHealthEndpoint tests the /api/health endpoint
func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"ok"`)
}

// TestRootRedirect tests that / redirects to /overview
func TestRootRedirect(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.BaseURL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Expected status %d, got %d", http.StatusTemporaryRedirect, resp.StatusCode)
	}
	if location := resp.Header.Get("Location"); location != "/overview" {
		t.Errorf("Expected redirect to /overview, got %q", location)
	}
}

func TestOverviewPage(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML()
}

func TestProductsPage(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/products")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML()
}

// TestFilterControlsOnBothPages renders the real templates and checks that
// both pages carry the full filter sidebar.
func TestFilterControlsOnBothPages(t *testing.T) {
	ts := setupTemplatedServer(t)
	defer ts.Close()

	for _, page := range []string{"/overview", "/products"} {
		resp := ts.GET(page)
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContentTypeHTML().
			ContainsAll(`id="filter-form"`,
				`name="years"`, `name="months"`, `name="categories"`,
				`name="states"`, `name="payment_types"`, `name="statuses"`)
	}
}

func TestMetricsPartial(t *testing.T) {
	ts := setupTemplatedServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/partials/metrics")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll("Unique Customers", "On-Time Delivery")
}

func TestMonthlyChartData(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/charts/data/monthly")
	body := testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"year":2017`, `"year":2018`).
		Body()

	var counts []struct {
		Year   int `json:"year"`
		Month  int `json:"month"`
		Orders int `json:"orders"`
	}
	if err := json.Unmarshal([]byte(body), &counts); err != nil {
		t.Fatalf("Failed to decode chart data: %v", err)
	}
	if len(counts) != 3 {
		t.Errorf("Expected 3 month buckets, got %d", len(counts))
	}
}

func TestMonthlyChartDataFiltered(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/charts/data/monthly?years=2018")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"year":2018`).
		NotContains(`"year":2017`)
}

func TestMonthlyChartDataEmptySelection(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	// A present but empty parameter is the strict empty set
	resp := ts.GET("/overview/charts/data/monthly?statuses=")
	body := testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Body()

	var counts []interface{}
	if err := json.Unmarshal([]byte(body), &counts); err != nil {
		t.Fatalf("Failed to decode chart data: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("Expected no buckets for empty selection, got %d", len(counts))
	}
}

func TestRevenueChartData(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/charts/data/revenue")
	body := testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Body()

	var revenue []struct {
		Year    int     `json:"year"`
		Revenue float64 `json:"revenue"`
	}
	if err := json.Unmarshal([]byte(body), &revenue); err != nil {
		t.Fatalf("Failed to decode chart data: %v", err)
	}
	if len(revenue) != 2 {
		t.Fatalf("Expected 2 revenue years, got %d", len(revenue))
	}
	// o2 in 2017; o1 installments summed plus o3 in 2018
	if revenue[0].Year != 2017 || revenue[0].Revenue != 60 {
		t.Errorf("Unexpected 2017 revenue: %+v", revenue[0])
	}
	if revenue[1].Year != 2018 || revenue[1].Revenue != 120 {
		t.Errorf("Unexpected 2018 revenue: %+v", revenue[1])
	}
}

func TestStatusFilterDropsOrders(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/charts/data/revenue?statuses=delivered")
	body := testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Body()

	var revenue []struct {
		Year    int     `json:"year"`
		Revenue float64 `json:"revenue"`
	}
	if err := json.Unmarshal([]byte(body), &revenue); err != nil {
		t.Fatalf("Failed to decode chart data: %v", err)
	}
	// The shipped order drops, leaving only o1 in 2018
	if len(revenue) != 2 {
		t.Fatalf("Expected 2 revenue years, got %d", len(revenue))
	}
	if revenue[1].Year != 2018 || revenue[1].Revenue != 75 {
		t.Errorf("Expected 2018 revenue 75 for delivered orders, got %+v", revenue[1])
	}
}

func TestChartDataEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	endpoints := []string{
		"/overview/charts/data/payments",
		"/overview/charts/data/states",
		"/overview/charts/data/status-payments",
		"/overview/charts/data/price-freight",
		"/overview/charts/data/top-sellers",
		"/overview/charts/data/geo",
		"/products/charts/data/photos",
		"/products/charts/data/frequency",
		"/products/charts/data/delivery",
		"/products/charts/data/state-products",
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint, func(t *testing.T) {
			resp := ts.GET(endpoint)
			body := testutil.AssertResponse(t, resp).
				StatusOK().
				ContentTypeJSON().
				Body()

			var decoded interface{}
			if err := json.Unmarshal([]byte(body), &decoded); err != nil {
				t.Errorf("Expected valid JSON from %s: %v", endpoint, err)
			}
		})
	}
}

// TestStatusPaymentsChartFiltered checks the status/payment-type chart honors
// the request's filter selections.
func TestStatusPaymentsChartFiltered(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/charts/data/status-payments")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"shipped"`)

	resp = ts.GET("/overview/charts/data/status-payments?statuses=delivered")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"delivered"`).
		NotContains(`"status":"shipped"`)
}

// TestDeliveryChartData checks the delivery-time histogram on the fixture
// orders: two delivered orders, five and seventeen days out.
func TestDeliveryChartData(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/products/charts/data/delivery")
	body := testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Body()

	var buckets []struct {
		Days   int `json:"days"`
		Orders int `json:"orders"`
	}
	if err := json.Unmarshal([]byte(body), &buckets); err != nil {
		t.Fatalf("Failed to decode chart data: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("Expected 2 delivery buckets, got %d", len(buckets))
	}
	if buckets[0].Days != 5 || buckets[0].Orders != 1 {
		t.Errorf("Unexpected first bucket: %+v", buckets[0])
	}
	if buckets[1].Days != 17 || buckets[1].Orders != 1 {
		t.Errorf("Unexpected second bucket: %+v", buckets[1])
	}
}

func TestUnknownChartType(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/charts/data/bogus")
	testutil.AssertResponse(t, resp).Status(http.StatusBadRequest)

	resp = ts.GET("/products/charts/data/bogus")
	testutil.AssertResponse(t, resp).Status(http.StatusBadRequest)
}

func TestExport(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/export")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentType("text/csv").
		Contains("order_id")

	if cd := resp.Header.Get("Content-Disposition"); cd == "" {
		t.Error("Expected Content-Disposition header on export")
	}
}

func TestExportFiltered(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp := ts.GET("/overview/export?years=2017")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("o2").
		NotContains("o1,")
}
