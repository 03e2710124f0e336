// Package products serves the product analytics page: photo-count
// distribution, customer purchase frequency, delivery-time distribution, and
// products sold by state.
package products

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shopdash/internal/config"
	httpx "shopdash/internal/http"
	"shopdash/internal/models"
	"shopdash/internal/services/dataloader"
	"shopdash/internal/services/insights"
	"shopdash/internal/services/pipeline"
	"shopdash/internal/templates"
)

var (
	cfg      *config.Config
	loader   *dataloader.Loader
	renderer *templates.Renderer
)

// Initialize sets up the products package with required dependencies
func Initialize(c *config.Config, l *dataloader.Loader, r *templates.Renderer) {
	cfg = c
	loader = l
	renderer = r
}

// RegisterRoutes registers all product analytics routes
func RegisterRoutes(r chi.Router) {
	r.Get("/products", handleProducts)
	r.Get("/products/charts/data/{chartType}", handleChartData)
}

// view is the per-request pipeline state every products endpoint starts from.
type view struct {
	datasets   map[string]*models.Table // enriched mapping
	domains    models.FilterSelections
	selections models.FilterSelections
	orderIDs   map[string]bool // distinct order ids surviving the filter
}

// buildView runs the shared load/enrich/filter sequence for this page.
func buildView(r *http.Request) (*view, error) {
	raw, err := loader.LoadAll()
	if err != nil {
		return nil, err
	}

	enriched, err := pipeline.Enrich(raw)
	if err != nil {
		return nil, err
	}

	domains, err := pipeline.SelectionDomains(enriched)
	if err != nil {
		return nil, err
	}

	selections := httpx.ParseSelections(r.URL.Query(), domains)

	filtered, err := pipeline.FilterOrders(enriched["order_detail"], selections)
	if err != nil {
		return nil, err
	}

	orderIDs, err := insights.OrderIDSet(filtered)
	if err != nil {
		return nil, err
	}

	return &view{
		datasets:   enriched,
		domains:    domains,
		selections: selections,
		orderIDs:   orderIDs,
	}, nil
}

func handleProducts(w http.ResponseWriter, r *http.Request) {
	v, err := buildView(r)
	if err != nil {
		log.Printf("Error building product analytics: %v", err)
		httpx.ErrorResponse(w, "Error loading data: "+err.Error(), http.StatusInternalServerError)
		return
	}

	metrics, err := insights.Overview(v.datasets)
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, dormant, err := insights.PurchaseFrequency(v.datasets["customers"])
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pageData := map[string]interface{}{
		"Title":            "Product Analytics",
		"ActiveTab":        "products",
		"Metrics":          metrics,
		"DormantCustomers": dormant,
		"Domains":          v.domains,
		"Selections":       v.selections,
		"FilteredCount":    len(v.orderIDs),
	}

	httpx.RenderTemplate(w, renderer, "base", pageData)
}

func handleChartData(w http.ResponseWriter, r *http.Request) {
	chartType := chi.URLParam(r, "chartType")

	v, err := buildView(r)
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var chartData interface{}

	switch chartType {
	case "photos":
		chartData, err = insights.ProductsByPhotos(v.datasets["products"])
	case "frequency":
		buckets, _, freqErr := insights.PurchaseFrequency(v.datasets["customers"])
		chartData, err = buckets, freqErr
	case "delivery":
		orders, restrictErr := insights.RestrictTo(v.datasets["orders"], "order_id", v.orderIDs)
		if restrictErr != nil {
			httpx.ErrorResponse(w, restrictErr.Error(), http.StatusInternalServerError)
			return
		}
		chartData, err = insights.DeliveryTimeBuckets(orders)
	case "state-products":
		chartData, err = insights.StateOrderCounts(v.datasets["order_items_sellers"], v.orderIDs)
	default:
		httpx.ErrorResponse(w, "Unknown chart type", http.StatusBadRequest)
		return
	}

	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chartData)
}
