// Package overview serves the sales overview page: headline KPIs plus the
// order, revenue, payment, seller-geography, and geolocation charts.
package overview

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

// Initialize sets up the overview package with required dependencies
func Initialize(c *config.Config, l *dataloader.Loader, r *templates.Renderer) {
	cfg = c
	loader = l
	renderer = r
}

// RegisterRoutes registers all overview routes
func RegisterRoutes(r chi.Router) {
	r.Get("/overview", handleOverview)
	r.Get("/overview/partials/metrics", handleMetricsPartial)
	r.Get("/overview/charts/data/{chartType}", handleChartData)
	r.Get("/overview/export", handleExport)
}

// view is the per-request pipeline state every overview endpoint starts from.
type view struct {
	datasets   map[string]*models.Table // enriched mapping
	domains    models.FilterSelections
	selections models.FilterSelections
	filtered   *models.Table   // filtered order_detail view
	orderIDs   map[string]bool // distinct order ids surviving the filter
	orders     *models.Table   // enriched orders restricted to orderIDs
}

// buildView loads and enriches the datasets, resolves the request's filter
// selections against the full dimension domains, and applies the filter.
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

	orders, err := insights.RestrictTo(enriched["orders"], "order_id", orderIDs)
	if err != nil {
		return nil, err
	}

	return &view{
		datasets:   enriched,
		domains:    domains,
		selections: selections,
		filtered:   filtered,
		orderIDs:   orderIDs,
		orders:     orders,
	}, nil
}

func handleOverview(w http.ResponseWriter, r *http.Request) {
	v, err := buildView(r)
	if err != nil {
		log.Printf("Error building overview: %v", err)
		httpx.ErrorResponse(w, "Error loading data: "+err.Error(), http.StatusInternalServerError)
		return
	}

	metrics, err := insights.Overview(v.datasets)
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pageData := map[string]interface{}{
		"Title":         "Sales Overview",
		"ActiveTab":     "overview",
		"Metrics":       metrics,
		"Domains":       v.domains,
		"Selections":    v.selections,
		"FilteredCount": len(v.orderIDs),
	}

	httpx.RenderTemplate(w, renderer, "base", pageData)
}

// handleMetricsPartial re-renders the KPI strip on its own, for in-place
// refresh without reloading the page.
func handleMetricsPartial(w http.ResponseWriter, r *http.Request) {
	v, err := buildView(r)
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics, err := insights.Overview(v.datasets)
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httpx.RenderPartial(w, renderer, "metrics", map[string]interface{}{
		"Metrics": metrics,
	})
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
	case "monthly":
		chartData, err = insights.MonthlyOrderCounts(v.orders)
	case "revenue":
		chartData, err = insights.YearlyRevenue(v.orders)
	case "payments":
		chartData, err = insights.PaymentTypeCounts(v.datasets["order_payments"], v.orderIDs)
	case "states":
		chartData, err = insights.StateOrderCounts(v.datasets["order_items_sellers"], v.orderIDs)
	case "status-payments":
		chartData, err = insights.PaymentsByStatus(v.datasets["orders"], v.datasets["order_payments"], v.orderIDs)
	case "price-freight":
		chartData, err = insights.PriceFreightPoints(v.datasets["order_items"], v.orderIDs, cfg.ScatterPointCap)
	case "top-sellers":
		chartData, err = insights.TopSellers(v.datasets["order_items"], 20)
	case "geo":
		chartData, err = insights.GeoPoints(v.datasets["geolocation"], geoStates(r), cfg.GeoRowCap)
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

// geoStates reads the map chart's state restriction; absent means all states.
func geoStates(r *http.Request) map[string]bool {
	if !r.URL.Query().Has("states") {
		return nil
	}
	states := make(map[string]bool)
	for _, s := range strings.Split(r.URL.Query().Get("states"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			states[s] = true
		}
	}
	return states
}

// handleExport streams the filtered order view as a CSV download.
func handleExport(w http.ResponseWriter, r *http.Request) {
	v, err := buildView(r)
	if err != nil {
		httpx.ErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("order_export_%s.csv", uuid.New().String())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	cw := csv.NewWriter(w)
	if err := cw.Write(v.filtered.Columns()); err != nil {
		log.Printf("Error writing export header: %v", err)
		return
	}
	for i := 0; i < v.filtered.Len(); i++ {
		if err := cw.Write(v.filtered.Row(i)); err != nil {
			log.Printf("Error writing export row %d: %v", i, err)
			return
		}
	}
	cw.Flush()
}
