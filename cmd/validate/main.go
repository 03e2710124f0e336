// Package main provides a CLI tool that validates a dataset directory and,
// optionally, a running dashboard's endpoints.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"shopdash/internal/models"
	"shopdash/internal/services/dataloader"
	"shopdash/internal/services/pipeline"
	"shopdash/internal/services/storage"
	"shopdash/internal/version"
)

type endpoint struct {
	path        string
	method      string
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	// Main pages
	{path: "/overview", method: "GET", contentType: "text/html", contains: []string{"Overview"}},
	{path: "/products", method: "GET", contentType: "text/html", contains: []string{"Product"}},
	{path: "/overview/partials/metrics", method: "GET", contentType: "text/html", contains: nil},

	// Chart data
	{path: "/overview/charts/data/monthly", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/revenue", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/payments", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/states", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/status-payments", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/price-freight", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/top-sellers", method: "GET", contentType: "application/json", contains: nil},
	{path: "/overview/charts/data/geo", method: "GET", contentType: "application/json", contains: nil},
	{path: "/products/charts/data/photos", method: "GET", contentType: "application/json", contains: nil},
	{path: "/products/charts/data/frequency", method: "GET", contentType: "application/json", contains: nil},
	{path: "/products/charts/data/delivery", method: "GET", contentType: "application/json", contains: nil},
	{path: "/products/charts/data/state-products", method: "GET", contentType: "application/json", contains: nil},

	// Export
	{path: "/overview/export", method: "GET", contentType: "text/csv", contains: []string{"order_id"}},

	// API
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func main() {
	dataDir := flag.String("data", "", "Dataset directory to validate (skipped if empty)")
	url := flag.String("url", "", "Base URL of a running server to probe (skipped if empty)")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if *dataDir == "" && *url == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -data and/or -url")
		os.Exit(2)
	}

	failed := 0
	if *dataDir != "" {
		failed += validateDatasets(*dataDir, *verbose)
	}
	if *url != "" {
		failed += validateEndpoints(*url, *verbose, *timeout)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// validateDatasets loads every registered dataset and runs the enrichment
// pipeline, reporting missing sources and schema problems.
func validateDatasets(dir string, verbose bool) int {
	fmt.Printf("Validating datasets in %s\n", dir)

	store, err := storage.New(dir)
	if err != nil {
		fmt.Printf("FAIL storage: %v\n", err)
		return 1
	}
	if !store.IsUnlocked() {
		fmt.Println("FAIL dataset directory is encrypted; decrypt it before validating")
		return 1
	}

	loader := dataloader.New(dir, store)
	datasets, err := loader.LoadAll()
	if err != nil {
		var notFound *models.NotFoundError
		var schema *models.SchemaError
		switch {
		case errors.As(err, &notFound):
			fmt.Printf("FAIL missing sources:\n")
			for _, src := range notFound.Sources {
				fmt.Printf("     %s\n", src)
			}
		case errors.As(err, &schema):
			fmt.Printf("FAIL schema: %v\n", schema)
		default:
			fmt.Printf("FAIL load: %v\n", err)
		}
		return 1
	}

	for _, name := range dataloader.DatasetNames() {
		if verbose {
			fmt.Printf("PASS %-22s %d rows\n", name, datasets[name].Len())
		}
	}

	if _, err := pipeline.Enrich(datasets); err != nil {
		fmt.Printf("FAIL enrichment: %v\n", err)
		return 1
	}

	fmt.Printf("Datasets OK: %d sources loaded and enriched\n", len(datasets))
	return 0
}

// validateEndpoints probes a running server's routes.
func validateEndpoints(baseURL string, verbose bool, timeoutSecs int) int {
	client := &http.Client{
		Timeout: time.Duration(timeoutSecs) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", baseURL)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int

	for _, ep := range endpoints {
		r := probeEndpoint(client, baseURL, ep)

		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
		} else if r.status != http.StatusOK {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Status: %d (expected 200)\n", r.status)
		} else {
			passed++
			if verbose {
				fmt.Printf("PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)
	return failed
}

func probeEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequest(ep.method, baseURL+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	if ep.contentType == "application/json" {
		var js interface{}
		if err := json.Unmarshal(body, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
