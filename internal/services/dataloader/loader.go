// Package dataloader reads the fixed set of e-commerce CSV datasets into
// in-memory tables and is the single load point for every downstream view.
package dataloader

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"shopdash/internal/models"
	"shopdash/internal/services/storage"
)

// DatasetSpec describes one dataset source: its file name within the dataset
// directory and the columns the pipeline depends on. A source may carry more
// columns than listed; these are kept as-is.
type DatasetSpec struct {
	File     string
	Required []string
}

// Specs enumerates every dataset the dashboard knows about. The registry is
// fixed; there is no schema inference beyond these column sets.
var Specs = map[string]DatasetSpec{
	"customers": {
		File:     "olist_customers_dataset.csv",
		Required: []string{"customer_id", "customer_unique_id", "customer_zip_code_prefix", "customer_city", "customer_state"},
	},
	"geolocation": {
		File:     "olist_geolocation_dataset.csv",
		Required: []string{"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng", "geolocation_city", "geolocation_state"},
	},
	"order_items": {
		File:     "olist_order_items_dataset.csv",
		Required: []string{"order_id", "order_item_id", "product_id", "seller_id", "price", "freight_value"},
	},
	"order_payments": {
		File:     "olist_order_payments_dataset.csv",
		Required: []string{"order_id", "payment_sequential", "payment_type", "payment_value"},
	},
	"order_reviews": {
		File:     "olist_order_reviews_dataset.csv",
		Required: []string{"review_id", "order_id", "review_score"},
	},
	"orders": {
		File:     "olist_orders_dataset.csv",
		Required: []string{"order_id", "customer_id", "order_status", "order_purchase_timestamp", "order_delivered_customer_date", "order_estimated_delivery_date"},
	},
	"products": {
		File:     "olist_products_dataset.csv",
		Required: []string{"product_id", "product_category_name", "product_photos_qty"},
	},
	"sellers": {
		File:     "olist_sellers_dataset.csv",
		Required: []string{"seller_id", "seller_zip_code_prefix", "seller_city", "seller_state"},
	},
	"category_translation": {
		File:     "product_category_name_translation.csv",
		Required: []string{"product_category_name", "product_category_name_english"},
	},
}

// DatasetNames returns every registered dataset name, sorted.
func DatasetNames() []string {
	names := make([]string, 0, len(Specs))
	for name := range Specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	table   *models.Table
}

// Loader loads the registered datasets from a directory, reading through the
// storage layer so encrypted directories work transparently. Parsed tables are
// cached per source file and invalidated only when the file's modification
// time or size changes; sources are treated as static for a session.
type Loader struct {
	Directory string

	store   *storage.Storage
	mu      sync.Mutex
	cache   map[string]cacheEntry
	rowCaps map[string]int
}

// New creates a Loader over the given dataset directory.
func New(directory string, store *storage.Storage) *Loader {
	return &Loader{
		Directory: directory,
		store:     store,
		cache:     make(map[string]cacheEntry),
		rowCaps:   make(map[string]int),
	}
}

// SetRowCap bounds the number of rows loaded for a dataset. The cap keeps
// very large sources (geolocation in particular) from dominating memory and
// render latency; rows beyond the cap are dropped in source order.
func (l *Loader) SetRowCap(name string, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rowCaps[name] = limit
	delete(l.cache, name)
}

// Load returns one table per requested dataset name.
//
// Every missing or unreadable source is collected, by dataset name, into a
// single models.NotFoundError rather than failing on the first, so a
// misconfigured directory is diagnosed in one pass. A source missing any of its required
// columns fails with a models.SchemaError naming the dataset and columns.
// Load never returns a partial registry.
func (l *Loader) Load(names []string) (map[string]*models.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Resolve every requested name and stat every source up front
	type pending struct {
		name string
		spec DatasetSpec
		path string
	}
	var sources []pending
	var missing []string

	for _, name := range names {
		spec, ok := Specs[name]
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q", name)
		}
		path := filepath.Join(l.Directory, spec.File)
		if _, err := l.store.Stat(path); err != nil {
			missing = append(missing, name)
			continue
		}
		sources = append(sources, pending{name: name, spec: spec, path: path})
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &models.NotFoundError{Sources: missing}
	}

	datasets := make(map[string]*models.Table, len(sources))
	for _, src := range sources {
		table, err := l.loadCached(src.name, src.spec, src.path)
		if err != nil {
			return nil, err
		}
		datasets[src.name] = table
	}

	return datasets, nil
}

// LoadAll loads every registered dataset.
func (l *Loader) LoadAll() (map[string]*models.Table, error) {
	return l.Load(DatasetNames())
}

// loadCached returns the cached table for a source if its file is unchanged,
// otherwise parses it fresh. Callers hold l.mu.
func (l *Loader) loadCached(name string, spec DatasetSpec, path string) (*models.Table, error) {
	info, err := l.store.Stat(path)
	if err != nil {
		return nil, &models.NotFoundError{Sources: []string{name}}
	}

	if entry, ok := l.cache[name]; ok {
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			return entry.table, nil
		}
	}

	table, err := l.parseCSV(name, spec, path)
	if err != nil {
		return nil, err
	}

	l.cache[name] = cacheEntry{
		modTime: info.ModTime(),
		size:    info.Size(),
		table:   table,
	}
	return table, nil
}

// parseCSV reads one dataset source into a table, validating its required
// columns. Cell values are kept exactly as parsed; no coercion happens here.
func (l *Loader) parseCSV(name string, spec DatasetSpec, path string) (*models.Table, error) {
	file, err := l.store.OpenFile(path)
	if err != nil {
		return nil, &models.NotFoundError{Sources: []string{name}}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading header of %s: %w", spec.File, err)
	}

	columns := make([]string, len(header))
	index := make(map[string]bool, len(header))
	for i, col := range header {
		columns[i] = col
		index[col] = true
	}

	var missingCols []string
	for _, col := range spec.Required {
		if !index[col] {
			missingCols = append(missingCols, col)
		}
	}
	if len(missingCols) > 0 {
		return nil, &models.SchemaError{Table: name, Columns: missingCols}
	}

	limit := l.rowCaps[name]

	var rows [][]string
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: %s: error reading line %d: %v", spec.File, lineNum+1, err)
			lineNum++
			continue
		}
		lineNum++

		rows = append(rows, record)
		if limit > 0 && len(rows) >= limit {
			log.Printf("Row cap reached for %s (%d rows), remaining rows skipped", name, limit)
			break
		}
	}

	return models.NewTable(name, columns, rows), nil
}
