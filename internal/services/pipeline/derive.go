package pipeline

import (
	"strconv"
	"strings"
	"time"

	"shopdash/internal/models"
)

// timestampFormats are the layouts accepted for order timestamps. Source files
// use "2006-01-02 15:04:05"; ISO-8601 and bare dates also appear in exports.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParseTimestamp parses a timestamp cell, returning false when the value is
// missing or matches none of the accepted layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == models.Missing {
		return time.Time{}, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AddTimeFeatures returns a new table with derived "year" and "month" columns
// parsed from the named timestamp column. An unparsable timestamp yields
// Missing for both derived cells; the row is kept, and filters and aggregates
// exclude it. The input table is not modified.
func AddTimeFeatures(t *models.Table, tsColumn string) (*models.Table, error) {
	tsIdx, ok := t.ColumnIndex(tsColumn)
	if !ok {
		return nil, &models.SchemaError{Table: t.Name(), Columns: []string{tsColumn}}
	}

	cols := append(t.Columns(), models.DimYear, models.DimMonth)
	rows := make([][]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		src := t.Row(i)
		row := make([]string, 0, len(cols))
		row = append(row, src...)

		if ts, ok := ParseTimestamp(src[tsIdx]); ok {
			row = append(row, strconv.Itoa(ts.Year()), strconv.Itoa(int(ts.Month())))
		} else {
			row = append(row, models.Missing, models.Missing)
		}
		rows[i] = row
	}

	return models.NewTable(t.Name(), cols, rows), nil
}
