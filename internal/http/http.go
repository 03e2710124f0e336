package http

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"shopdash/internal/models"
	"shopdash/internal/templates"
)

// RenderTemplate renders a full page template with data
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, templateName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.Render(w, templateName, data)
	} else {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>" + templateName + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
	}
}

// RenderPartial renders a partial template with data
func RenderPartial(w http.ResponseWriter, renderer *templates.Renderer, partialName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.RenderPartial(w, partialName, data)
	} else {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<div><!-- Partial " + partialName + " not loaded --></div>"))
	}
}

// ErrorResponse sends an error response
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	log.Printf("Error: %s (status %d)", message, statusCode)
	http.Error(w, message, statusCode)
}

// ParseSelections builds the per-request filter selections from query
// parameters. Each dimension parameter is a comma-separated value list:
//
//	?years=2017,2018&statuses=delivered
//
// An absent parameter selects the dimension's full domain (the "select all"
// default); a present but empty parameter is the strict empty set and matches
// nothing. The domains argument supplies the full value domain per dimension.
func ParseSelections(query url.Values, domains models.FilterSelections) models.FilterSelections {
	return models.FilterSelections{
		Years:         selectionParam(query, "years", domains.Years),
		Months:        selectionParam(query, "months", domains.Months),
		Categories:    selectionParam(query, "categories", domains.Categories),
		SellerStates:  selectionParam(query, "states", domains.SellerStates),
		PaymentTypes:  selectionParam(query, "payment_types", domains.PaymentTypes),
		OrderStatuses: selectionParam(query, "statuses", domains.OrderStatuses),
	}
}

// selectionParam resolves one dimension parameter against its full domain.
func selectionParam(query url.Values, param string, domain []string) []string {
	if !query.Has(param) {
		return domain
	}
	raw := query.Get(param)
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
