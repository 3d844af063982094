// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/salesdata"
	"github.com/labstack/echo/v4"
)

// recordLimit caps the detail rows returned by the records endpoint.
const recordLimit = 100

// DashboardHandlers serves the analytics endpoints over the sales
// dataset loaded at startup.
type DashboardHandlers struct {
	records []salesdata.Record
}

// NewDashboard creates a new DashboardHandlers instance.
func NewDashboard(records []salesdata.Record) *DashboardHandlers {
	return &DashboardHandlers{records: records}
}

// parseFilter builds a dataset filter from query parameters. Dates use
// the 2006-01-02 format; region, category and product may repeat.
func parseFilter(c echo.Context) (salesdata.Filter, error) {
	var f salesdata.Filter

	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, fmt.Errorf("invalid from date %q", from)
		}
		f.From = t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, fmt.Errorf("invalid to date %q", to)
		}
		f.To = t
	}

	params := c.QueryParams()
	f.Regions = params["region"]
	f.Categories = params["category"]
	f.Products = params["product"]
	return f, nil
}

// Summary returns the KPI figures for the filtered dataset.
func (h *DashboardHandlers) Summary(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	filtered := filter.Apply(h.records)
	return c.JSON(http.StatusOK, salesdata.Summarize(filtered, h.records))
}

// Charts returns all chart payloads for the filtered dataset in one
// response; clients render from these series.
func (h *DashboardHandlers) Charts(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	filtered := filter.Apply(h.records)
	return c.JSON(http.StatusOK, map[string]any{
		"top_products":           salesdata.TopProducts(filtered, 10),
		"monthly_revenue":        salesdata.MonthlyRevenue(filtered),
		"revenue_by_category":    salesdata.RevenueByCategory(filtered),
		"revenue_by_region":      salesdata.RevenueByRegion(filtered),
		"quantity_by_region":     salesdata.QuantityByRegion(filtered),
		"avg_revenue_by_weekday": salesdata.AvgRevenueByWeekday(filtered),
	})
}

// Filters returns the filter options the dataset offers.
func (h *DashboardHandlers) Filters(c echo.Context) error {
	return c.JSON(http.StatusOK, salesdata.BuildFacets(h.records))
}

// recordJSON is the wire form of one detail row.
type recordJSON struct {
	Date     string  `json:"date"`
	Region   string  `json:"region"`
	Category string  `json:"category"`
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// Records returns the filtered detail rows, optionally narrowed by the
// q search parameter and capped at 100 rows.
func (h *DashboardHandlers) Records(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	filtered := filter.Apply(h.records)
	matched := salesdata.Search(filtered, c.QueryParam("q"))

	shown := matched
	if len(shown) > recordLimit {
		shown = shown[:recordLimit]
	}

	rows := make([]recordJSON, 0, len(shown))
	for _, r := range shown {
		rows = append(rows, recordJSON{
			Date:     r.Date.Format("2006-01-02"),
			Region:   r.Region,
			Category: r.Category,
			Product:  r.Product,
			Quantity: r.Quantity,
			Revenue:  r.Revenue,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"records": rows,
		"showing": len(shown),
		"matched": len(matched),
		"total":   len(filtered),
	})
}

// Export streams the filtered dataset as a CSV download.
func (h *DashboardHandlers) Export(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	filtered := filter.Apply(h.records)

	filename := fmt.Sprintf("sales_data_%s.csv", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().WriteHeader(http.StatusOK)

	return salesdata.WriteCSV(c.Response(), filtered)
}
