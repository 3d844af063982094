// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package salesdata

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filter narrows the dataset. Zero-valued fields do not restrict:
// empty slices mean "all", zero times mean an open date bound.
type Filter struct {
	From       time.Time
	To         time.Time
	Regions    []string
	Categories []string
	Products   []string
}

// Apply returns the records matching the filter, preserving order.
func (f Filter) Apply(records []Record) []Record {
	regions := toSet(f.Regions)
	categories := toSet(f.Categories)
	products := toSet(f.Products)

	var out []Record
	for _, r := range records {
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		if regions != nil && !regions[r.Region] {
			continue
		}
		if categories != nil && !categories[r.Category] {
			continue
		}
		if products != nil && !products[r.Product] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// Facets describes the filter options the dataset offers: the distinct
// regions and categories, the top products by revenue, and the date
// span of the data.
type Facets struct {
	Regions    []string  `json:"regions"`
	Categories []string  `json:"categories"`
	Products   []string  `json:"products"`
	MinDate    time.Time `json:"min_date"`
	MaxDate    time.Time `json:"max_date"`
}

// topProductCount caps the product facet to the strongest sellers so
// the filter widget stays usable.
const topProductCount = 20

// BuildFacets computes the filter options from the full dataset.
func BuildFacets(records []Record) Facets {
	var facets Facets
	if len(records) == 0 {
		return facets
	}

	regions := map[string]bool{}
	categories := map[string]bool{}
	facets.MinDate = records[0].Date
	facets.MaxDate = records[0].Date

	for _, r := range records {
		regions[r.Region] = true
		categories[r.Category] = true
		if r.Date.Before(facets.MinDate) {
			facets.MinDate = r.Date
		}
		if r.Date.After(facets.MaxDate) {
			facets.MaxDate = r.Date
		}
	}

	facets.Regions = sortedKeys(regions)
	facets.Categories = sortedKeys(categories)

	for _, p := range TopProducts(records, topProductCount) {
		facets.Products = append(facets.Products, p.Name)
	}
	return facets
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Search keeps records where any field contains term,
// case-insensitively. An empty term keeps everything.
func Search(records []Record, term string) []Record {
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)

	var out []Record
	for _, r := range records {
		haystack := strings.ToLower(strings.Join([]string{
			r.Date.Format("2006-01-02"),
			r.Region,
			r.Category,
			r.Product,
			strconv.Itoa(r.Quantity),
			strconv.FormatFloat(r.Revenue, 'f', 2, 64),
		}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, r)
		}
	}
	return out
}
