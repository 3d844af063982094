// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package salesdata

import (
	"math"
	"sort"
	"time"
)

// Summary holds the dashboard's headline figures for a filtered set.
type Summary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int     `json:"total_quantity"`
	AvgOrderValue float64 `json:"avg_order_value"`
	OrderCount    int     `json:"order_count"`
	RevenueShare  float64 `json:"revenue_share"` // percent of unfiltered revenue
}

// NameValue is one bar or pie slice in a chart payload.
type NameValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Summarize computes the KPIs for filtered records. allRecords is the
// unfiltered dataset; the revenue share relates the two.
func Summarize(filtered, allRecords []Record) Summary {
	var s Summary
	for _, r := range filtered {
		s.TotalRevenue += r.Revenue
		s.TotalQuantity += r.Quantity
	}
	s.OrderCount = len(filtered)
	if s.OrderCount > 0 {
		s.AvgOrderValue = round2(s.TotalRevenue / float64(s.OrderCount))
	}

	var allRevenue float64
	for _, r := range allRecords {
		allRevenue += r.Revenue
	}
	if allRevenue > 0 {
		s.RevenueShare = round2(s.TotalRevenue / allRevenue * 100)
	}
	s.TotalRevenue = round2(s.TotalRevenue)
	return s
}

// TopProducts returns the n products with the highest total revenue,
// descending. Ties break alphabetically so the order is stable.
func TopProducts(records []Record, n int) []NameValue {
	out := sumBy(records, func(r Record) string { return r.Product }, revenueOf)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// MonthlyRevenue returns total revenue per calendar month, keyed
// "2006-01" and sorted chronologically.
func MonthlyRevenue(records []Record) []NameValue {
	out := sumBy(records, func(r Record) string { return r.Date.Format("2006-01") }, revenueOf)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RevenueByCategory returns total revenue per category, sorted by name.
func RevenueByCategory(records []Record) []NameValue {
	out := sumBy(records, func(r Record) string { return r.Category }, revenueOf)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RevenueByRegion returns total revenue per region, ascending by
// revenue to match the horizontal bar layout.
func RevenueByRegion(records []Record) []NameValue {
	out := sumBy(records, func(r Record) string { return r.Region }, revenueOf)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// QuantityByRegion returns units sold per region, sorted by name.
func QuantityByRegion(records []Record) []NameValue {
	out := sumBy(records, func(r Record) string { return r.Region }, func(r Record) float64 {
		return float64(r.Quantity)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// AvgRevenueByWeekday returns the mean revenue per order for each day
// of the week, Monday first. Days without orders are omitted.
func AvgRevenueByWeekday(records []Record) []NameValue {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range records {
		day := weekdayName(r.Date)
		sums[day] += r.Revenue
		counts[day]++
	}

	var out []NameValue
	for _, day := range weekdays {
		if counts[day] == 0 {
			continue
		}
		out = append(out, NameValue{Name: day, Value: round2(sums[day] / float64(counts[day]))})
	}
	return out
}

func weekdayName(t time.Time) string {
	return t.Weekday().String()
}

func sumBy(records []Record, key func(Record) string, value func(Record) float64) []NameValue {
	sums := map[string]float64{}
	for _, r := range records {
		sums[key(r)] += value(r)
	}
	out := make([]NameValue, 0, len(sums))
	for k, v := range sums {
		out = append(out, NameValue{Name: k, Value: round2(v)})
	}
	return out
}

func revenueOf(r Record) float64 { return r.Revenue }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
