// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package salesdata owns the CSV-backed sales dataset: generating a
// sample file on first start, loading it, filtering it, and computing
// the aggregates the dashboard endpoints serve.
package salesdata

import "time"

// Record is one sales transaction, one CSV row.
type Record struct {
	Date     time.Time
	Region   string
	Category string
	Product  string
	Quantity int
	Revenue  float64
}

// Regions is the fixed set of sales regions.
var Regions = []string{"North", "South", "East", "West", "Central"}

// Categories is the fixed set of product categories used by the
// sample data, in catalog order.
var Categories = []string{"Electronics", "Clothing", "Home & Garden", "Sports", "Books"}

// Products lists the sample catalog; each block of five belongs to the
// category at the same index of Categories.
var Products = []string{
	"Smartphone Pro", "Laptop Ultra", "Wireless Headphones", "Smart Watch", "Tablet",
	"Designer Jeans", "Cotton T-Shirt", "Winter Jacket", "Running Shoes", "Formal Shirt",
	"Garden Tools Set", "Plant Pots", "Outdoor Furniture", "BBQ Grill", "Lawn Mower",
	"Football", "Tennis Racket", "Yoga Mat", "Dumbbells", "Bicycle",
	"Programming Book", "Novel", "Cookbook", "Travel Guide", "Children Book",
}

// CategoryOf returns the category a catalog product belongs to, or ""
// for unknown products.
func CategoryOf(product string) string {
	for i, p := range Products {
		if p == product {
			return Categories[i/5]
		}
	}
	return ""
}
