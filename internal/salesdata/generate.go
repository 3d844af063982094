// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package salesdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var header = []string{"Date", "Region", "Category", "Product", "Quantity", "Revenue"}

// Generate produces two years of sample sales records, 1 to 10 orders
// per day from 2023-01-01 through 2024-12-31. The output is fully
// determined by rng.
func Generate(rng *rand.Rand) []Record {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	var records []Record
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		orders := 1 + rng.IntN(10)
		for range orders {
			product := Products[rng.IntN(len(Products))]
			quantity := 1 + rng.IntN(50)
			basePrice := 50 + rng.Float64()*1950
			revenue := math.Round(basePrice*float64(quantity)*100) / 100

			records = append(records, Record{
				Date:     day,
				Region:   Regions[rng.IntN(len(Regions))],
				Category: CategoryOf(product),
				Product:  product,
				Quantity: quantity,
				Revenue:  revenue,
			})
		}
	}
	return records
}

// EnsureFile generates the sample dataset at path unless a file already
// exists there.
func EnsureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat sales data file: %w", err)
	}

	slog.Info("sales_data_generate", "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	records := Generate(rng)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sales data file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return fmt.Errorf("failed to write sales data: %w", err)
	}
	return f.Close()
}

// WriteCSV writes records in the dataset's wire format, header first.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format("2006-01-02"),
			r.Region,
			r.Category,
			r.Product,
			strconv.Itoa(r.Quantity),
			strconv.FormatFloat(r.Revenue, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
