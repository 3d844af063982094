// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package salesdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Load reads the sales dataset from path.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sales data file: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// Read parses CSV sales data from r. The first row must be the header.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, err
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", line, row[0], err)
		}
		quantity, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity %q: %w", line, row[4], err)
		}
		revenue, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid revenue %q: %w", line, row[5], err)
		}

		records = append(records, Record{
			Date:     date,
			Region:   row[1],
			Category: row[2],
			Product:  row[3],
			Quantity: quantity,
			Revenue:  revenue,
		})
	}
	return records, nil
}
