package main

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/timeseries"
)

// loadSeriesCSV reads a two-column CSV (date,value) with an optional header
// row into a time series.
func loadSeriesCSV(path string) (*timeseries.Series, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	var values []float64
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, errs.Newf(errs.InvalidInput, "%s:%d: expected 2 columns, got %d", path, i+1, len(rec))
		}
		date, err := calendar.ParseDate(rec[0])
		if err != nil {
			if i == 0 {
				continue // Header row
			}
			return nil, err
		}
		value, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, errs.Newf(errs.InvalidInput, "%s:%d: bad value %q", path, i+1, rec[1])
		}
		dates = append(dates, date)
		values = append(values, value)
	}
	return timeseries.New(dates, values)
}

// loadPricesCSV reads a wide CSV (date,SYM1,SYM2,...) into one price series
// per symbol. The header row is required. Empty cells are skipped.
func loadPricesCSV(path string) (map[string]*timeseries.Series, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errs.Newf(errs.InsufficientData, "%s: need a header and at least one data row", path)
	}
	header := records[0]
	if len(header) < 2 {
		return nil, errs.Newf(errs.InvalidInput, "%s: header needs a date column and at least one symbol", path)
	}

	dates := make(map[string][]time.Time)
	values := make(map[string][]float64)
	for i, rec := range records[1:] {
		date, err := calendar.ParseDate(rec[0])
		if err != nil {
			return nil, errs.Newf(errs.InvalidInput, "%s:%d: bad date %q", path, i+2, rec[0])
		}
		for c := 1; c < len(rec) && c < len(header); c++ {
			if rec[c] == "" {
				continue
			}
			value, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, errs.Newf(errs.InvalidInput, "%s:%d: bad value %q for %s", path, i+2, rec[c], header[c])
			}
			symbol := header[c]
			dates[symbol] = append(dates[symbol], date)
			values[symbol] = append(values[symbol], value)
		}
	}

	out := make(map[string]*timeseries.Series, len(dates))
	for symbol := range dates {
		series, err := timeseries.New(dates[symbol], values[symbol])
		if err != nil {
			return nil, err
		}
		out[symbol] = series
	}
	return out, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Newf(errs.IO, "failed to open %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errs.Newf(errs.IO, "failed to parse %s: %v", path, err)
	}
	return records, nil
}
