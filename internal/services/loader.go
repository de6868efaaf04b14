package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	chunkSize  = 5000
	maxWorkers = 10
)

const (
	colDate         = "Date"
	colRegion       = "region"
	colAveragePrice = "AveragePrice"
	colTotalVolume  = "Total Volume"
)

var requiredColumns = []string{colDate, colRegion, colAveragePrice, colTotalVolume}

var (
	ErrNoRecords     = errors.New("no records")
	errEmptyFile     = errors.New("empty file")
	errMissingColumn = errors.New("missing column")
	errOutOfRange    = errors.New("value out of range")
)

// ParseError reports a malformed source file. Line is 1-based and counts the header.
type ParseError struct {
	Path   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Path != "" {
		where = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}

	switch {
	case e.Column != "" && e.Value != "":
		return fmt.Sprintf("parse %s: column %q: value %q: %v", where, e.Column, e.Value, e.Err)
	case e.Column != "":
		return fmt.Sprintf("parse %s: column %q: %v", where, e.Column, e.Err)
	default:
		return fmt.Sprintf("parse %s: %v", where, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type columns struct {
	date, region, price, volume int
}

// Load reads the sales file at path and returns its records sorted ascending by date.
func Load(ctx context.Context, path string) ([]models.SalesRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	records, err := Parse(ctx, file)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return records, nil
}

// Parse decodes CSV sales data from r. Columns are located by header name; extra columns are ignored.
func Parse(ctx context.Context, r io.Reader) ([]models.SalesRecord, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Err: errEmptyFile}
	}
	if err != nil {
		return nil, fromCSVError(err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var (
		rows  [][]string
		lines []int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fromCSVError(err)
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}

	if len(rows) == 0 {
		return nil, &ParseError{Line: 2, Err: ErrNoRecords}
	}

	records := make([]models.SalesRecord, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				record, perr := parseRow(rows[i], cols)
				if perr != nil {
					perr.Line = lines[i]
					return perr
				}
				records[i] = record
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByDate(records)
	return records, nil
}

func columnIndex(header []string) (columns, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	for _, name := range requiredColumns {
		if _, ok := positions[name]; !ok {
			return columns{}, &ParseError{Line: 1, Column: name, Err: errMissingColumn}
		}
	}

	return columns{
		date:   positions[colDate],
		region: positions[colRegion],
		price:  positions[colAveragePrice],
		volume: positions[colTotalVolume],
	}, nil
}

func parseRow(row []string, cols columns) (models.SalesRecord, *ParseError) {
	rawDate := strings.TrimSpace(row[cols.date])
	date, err := time.Parse(models.DateLayout, rawDate)
	if err != nil {
		return models.SalesRecord{}, &ParseError{Column: colDate, Value: rawDate, Err: err}
	}

	price, perr := parseDecimal(row[cols.price], colAveragePrice)
	if perr != nil {
		return models.SalesRecord{}, perr
	}

	volume, perr := parseDecimal(row[cols.volume], colTotalVolume)
	if perr != nil {
		return models.SalesRecord{}, perr
	}

	return models.SalesRecord{
		Date:         date,
		Region:       strings.TrimSpace(row[cols.region]),
		AveragePrice: price,
		TotalVolume:  volume,
	}, nil
}

func parseDecimal(raw, column string) (decimal.Decimal, *ParseError) {
	raw = strings.TrimSpace(raw)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &ParseError{Column: column, Value: raw, Err: err}
	}
	// Charts carry values as float64.
	if math.IsInf(value.InexactFloat64(), 0) {
		return decimal.Decimal{}, &ParseError{Column: column, Value: raw, Err: errOutOfRange}
	}
	return value, nil
}

func fromCSVError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return fmt.Errorf("read csv: %w", err)
}

func sortByDate(records []models.SalesRecord) {
	slices.SortStableFunc(records, func(a, b models.SalesRecord) int {
		return a.Date.Compare(b.Date)
	})
}
