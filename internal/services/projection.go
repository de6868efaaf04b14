package services

import (
	"time"

	"sales-dashboard/internal/models"
)

// Project selects the records of filter.Region dated within [filter.Start, filter.End],
// both ends inclusive at day granularity, and returns their price and volume series
// in input order. No match yields empty, non-nil series.
func Project(records []models.SalesRecord, filter models.Filter) models.Projection {
	start := startOfDay(filter.Start)
	end := startOfDay(filter.End)

	projection := models.Projection{
		Price:  make([]models.SeriesPoint, 0),
		Volume: make([]models.SeriesPoint, 0),
	}

	for _, record := range records {
		if record.Region != filter.Region {
			continue
		}

		day := startOfDay(record.Date)
		if day.Before(start) || day.After(end) {
			continue
		}

		projection.Price = append(projection.Price, models.SeriesPoint{Date: record.Date, Value: record.AveragePrice})
		projection.Volume = append(projection.Volume, models.SeriesPoint{Date: record.Date, Value: record.TotalVolume})
	}

	return projection
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
