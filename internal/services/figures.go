package services

import (
	"sales-dashboard/internal/models"
)

const (
	PriceTitle  = "Average Price"
	PriceColor  = "#17B897"
	VolumeTitle = "Sales Volume"
	VolumeColor = "#E12D39"

	priceTickPrefix    = "$"
	priceHoverTemplate = "$%{y:.2f}<extra></extra>"
)

func BuildCharts(p models.Projection) models.Charts {
	price := newFigure(PriceTitle, PriceColor, p.Price)
	price.TickPrefix = priceTickPrefix
	price.HoverTemplate = priceHoverTemplate

	return models.Charts{
		Price:   price,
		Volume:  newFigure(VolumeTitle, VolumeColor, p.Volume),
		Matched: len(p.Price),
	}
}

func newFigure(title, color string, points []models.SeriesPoint) models.Figure {
	fig := models.Figure{
		Title: title,
		Color: color,
		X:     make([]string, len(points)),
		Y:     make([]float64, len(points)),
	}

	for i, point := range points {
		fig.X[i] = point.Date.Format(models.DateLayout)
		fig.Y[i] = point.Value.InexactFloat64()
	}

	return fig
}
