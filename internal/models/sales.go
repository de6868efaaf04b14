package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the fixed layout of every date in the source file and on the wire.
const DateLayout = "2006-01-02"

type SalesRecord struct {
	Date         time.Time
	Region       string
	AveragePrice decimal.Decimal
	TotalVolume  decimal.Decimal
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

func (d DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Min string `json:"min"`
		Max string `json:"max"`
	}{
		Min: d.Start.Format(DateLayout),
		Max: d.End.Format(DateLayout),
	})
}

type Filter struct {
	Region string
	Start  time.Time
	End    time.Time
}

type SeriesPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

type Projection struct {
	Price  []SeriesPoint
	Volume []SeriesPoint
}

// Figure is a chart-ready line series plus the presentation the browser needs.
type Figure struct {
	Title         string    `json:"title"`
	Color         string    `json:"color"`
	TickPrefix    string    `json:"tick_prefix,omitempty"`
	HoverTemplate string    `json:"hover_template,omitempty"`
	X             []string  `json:"x"`
	Y             []float64 `json:"y"`
}

type Charts struct {
	Price   Figure `json:"price"`
	Volume  Figure `json:"volume"`
	Matched int    `json:"matched"`
}
