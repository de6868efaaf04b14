package templates

import (
	"encoding/json"

	"sales-dashboard/internal/models"
)

// Datastar expressions bound on the page. Only the filter signals go back to the server.
const (
	refreshAction = "@get('/sse/charts', {filterSignals: {include: /^(region|startDate|endDate)$/}})"
	chartEffect   = "renderCharts($priceChart, $volumeChart)"
	exportHref    = "'/api/export.xlsx?region=' + encodeURIComponent($region) + '&start=' + $startDate + '&end=' + $endDate"
)

type DashboardView struct {
	Title       string
	Description string
	Regions     []string
	Region      string
	MinDate     string
	MaxDate     string
	StartDate   string
	EndDate     string
	Signals     string
	Summary     string
	Footer      string
	SourceURL   string
}

// NewDashboardView builds the first render: widgets preset to the filter and the
// charts for it embedded as initial signals, so the page needs no request on load.
func NewDashboardView(app AppInfo, regions []string, bounds models.DateRange, filter models.Filter, charts models.Charts, summary string) (DashboardView, error) {
	signals, err := json.Marshal(map[string]any{
		"region":      filter.Region,
		"startDate":   filter.Start.Format(models.DateLayout),
		"endDate":     filter.End.Format(models.DateLayout),
		"priceChart":  charts.Price,
		"volumeChart": charts.Volume,
		"matched":     charts.Matched,
	})
	if err != nil {
		return DashboardView{}, err
	}

	return DashboardView{
		Title:       app.Title,
		Description: app.Description,
		Regions:     regions,
		Region:      filter.Region,
		MinDate:     bounds.Start.Format(models.DateLayout),
		MaxDate:     bounds.End.Format(models.DateLayout),
		StartDate:   filter.Start.Format(models.DateLayout),
		EndDate:     filter.End.Format(models.DateLayout),
		Signals:     string(signals),
		Summary:     summary,
		Footer:      app.Footer,
		SourceURL:   app.SourceURL,
	}, nil
}

type AppInfo struct {
	Title       string
	Description string
	Footer      string
	SourceURL   string
}
