package handlers

import (
	"net/url"
	"strings"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

// filterInput is the raw filter state as it arrives from a query string or datastar signals.
type filterInput struct {
	Region    string `json:"region"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func filterInputFromQuery(q url.Values) filterInput {
	return filterInput{
		Region:    q.Get("region"),
		StartDate: q.Get("start"),
		EndDate:   q.Get("end"),
	}
}

// resolve fills missing values from the store (default region, dataset bounds) and
// rejects input the dashboard widgets could never produce. An unknown region is
// not an error: it projects to empty series.
func (in filterInput) resolve(store *services.SalesStore, defaultRegion string) (models.Filter, *errors.AppError) {
	bounds := store.Bounds()

	filter := models.Filter{
		Region: strings.TrimSpace(in.Region),
		Start:  bounds.Start,
		End:    bounds.End,
	}
	if filter.Region == "" {
		filter.Region = store.DefaultRegion(defaultRegion)
	}

	if in.StartDate != "" {
		start, err := time.Parse(models.DateLayout, in.StartDate)
		if err != nil {
			return models.Filter{}, errors.BadRequestWrap(err, "invalid start date, expected YYYY-MM-DD")
		}
		filter.Start = start
	}

	if in.EndDate != "" {
		end, err := time.Parse(models.DateLayout, in.EndDate)
		if err != nil {
			return models.Filter{}, errors.BadRequestWrap(err, "invalid end date, expected YYYY-MM-DD")
		}
		filter.End = end
	}

	if filter.Start.After(filter.End) {
		return models.Filter{}, errors.Validation("start date is after end date")
	}

	return filter, nil
}
