package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const (
	cacheControl = "public, max-age=300"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type APIHandlers struct {
	store         *services.SalesStore
	logger        *slog.Logger
	defaultRegion string
}

func NewAPIHandlers(store *services.SalesStore, logger *slog.Logger, defaultRegion string) *APIHandlers {
	return &APIHandlers{
		store:         store,
		logger:        logger,
		defaultRegion: defaultRegion,
	}
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.store.Regions(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleBounds(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.store.Bounds(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

// HandleProjection serves both chart payloads for the query filter. The ETag is a hash of the payload.
func (h *APIHandlers) HandleProjection(w http.ResponseWriter, r *http.Request) {
	filter, appErr := filterInputFromQuery(r.URL.Query()).resolve(h.store, h.defaultRegion)
	if appErr != nil {
		errors.WriteError(w, r, h.logger, appErr)
		return
	}

	data := services.BuildCharts(h.store.Project(filter))

	body, err := json.Marshal(data)
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.InternalWrap(err, "failed to encode projection"))
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", cacheControl)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
		"ETag":          etag,
	})
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	filter, appErr := filterInputFromQuery(r.URL.Query()).resolve(h.store, h.defaultRegion)
	if appErr != nil {
		errors.WriteError(w, r, h.logger, appErr)
		return
	}

	records := filteredRecords(h.store.Records(), filter)

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, filter, records); err != nil {
		errors.WriteError(w, r, h.logger, errors.InternalWrap(err, "failed to build workbook"))
		return
	}

	filename := fmt.Sprintf("sales_%s_%s_%s.xlsx",
		strings.ReplaceAll(filter.Region, " ", "_"),
		filter.Start.Format(models.DateLayout),
		filter.End.Format(models.DateLayout),
	)

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// HandleChartPNG renders /charts/price.png or /charts/volume.png for the query filter.
func (h *APIHandlers) HandleChartPNG(w http.ResponseWriter, r *http.Request) {
	kind, ok := strings.CutSuffix(r.PathValue("name"), ".png")
	if !ok || (kind != "price" && kind != "volume") {
		errors.WriteError(w, r, h.logger, errors.NotFound("unknown chart"))
		return
	}

	filter, appErr := filterInputFromQuery(r.URL.Query()).resolve(h.store, h.defaultRegion)
	if appErr != nil {
		errors.WriteError(w, r, h.logger, appErr)
		return
	}

	data := services.BuildCharts(h.store.Project(filter))
	fig := data.Price
	if kind == "volume" {
		fig = data.Volume
	}

	var buf bytes.Buffer
	if err := charts.RenderPNG(&buf, fig, charts.DefaultWidth, charts.DefaultHeight); err != nil {
		errors.WriteError(w, r, h.logger, errors.InternalWrap(err, "failed to render chart"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if len(h.store.Regions()) == 0 {
		errors.WriteError(w, r, h.logger, errors.ServiceUnavailable("no sales data loaded"))
		return
	}

	errors.WriteSuccess(w, map[string]string{
		"status":           "healthy",
		"timestamp":        time.Now().Format(time.RFC3339),
		"version":          "1.0.0",
		"dataset_checksum": h.store.Checksum(),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.store.Stats())
}

// etagMatches applies the weak comparison of If-None-Match: any listed tag
// equal to etag once W/ prefixes are dropped, or "*".
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	etag = strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func filteredRecords(records []models.SalesRecord, filter models.Filter) []models.SalesRecord {
	p := services.Project(records, filter)
	out := make([]models.SalesRecord, len(p.Price))
	for i := range p.Price {
		out[i] = models.SalesRecord{
			Date:         p.Price[i].Date,
			Region:       filter.Region,
			AveragePrice: p.Price[i].Value,
			TotalVolume:  p.Volume[i].Value,
		}
	}
	return out
}
