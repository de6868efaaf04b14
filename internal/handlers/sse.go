package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

var summaryTemplate = template.Must(template.New("summary").Parse(
	`<div id="summary" class="summary">` +
		`{{if .Error}}<span class="summary-error">{{.Error}}</span>` +
		`{{else if eq .Matched 0}}No sales recorded for <strong>{{.Region}}</strong> between {{.Start}} and {{.End}}.` +
		`{{else}}<strong>{{.Matched}}</strong> records for <strong>{{.Region}}</strong> between {{.Start}} and {{.End}}.{{end}}` +
		`</div>`))

type summaryData struct {
	Region  string
	Start   string
	End     string
	Matched int
	Error   string
}

// RenderSummary renders the #summary element shown above the charts.
func RenderSummary(filter models.Filter, matched int) (string, error) {
	return renderSummary(summaryData{
		Region:  filter.Region,
		Start:   filter.Start.Format(models.DateLayout),
		End:     filter.End.Format(models.DateLayout),
		Matched: matched,
	})
}

func renderSummary(data summaryData) (string, error) {
	var buf strings.Builder
	err := summaryTemplate.Execute(&buf, data)
	return buf.String(), err
}

// ChartSignals is the datastar signal patch carrying both figures.
func ChartSignals(c models.Charts) ([]byte, error) {
	return json.Marshal(map[string]any{
		"priceChart":  c.Price,
		"volumeChart": c.Volume,
		"matched":     c.Matched,
	})
}

type SSEHandlers struct {
	store         *services.SalesStore
	logger        *slog.Logger
	defaultRegion string
}

func NewSSEHandlers(store *services.SalesStore, logger *slog.Logger, defaultRegion string) *SSEHandlers {
	return &SSEHandlers{
		store:         store,
		logger:        logger,
		defaultRegion: defaultRegion,
	}
}

// HandleCharts recomputes the projection from the browser's region/startDate/endDate
// signals and patches the chart signals and the summary element.
func (h *SSEHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	var in filterInput
	readErr := datastar.ReadSignals(r, &in)

	sse := datastar.NewSSE(w, r)

	if readErr != nil {
		h.logger.Warn("read signals", "error", readErr)
		h.patchError(sse, "could not read the filter, please reload the page")
		return
	}

	filter, appErr := in.resolve(h.store, h.defaultRegion)
	if appErr != nil {
		h.patchError(sse, appErr.Message)
		return
	}

	data := services.BuildCharts(h.store.Project(filter))

	signals, err := ChartSignals(data)
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err, "region", filter.Region)
		h.patchError(sse, "charts could not be drawn for this selection")
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch chart signals", "error", err)
		return
	}

	html, err := RenderSummary(filter, data.Matched)
	if err != nil {
		h.logger.Error("render summary", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch summary", "error", err)
	}
}

// patchError replaces #summary with msg and leaves the charts as they are.
func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, msg string) {
	html, err := renderSummary(summaryData{Error: msg})
	if err != nil {
		h.logger.Error("render summary", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch summary", "error", err)
	}
}
