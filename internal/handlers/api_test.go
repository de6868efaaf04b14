package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func createTestStore() *services.SalesStore {
	s := services.NewSalesStore()
	s.SetData([]models.SalesRecord{
		{Date: day("2015-01-04"), Region: "Midsouth", AveragePrice: decimal.RequireFromString("1.05"), TotalVolume: decimal.RequireFromString("1112388.52")},
		{Date: day("2015-01-11"), Region: "Midsouth", AveragePrice: decimal.RequireFromString("1.10"), TotalVolume: decimal.RequireFromString("998000.10")},
		{Date: day("2015-01-18"), Region: "Midsouth", AveragePrice: decimal.RequireFromString("0.98"), TotalVolume: decimal.RequireFromString("1210400.00")},
		{Date: day("2015-01-04"), Region: "Albany", AveragePrice: decimal.RequireFromString("1.22"), TotalVolume: decimal.RequireFromString("40873.28")},
		{Date: day("2015-01-18"), Region: "Albany", AveragePrice: decimal.RequireFromString("1.17"), TotalVolume: decimal.RequireFromString("44511.28")},
	})
	return s
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	store := createTestStore()
	handlers := NewAPIHandlers(store, testLogger, "Midsouth")

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.store != store {
		t.Error("NewAPIHandlers() should set store field")
	}
}

func TestAPIHandlers_HandleRegions(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleRegions(w, httptest.NewRequest(http.MethodGet, "/api/regions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheControl {
		t.Errorf("expected cache-control %q, got %q", cacheControl, cc)
	}

	env := decodeEnvelope(t, w.Body)
	var regions []string
	if err := json.Unmarshal(env.Data, &regions); err != nil {
		t.Fatal(err)
	}
	if len(regions) != 2 || regions[0] != "Albany" || regions[1] != "Midsouth" {
		t.Errorf("regions = %v, want [Albany Midsouth]", regions)
	}
}

func TestAPIHandlers_HandleBounds(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleBounds(w, httptest.NewRequest(http.MethodGet, "/api/bounds", nil))

	env := decodeEnvelope(t, w.Body)
	var bounds map[string]string
	if err := json.Unmarshal(env.Data, &bounds); err != nil {
		t.Fatal(err)
	}
	if bounds["min"] != "2015-01-04" || bounds["max"] != "2015-01-18" {
		t.Errorf("bounds = %v", bounds)
	}
}

func TestAPIHandlers_HandleProjection(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	tests := []struct {
		name        string
		query       string
		wantMatched int
		wantFirstX  string
	}{
		{"defaults to Midsouth full range", "", 3, "2015-01-04"},
		{"explicit region", "?region=Albany", 2, "2015-01-04"},
		{"inclusive range", "?region=Midsouth&start=2015-01-11&end=2015-01-18", 2, "2015-01-11"},
		{"single day", "?region=Albany&start=2015-01-18&end=2015-01-18", 1, "2015-01-18"},
		{"unknown region is empty", "?region=Atlantis", 0, ""},
		{"range without data", "?region=Albany&start=2015-01-05&end=2015-01-17", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleProjection(w, httptest.NewRequest(http.MethodGet, "/api/projection"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if w.Header().Get("ETag") == "" {
				t.Error("expected ETag header")
			}

			env := decodeEnvelope(t, w.Body)
			var charts models.Charts
			if err := json.Unmarshal(env.Data, &charts); err != nil {
				t.Fatal(err)
			}

			if charts.Matched != tt.wantMatched {
				t.Errorf("matched = %d, want %d", charts.Matched, tt.wantMatched)
			}
			if len(charts.Price.X) != tt.wantMatched || len(charts.Volume.Y) != tt.wantMatched {
				t.Errorf("series lengths = %d/%d, want %d", len(charts.Price.X), len(charts.Volume.Y), tt.wantMatched)
			}
			if tt.wantFirstX != "" && charts.Price.X[0] != tt.wantFirstX {
				t.Errorf("first x = %q, want %q", charts.Price.X[0], tt.wantFirstX)
			}
			if charts.Price.X == nil || charts.Volume.Y == nil {
				t.Error("empty series should decode as [] not null")
			}
		})
	}
}

func TestAPIHandlers_HandleProjection_BadInput(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{"bad start", "?start=01/04/2015", "BAD_REQUEST"},
		{"bad end", "?end=tomorrow", "BAD_REQUEST"},
		{"inverted range", "?start=2015-01-18&end=2015-01-04", "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleProjection(w, httptest.NewRequest(http.MethodGet, "/api/projection"+tt.query, nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			env := decodeEnvelope(t, w.Body)
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("unexpected error envelope: %+v", env)
			}
		})
	}
}

func TestAPIHandlers_HandleProjection_NotModified(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	first := httptest.NewRecorder()
	handlers.HandleProjection(first, httptest.NewRequest(http.MethodGet, "/api/projection?region=Albany", nil))
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/api/projection?region=Albany", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	handlers.HandleProjection(second, req)

	if second.Code != http.StatusNotModified {
		t.Errorf("expected 304, got %d", second.Code)
	}
	if cc := second.Header().Get("Cache-Control"); cc != cacheControl {
		t.Errorf("304 cache-control = %q, want %q", cc, cacheControl)
	}
	if second.Body.Len() != 0 {
		t.Error("304 response should have no body")
	}

	other := httptest.NewRecorder()
	handlers.HandleProjection(other, httptest.NewRequest(http.MethodGet, "/api/projection?region=Midsouth", nil))
	if other.Header().Get("ETag") == etag {
		t.Error("different projections should have different ETags")
	}
}

func TestAPIHandlers_HandleProjection_IfNoneMatchForms(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	first := httptest.NewRecorder()
	handlers.HandleProjection(first, httptest.NewRequest(http.MethodGet, "/api/projection?region=Albany", nil))
	etag := first.Header().Get("ETag")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"weak tag", "W/" + etag, http.StatusNotModified},
		{"tag in list", `"deadbeef", ` + etag, http.StatusNotModified},
		{"weak tag in list", `W/"deadbeef",W/` + etag, http.StatusNotModified},
		{"wildcard", "*", http.StatusNotModified},
		{"stale tag", `"deadbeef"`, http.StatusOK},
		{"unquoted tag", strings.Trim(etag, `"`), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projection?region=Albany", nil)
			req.Header.Set("If-None-Match", tt.header)
			w := httptest.NewRecorder()
			handlers.HandleProjection(w, req)

			if w.Code != tt.want {
				t.Errorf("If-None-Match %q: status = %d, want %d", tt.header, w.Code, tt.want)
			}
		})
	}
}

func TestAPIHandlers_HandleExport(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/api/export.xlsx?region=Albany", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxMIME {
		t.Errorf("content-type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="sales_Albany_2015-01-04_2015-01-18.xlsx"` {
		t.Errorf("content-disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sales")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header + 2 rows, got %d", len(rows))
	}
}

func TestAPIHandlers_HandleChartPNG(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /charts/{name}", handlers.HandleChartPNG)

	for _, path := range []string{"/charts/price.png", "/charts/volume.png", "/charts/price.png?region=Atlantis"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("content-type = %q", ct)
			}
			if _, err := png.Decode(w.Body); err != nil {
				t.Errorf("invalid png: %v", err)
			}
		})
	}

	for _, path := range []string{"/charts/pie.png", "/charts/price.svg"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d", w.Code)
			}
		})
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	env := decodeEnvelope(t, w.Body)
	var health map[string]string
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", health["status"])
	}
	if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
		t.Errorf("invalid timestamp format: %v", err)
	}
}

func TestAPIHandlers_HandleHealth_ReportsChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	csv := "Date,AveragePrice,Total Volume,region\n2015-01-04,1.05,1112388.52,Midsouth\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	store := services.NewSalesStore()
	if err := store.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatalf("LoadFromCSV() error = %v", err)
	}
	handlers := NewAPIHandlers(store, testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	env := decodeEnvelope(t, w.Body)
	var health map[string]string
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health["dataset_checksum"] == "" || health["dataset_checksum"] != store.Checksum() {
		t.Errorf("dataset_checksum = %q, want %q", health["dataset_checksum"], store.Checksum())
	}
}

func TestAPIHandlers_HandleHealth_NoData(t *testing.T) {
	handlers := NewAPIHandlers(services.NewSalesStore(), testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without data, got %d", w.Code)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	w := httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	env := decodeEnvelope(t, w.Body)
	var stats map[string]any
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats["record_count"] != float64(5) {
		t.Errorf("record_count = %v, want 5", stats["record_count"])
	}
}

func TestAPIHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewAPIHandlers(createTestStore(), testLogger, "Midsouth")

	endpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"regions", handlers.HandleRegions},
		{"bounds", handlers.HandleBounds},
		{"projection", handlers.HandleProjection},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			endpoint.handler(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != cacheControl {
				t.Errorf("expected cache-control %q, got %q", cacheControl, cc)
			}
			if env := decodeEnvelope(t, w.Body); !env.Success {
				t.Error("expected success=true in response")
			}
		})
	}
}
