package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"sales-dashboard/internal/models"
)

// SalesStore holds the loaded record set. It is populated once at startup and read-only afterwards.
type SalesStore struct {
	mu       sync.RWMutex
	records  []models.SalesRecord
	regions  []string
	bounds   models.DateRange
	checksum string
	source   string
	loadedAt time.Time
	logger   *slog.Logger
}

func NewSalesStore() *SalesStore {
	return &SalesStore{
		records: make([]models.SalesRecord, 0),
		regions: make([]string, 0),
		logger:  slog.Default(),
	}
}

func (s *SalesStore) LoadFromCSV(ctx context.Context, filename string) error {
	start := time.Now()
	s.logger.Info("loading sales data", "filename", filename)

	records, err := Load(ctx, filename)
	if err != nil {
		return fmt.Errorf("load sales data: %w", err)
	}

	checksum, err := fileChecksum(filename)
	if err != nil {
		s.logger.Warn("failed to checksum sales data", "filename", filename, "error", err)
	}

	s.install(records, filename, checksum)

	s.logger.Info("sales data loaded",
		"records", len(records),
		"regions", len(s.Regions()),
		"checksum", s.Checksum(),
		"duration", time.Since(start),
	)
	return nil
}

// SetData installs records directly, sorting a copy by date.
func (s *SalesStore) SetData(records []models.SalesRecord) {
	sorted := slices.Clone(records)
	sortByDate(sorted)
	s.install(sorted, "", "")
}

func (s *SalesStore) install(records []models.SalesRecord, source, checksum string) {
	regions := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seen[r.Region]; ok {
			continue
		}
		seen[r.Region] = struct{}{}
		regions = append(regions, r.Region)
	}
	slices.Sort(regions)

	var bounds models.DateRange
	if len(records) > 0 {
		bounds = models.DateRange{
			Start: records[0].Date,
			End:   records[len(records)-1].Date,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.regions = regions
	s.bounds = bounds
	s.source = source
	s.checksum = checksum
	s.loadedAt = time.Now()
}

func (s *SalesStore) Records() []models.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

func (s *SalesStore) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.regions)
}

func (s *SalesStore) Bounds() models.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

func (s *SalesStore) HasRegion(region string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := slices.BinarySearch(s.regions, region)
	return found
}

// DefaultRegion returns preferred when the data contains it, otherwise the first region.
func (s *SalesStore) DefaultRegion(preferred string) string {
	if s.HasRegion(preferred) {
		return preferred
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.regions) == 0 {
		return preferred
	}
	return s.regions[0]
}

func (s *SalesStore) Project(filter models.Filter) models.Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Project(s.records, filter)
}

func (s *SalesStore) Checksum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checksum
}

func (s *SalesStore) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"record_count": len(s.records),
		"regions":      len(s.regions),
		"bounds":       s.bounds,
		"source":       s.source,
		"checksum":     s.checksum,
		"loaded_at":    s.loadedAt,
	}
}

func fileChecksum(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", filename, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
