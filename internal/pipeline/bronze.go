package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/model"
	"medallion-pipeline/internal/source"
)

// expectedFields are tracked for missing-value metrics in the bronze event.
var expectedFields = []string{"id", "name", "brewery_type", "city", "state", "website_url"}

// Bronze fetches raw records from the external source and persists them
// verbatim as a single append-only artifact per run.
type Bronze struct {
	naming artifact.Naming
	client *source.Client
	events Recorder
	log    zerolog.Logger
}

func NewBronze(naming artifact.Naming, client *source.Client, events Recorder, log zerolog.Logger) *Bronze {
	return &Bronze{naming: naming, client: client, events: events, log: log}
}

// Run fetches all pages and writes the raw batch. Returns the artifact path.
func (b *Bronze) Run(ctx context.Context, rc RunContext) (string, error) {
	start := time.Now()
	runID := rc.RunID
	if runID == "" {
		runID = artifact.NewRunID(start)
	}
	b.log.Info().Str("run_id", runID).Msg("starting bronze stage")

	records, stats, err := b.client.FetchAll(ctx)
	if err != nil {
		record(b.events, b.log, model.LogEvent{
			Stage:   string(artifact.StageBronze),
			RunID:   runID,
			Status:  model.StatusFailure,
			Metrics: map[string]float64{"pages_fetched": float64(stats.Pages)},
			Message: fmt.Sprintf("fetch failed: %v", err),
		})
		return "", fmt.Errorf("bronze fetch: %w", err)
	}

	batch := model.RawBatch{
		Source:     "openbrewerydb",
		CapturedAt: start.UTC(),
		Records:    records,
	}

	path := b.naming.BronzePath(runID)
	if err := writeBatch(path, batch); err != nil {
		record(b.events, b.log, model.LogEvent{
			Stage:   string(artifact.StageBronze),
			RunID:   runID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("write failed: %v", err),
		})
		return "", err
	}

	metrics := map[string]float64{
		"record_count":  float64(stats.Records),
		"pages_fetched": float64(stats.Pages),
		"duration_ms":   float64(time.Since(start).Milliseconds()),
	}
	for field, count := range missingFieldCounts(records) {
		metrics["missing_"+field] = float64(count)
	}

	record(b.events, b.log, model.LogEvent{
		Stage:   string(artifact.StageBronze),
		RunID:   runID,
		Status:  model.StatusSuccess,
		Metrics: metrics,
		Message: fmt.Sprintf("captured %d records to %s", stats.Records, path),
	})
	return path, nil
}

// writeBatch persists a raw batch with O_EXCL so an existing artifact for
// the same run is never overwritten.
func writeBatch(path string, batch model.RawBatch) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bronze dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create bronze file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("encode bronze batch: %w", err)
	}
	return nil
}

func missingFieldCounts(records []model.GenericRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, field := range expectedFields {
			if v, ok := rec[field]; !ok || v == nil {
				counts[field]++
			}
		}
	}
	return counts
}
