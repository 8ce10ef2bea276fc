package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/model"
)

// GoldWriter is the primary (transactional) storage format; satisfied by
// store.Writer.
type GoldWriter interface {
	InsertRows(rows []model.AggregateRow) error
}

// Gold computes grouped aggregates from one canonical dataset and writes
// them with the primary-then-fallback storage policy.
type Gold struct {
	naming  artifact.Naming
	primary GoldWriter
	events  Recorder
	log     zerolog.Logger
}

func NewGold(naming artifact.Naming, primary GoldWriter, events Recorder, log zerolog.Logger) *Gold {
	return &Gold{naming: naming, primary: primary, events: events, log: log}
}

// Run aggregates the resolved dataset and persists the rows. A primary
// write failure degrades to the columnar fallback and is recorded, not
// raised; only a missing input or a double write failure is fatal.
func (g *Gold) Run(ctx context.Context, rc RunContext) (model.Aggregate, error) {
	start := time.Now()

	dir, runID, err := resolveSilverDir(g.naming, rc)
	if err != nil {
		record(g.events, g.log, model.LogEvent{
			Stage:   string(artifact.StageGold),
			RunID:   rc.RunID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("input resolution failed: %v", err),
		})
		return model.Aggregate{}, err
	}
	g.log.Info().Str("run_id", runID).Str("input", dir).Msg("starting gold stage")

	records, err := ReadSilver(dir)
	if err != nil {
		record(g.events, g.log, model.LogEvent{
			Stage:   string(artifact.StageGold),
			RunID:   runID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("input unusable: %v", err),
		})
		return model.Aggregate{}, err
	}

	rows := Aggregate(records, runDate(runID))
	agg := model.Aggregate{RunID: runID, Rows: rows}

	if err := g.primary.InsertRows(rows); err != nil {
		g.log.Warn().Err(err).Msg("primary gold write failed, falling back to parquet")
		agg.Format = model.FormatParquet
		agg.FallbackReason = err.Error()

		fallbackPath := g.naming.GoldFallbackPath(runID)
		if werr := writeFallback(fallbackPath, rows); werr != nil {
			record(g.events, g.log, model.LogEvent{
				Stage:   string(artifact.StageGold),
				RunID:   runID,
				Status:  model.StatusFailure,
				Message: fmt.Sprintf("primary and fallback writes failed: %v; %v", err, werr),
			})
			return model.Aggregate{}, fmt.Errorf("gold write (fallback after %v): %w", err, werr)
		}
	} else {
		agg.Format = model.FormatSQLite
	}

	status := model.StatusSuccess
	if agg.Format == model.FormatParquet {
		status = model.StatusDegraded
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}
	record(g.events, g.log, model.LogEvent{
		Stage:  string(artifact.StageGold),
		RunID:  runID,
		Status: status,
		Metrics: map[string]float64{
			"rows":        float64(len(rows)),
			"total_count": float64(total),
			"duration_ms": float64(time.Since(start).Milliseconds()),
		},
		Message: fmt.Sprintf("wrote %d aggregate rows using %s format", len(rows), agg.Format),
	})
	return agg, nil
}

// Aggregate groups records by (state, brewery_type) and counts them. Rows
// are ordered by state ascending, then count descending, then type.
func Aggregate(records []model.Brewery, runDate string) []model.AggregateRow {
	type key struct {
		state string
		btype string
	}
	counts := make(map[key]int64)
	for _, r := range records {
		counts[key{r.State, r.BreweryType}]++
	}

	rows := make([]model.AggregateRow, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, model.AggregateRow{
			RunDate:     runDate,
			State:       k.state,
			BreweryType: k.btype,
			Count:       c,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].State != rows[j].State {
			return rows[i].State < rows[j].State
		}
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].BreweryType < rows[j].BreweryType
	})
	return rows
}

func writeFallback(path string, rows []model.AggregateRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create fallback dir: %w", err)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write fallback parquet: %w", err)
	}
	return nil
}

// runDate is the calendar partition value derived from the run id.
func runDate(runID string) string {
	if t, err := artifact.ParseRunID(runID); err == nil {
		return t.Format("2006-01-02")
	}
	return time.Now().UTC().Format("2006-01-02")
}
