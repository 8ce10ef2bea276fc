package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/model"
	"medallion-pipeline/pkg/utils"
)

// Silver turns one raw batch into the canonical partitioned dataset:
// cast, null-policy, dedup, partition — in that order.
type Silver struct {
	naming artifact.Naming
	events Recorder
	log    zerolog.Logger
}

func NewSilver(naming artifact.Naming, events Recorder, log zerolog.Logger) *Silver {
	return &Silver{naming: naming, events: events, log: log}
}

// Run transforms the resolved raw batch and publishes the dataset. Returns
// the dataset root.
func (s *Silver) Run(ctx context.Context, rc RunContext) (string, error) {
	start := time.Now()

	inputPath, runID, err := s.resolveInput(rc)
	if err != nil {
		record(s.events, s.log, model.LogEvent{
			Stage:   string(artifact.StageSilver),
			RunID:   rc.RunID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("input resolution failed: %v", err),
		})
		return "", err
	}
	s.log.Info().Str("run_id", runID).Str("input", inputPath).Msg("starting silver stage")

	batch, err := readBatch(inputPath)
	if err != nil {
		record(s.events, s.log, model.LogEvent{
			Stage:   string(artifact.StageSilver),
			RunID:   runID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("input unusable: %v", err),
		})
		return "", err
	}

	records, counts := Transform(batch.Records)

	dir := s.naming.SilverRunDir(runID)
	if err := WriteSilver(dir, records); err != nil {
		record(s.events, s.log, model.LogEvent{
			Stage:   string(artifact.StageSilver),
			RunID:   runID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("write failed: %v", err),
		})
		return "", err
	}

	record(s.events, s.log, model.LogEvent{
		Stage:  string(artifact.StageSilver),
		RunID:  runID,
		Status: model.StatusSuccess,
		Metrics: map[string]float64{
			"input":           float64(counts.Input),
			"dropped_cast":    float64(counts.DroppedCast),
			"dropped_null":    float64(counts.DroppedNull),
			"dropped_dup":     float64(counts.DroppedDup),
			"output":          float64(counts.Output),
			"distinct_states": float64(counts.DistinctStates),
			"duration_ms":     float64(time.Since(start).Milliseconds()),
		},
		Message: fmt.Sprintf("published %d records to %s", counts.Output, dir),
	})
	return dir, nil
}

func (s *Silver) resolveInput(rc RunContext) (string, string, error) {
	if rc.InputOverride != "" {
		runID := rc.RunID
		if id, ok := artifact.RunIDFromBronzePath(rc.InputOverride); ok {
			runID = id
		}
		if runID == "" {
			runID = artifact.NewRunID(time.Now())
		}
		return rc.InputOverride, runID, nil
	}
	ix, err := artifact.Scan(s.naming)
	if err != nil {
		return "", "", err
	}
	if rc.RunID != "" {
		entry, err := ix.ForRun(artifact.StageBronze, rc.RunID)
		if err != nil {
			return "", "", fmt.Errorf("raw batch for run %s: %w", rc.RunID, ErrInputMissing)
		}
		return entry.Path, rc.RunID, nil
	}
	entry, err := ix.Latest(artifact.StageBronze)
	if err != nil {
		return "", "", err
	}
	return entry.Path, entry.RunID, nil
}

func readBatch(path string) (model.RawBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RawBatch{}, fmt.Errorf("raw batch %s: %w", path, ErrInputMissing)
		}
		return model.RawBatch{}, fmt.Errorf("read raw batch %s: %w", path, err)
	}
	var batch model.RawBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return model.RawBatch{}, fmt.Errorf("parse raw batch %s: %v: %w", path, err, ErrInputCorrupt)
	}
	return batch, nil
}

// Transform applies the canonicalization steps in their fixed order and
// reports what happened to every record. Pure: no I/O, deterministic.
func Transform(in []model.GenericRecord) ([]model.Brewery, model.TransformCounts) {
	counts := model.TransformCounts{Input: len(in)}

	seen := make(map[string]bool)
	states := make(map[string]bool)
	var out []model.Brewery

	for _, rec := range in {
		brewery, ok := castRecord(rec)
		if !ok {
			counts.DroppedCast++
			continue
		}
		if brewery.ID == "" || brewery.Name == "" {
			counts.DroppedNull++
			continue
		}
		if seen[brewery.ID] {
			counts.DroppedDup++
			continue
		}
		seen[brewery.ID] = true
		states[brewery.State] = true
		out = append(out, brewery)
	}

	counts.Output = len(out)
	counts.DistinctStates = len(states)
	return out, counts
}

// castRecord coerces one loose record into the typed shape. A field that is
// present but cannot be coerced fails the whole record.
func castRecord(rec model.GenericRecord) (model.Brewery, bool) {
	var b model.Brewery
	var ok bool

	if b.ID, ok = stringField(rec, "id"); !ok {
		return model.Brewery{}, false
	}
	if b.Name, ok = stringField(rec, "name"); !ok {
		return model.Brewery{}, false
	}
	if b.BreweryType, ok = stringField(rec, "brewery_type"); !ok {
		return model.Brewery{}, false
	}
	if b.City, ok = stringField(rec, "city"); !ok {
		return model.Brewery{}, false
	}

	state, ok := stringField(rec, "state")
	if !ok {
		return model.Brewery{}, false
	}
	b.State = NormalizeState(state)

	if v, present := rec["website_url"]; present && v != nil {
		s, ok := utils.CoerceString(v)
		if !ok {
			return model.Brewery{}, false
		}
		if s != "" {
			b.WebsiteURL = &s
		}
	}
	if b.Longitude, ok = floatField(rec, "longitude"); !ok {
		return model.Brewery{}, false
	}
	if b.Latitude, ok = floatField(rec, "latitude"); !ok {
		return model.Brewery{}, false
	}

	return b, true
}

// stringField reads an optional string field; absent or nil is fine and
// yields the empty string.
func stringField(rec model.GenericRecord, field string) (string, bool) {
	v, present := rec[field]
	if !present || v == nil {
		return "", true
	}
	return utils.CoerceString(v)
}

// floatField reads an optional numeric field; absent, nil or empty-string
// values yield nil.
func floatField(rec model.GenericRecord, field string) (*float64, bool) {
	v, present := rec[field]
	if !present || v == nil {
		return nil, true
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, true
	}
	f, ok := utils.CoerceFloat(v)
	if !ok {
		return nil, false
	}
	return &f, true
}

// NormalizeState uppercases and trims the partition value; empty becomes
// UNKNOWN so every record lands in a partition.
func NormalizeState(state string) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return "UNKNOWN"
	}
	return state
}
