package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/model"
)

// WriteSilver writes one parquet file per state partition under dir. The
// dataset is built under a temporary name and renamed into place so a
// partially written run is never published.
func WriteSilver(dir string, records []model.Brewery) error {
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clean temp dataset: %w", err)
	}

	partitions := make(map[string][]model.Brewery)
	for _, rec := range records {
		partitions[rec.State] = append(partitions[rec.State], rec)
	}

	for state, rows := range partitions {
		partDir := filepath.Join(tmp, "state="+state)
		if err := os.MkdirAll(partDir, 0o755); err != nil {
			return fmt.Errorf("create partition dir: %w", err)
		}
		path := filepath.Join(partDir, "data.parquet")
		if err := parquet.WriteFile(path, rows); err != nil {
			return fmt.Errorf("write partition %s: %w", state, err)
		}
	}
	if len(partitions) == 0 {
		if err := os.MkdirAll(tmp, 0o755); err != nil {
			return fmt.Errorf("create empty dataset dir: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create silver dir: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}
	return nil
}

// ReadSilver loads every partition of a silver run dataset. Partitions are
// read in sorted order so the result is deterministic.
func ReadSilver(dir string) ([]model.Brewery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("silver dataset %s: %w", dir, ErrInputMissing)
		}
		return nil, fmt.Errorf("read silver dataset %s: %w", dir, err)
	}

	var parts []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "state=") {
			parts = append(parts, e.Name())
		}
	}
	sort.Strings(parts)

	var records []model.Brewery
	for _, part := range parts {
		path := filepath.Join(dir, part, "data.parquet")
		rows, err := parquet.ReadFile[model.Brewery](path)
		if err != nil {
			return nil, fmt.Errorf("read partition %s: %v: %w", part, err, ErrInputCorrupt)
		}
		records = append(records, rows...)
	}
	return records, nil
}

// resolveSilverDir locates the silver dataset a downstream stage should
// consume: an explicit override, the dataset for an explicit run id, or the
// most recent dataset.
func resolveSilverDir(naming artifact.Naming, rc RunContext) (string, string, error) {
	if rc.InputOverride != "" {
		runID := rc.RunID
		if id, ok := artifact.RunIDFromSilverDir(rc.InputOverride); ok {
			runID = id
		}
		if runID == "" {
			runID = artifact.NewRunID(time.Now())
		}
		return rc.InputOverride, runID, nil
	}
	ix, err := artifact.Scan(naming)
	if err != nil {
		return "", "", err
	}
	if rc.RunID != "" {
		entry, err := ix.ForRun(artifact.StageSilver, rc.RunID)
		if err != nil {
			return "", "", fmt.Errorf("silver dataset for run %s: %w", rc.RunID, ErrInputMissing)
		}
		return entry.Path, rc.RunID, nil
	}
	entry, err := ix.Latest(artifact.StageSilver)
	if err != nil {
		return "", "", err
	}
	return entry.Path, entry.RunID, nil
}
