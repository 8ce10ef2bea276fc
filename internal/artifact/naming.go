package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Stage names the pipeline layers that produce artifacts.
type Stage string

const (
	StageBronze  Stage = "bronze"
	StageSilver  Stage = "silver"
	StageDQ      Stage = "dq"
	StageGold    Stage = "gold"
	StageAlert   Stage = "alert"
	StageLogging Stage = "logging"
)

// RunIDLayout is the timestamp format embedded in every artifact name. The
// fixed width makes lexical order equal to chronological order.
const RunIDLayout = "20060102T150405Z"

// NewRunID derives a run id from a point in time.
func NewRunID(t time.Time) string {
	return t.UTC().Format(RunIDLayout)
}

// ParseRunID recovers the timestamp embedded in a run id.
func ParseRunID(runID string) (time.Time, error) {
	t, err := time.Parse(RunIDLayout, runID)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return t, nil
}

const (
	bronzePrefix = "bronze_breweries_"
	silverPrefix = "run_"
)

// Naming is the deterministic naming convention for run artifacts. Given a
// stage and a run id every path is derivable; discovery of existing
// artifacts goes through Scan and Index.
type Naming struct {
	Root string
}

func (n Naming) BronzeDir() string {
	return filepath.Join(n.Root, string(StageBronze))
}

// BronzePath is the raw batch file for one run.
func (n Naming) BronzePath(runID string) string {
	return filepath.Join(n.BronzeDir(), bronzePrefix+runID+".json")
}

func (n Naming) SilverDir() string {
	return filepath.Join(n.Root, string(StageSilver))
}

// SilverRunDir is the dataset root for one run; partitions live below it.
func (n Naming) SilverRunDir(runID string) string {
	return filepath.Join(n.SilverDir(), silverPrefix+runID)
}

// SilverPartition is the parquet file for one state partition of a run.
func (n Naming) SilverPartition(runID, state string) string {
	return filepath.Join(n.SilverRunDir(runID), "state="+state, "data.parquet")
}

// GoldDBPath is the sqlite database holding the primary gold table.
func (n Naming) GoldDBPath() string {
	return filepath.Join(n.Root, string(StageGold), "gold.db")
}

// GoldFallbackPath is the columnar fallback file for one run.
func (n Naming) GoldFallbackPath(runID string) string {
	return filepath.Join(n.Root, "gold_fallback", "gold_"+runID+".parquet")
}

func (n Naming) LoggingDir() string {
	return filepath.Join(n.Root, string(StageLogging))
}

// RunIDFromBronzePath extracts the embedded run id from a bronze file name.
func RunIDFromBronzePath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, bronzePrefix) || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	runID := strings.TrimSuffix(strings.TrimPrefix(name, bronzePrefix), ".json")
	if _, err := ParseRunID(runID); err != nil {
		return "", false
	}
	return runID, true
}

// RunIDFromSilverDir extracts the embedded run id from a silver dataset dir.
func RunIDFromSilverDir(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, silverPrefix) {
		return "", false
	}
	runID := strings.TrimPrefix(name, silverPrefix)
	if _, err := ParseRunID(runID); err != nil {
		return "", false
	}
	return runID, true
}
