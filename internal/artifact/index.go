package artifact

import (
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrArtifactNotFound means no artifact exists for the requested stage.
// Callers must treat this as a hard stop, never as an empty input.
var ErrArtifactNotFound = errors.New("artifact not found")

// Entry is one discovered artifact in the namespace.
type Entry struct {
	Stage Stage
	RunID string
	Path  string
}

// Index is a point-in-time listing of the artifact namespace. Lookups are
// pure functions over the entries, so resolution is deterministic and
// testable without touching the filesystem.
type Index struct {
	entries []Entry
}

// NewIndex builds an index from known entries.
func NewIndex(entries ...Entry) *Index {
	ix := &Index{}
	ix.entries = append(ix.entries, entries...)
	return ix
}

// Add records one entry.
func (ix *Index) Add(e Entry) {
	ix.entries = append(ix.entries, e)
}

// Latest resolves the most recent artifact for a stage: maximal embedded
// run id, ties broken by lexical path order.
func (ix *Index) Latest(stage Stage) (Entry, error) {
	var candidates []Entry
	for _, e := range ix.entries {
		if e.Stage == stage {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return Entry{}, fmt.Errorf("no %s artifact: %w", stage, ErrArtifactNotFound)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RunID != candidates[j].RunID {
			return candidates[i].RunID < candidates[j].RunID
		}
		return candidates[i].Path < candidates[j].Path
	})
	return candidates[len(candidates)-1], nil
}

// ForRun resolves the artifact a stage produced for one specific run.
func (ix *Index) ForRun(stage Stage, runID string) (Entry, error) {
	for _, e := range ix.entries {
		if e.Stage == stage && e.RunID == runID {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("no %s artifact for run %s: %w", stage, runID, ErrArtifactNotFound)
}

// Scan lists the artifact namespace under the naming root. Malformed names
// are skipped; missing stage directories just contribute no entries.
func Scan(n Naming) (*Index, error) {
	ix := NewIndex()

	bronze, err := os.ReadDir(n.BronzeDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("scan bronze dir: %w", err)
	}
	for _, f := range bronze {
		if f.IsDir() {
			continue
		}
		if runID, ok := RunIDFromBronzePath(f.Name()); ok {
			ix.Add(Entry{Stage: StageBronze, RunID: runID, Path: n.BronzePath(runID)})
		}
	}

	silver, err := os.ReadDir(n.SilverDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("scan silver dir: %w", err)
	}
	for _, d := range silver {
		if !d.IsDir() {
			continue
		}
		if runID, ok := RunIDFromSilverDir(d.Name()); ok {
			ix.Add(Entry{Stage: StageSilver, RunID: runID, Path: n.SilverRunDir(runID)})
		}
	}

	return ix, nil
}
