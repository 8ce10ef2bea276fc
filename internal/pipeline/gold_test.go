package pipeline

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/model"
)

// memWriter is an in-memory primary format, optionally failing.
type memWriter struct {
	rows []model.AggregateRow
	err  error
}

func (m *memWriter) InsertRows(rows []model.AggregateRow) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func goldFixture() []model.Brewery {
	mk := func(id, state, btype string) model.Brewery {
		return model.Brewery{ID: id, Name: "B" + id, BreweryType: btype, State: state}
	}
	return []model.Brewery{
		mk("1", "OR", "micro"),
		mk("2", "OR", "micro"),
		mk("3", "OR", "brewpub"),
		mk("4", "WA", "micro"),
	}
}

func TestAggregate(t *testing.T) {
	rows := Aggregate(goldFixture(), "2024-03-15")

	want := []model.AggregateRow{
		{RunDate: "2024-03-15", State: "OR", BreweryType: "micro", Count: 2},
		{RunDate: "2024-03-15", State: "OR", BreweryType: "brewpub", Count: 1},
		{RunDate: "2024-03-15", State: "WA", BreweryType: "micro", Count: 1},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %+v, want %+v", rows, want)
	}

	var total int64
	for _, r := range rows {
		total += r.Count
	}
	if total != int64(len(goldFixture())) {
		t.Errorf("group counts sum to %d, want %d", total, len(goldFixture()))
	}
}

func TestGoldRun(t *testing.T) {
	const runID = "20240315T103000Z"

	setup := func(t *testing.T, primary GoldWriter) (*Gold, *fakeRecorder, artifact.Naming) {
		t.Helper()
		n := artifact.Naming{Root: t.TempDir()}
		if err := WriteSilver(n.SilverRunDir(runID), goldFixture()); err != nil {
			t.Fatalf("WriteSilver: %v", err)
		}
		events := &fakeRecorder{}
		return NewGold(n, primary, events, zerolog.Nop()), events, n
	}

	t.Run("primary format on success", func(t *testing.T) {
		primary := &memWriter{}
		g, events, n := setup(t, primary)

		agg, err := g.Run(context.Background(), RunContext{RunID: runID})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if agg.Format != model.FormatSQLite || agg.FallbackReason != "" {
			t.Errorf("aggregate = %+v", agg)
		}
		if len(primary.rows) != 3 {
			t.Errorf("primary got %d rows", len(primary.rows))
		}
		if ev := events.last(t); ev.Status != model.StatusSuccess || ev.Metrics["total_count"] != 4 {
			t.Errorf("event = %+v", ev)
		}
		if _, err := os.Stat(n.GoldFallbackPath(runID)); !os.IsNotExist(err) {
			t.Error("fallback file written despite primary success")
		}
	})

	t.Run("falls back with equal rows when primary fails", func(t *testing.T) {
		// establish what the primary would have stored
		okWriter := &memWriter{}
		g, _, _ := setup(t, okWriter)
		if _, err := g.Run(context.Background(), RunContext{RunID: runID}); err != nil {
			t.Fatal(err)
		}

		failing := &memWriter{err: errors.New("table locked")}
		g, events, n := setup(t, failing)
		agg, err := g.Run(context.Background(), RunContext{RunID: runID})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if agg.Format != model.FormatParquet {
			t.Errorf("format = %s, want parquet fallback", agg.Format)
		}
		if agg.FallbackReason == "" {
			t.Error("fallback reason not recorded")
		}

		stored, err := parquet.ReadFile[model.AggregateRow](n.GoldFallbackPath(runID))
		if err != nil {
			t.Fatalf("read fallback: %v", err)
		}
		if !reflect.DeepEqual(stored, okWriter.rows) {
			t.Errorf("fallback rows differ from primary rows:\n%+v\n%+v", stored, okWriter.rows)
		}
		if ev := events.last(t); ev.Status != model.StatusDegraded {
			t.Errorf("event status = %s, want degraded", ev.Status)
		}
	})

	t.Run("missing dataset is fatal and recorded", func(t *testing.T) {
		n := artifact.Naming{Root: t.TempDir()}
		events := &fakeRecorder{}
		g := NewGold(n, &memWriter{}, events, zerolog.Nop())
		if _, err := g.Run(context.Background(), RunContext{RunID: runID}); !errors.Is(err, ErrInputMissing) {
			t.Errorf("got %v, want ErrInputMissing", err)
		}
		if ev := events.last(t); ev.Status != model.StatusFailure || ev.RunID != runID {
			t.Errorf("event = %+v, want failure for run %s", ev, runID)
		}
	})
}
