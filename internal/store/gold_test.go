package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"medallion-pipeline/internal/model"
)

func TestWriter(t *testing.T) {
	rows := []model.AggregateRow{
		{RunDate: "2024-03-15", State: "OR", BreweryType: "micro", Count: 2},
		{RunDate: "2024-03-15", State: "WA", BreweryType: "brewpub", Count: 1},
	}

	t.Run("insert and read back one run date", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gold", "gold.db")
		w := &Writer{Path: path}

		if err := w.InsertRows(rows); err != nil {
			t.Fatalf("InsertRows: %v", err)
		}

		got, err := readRows(path, "2024-03-15")
		if err != nil {
			t.Fatalf("readRows: %v", err)
		}
		if !reflect.DeepEqual(got, rows) {
			t.Errorf("got %+v, want %+v", got, rows)
		}
	})

	t.Run("appends across runs without touching earlier rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gold.db")
		w := &Writer{Path: path}

		if err := w.InsertRows(rows); err != nil {
			t.Fatal(err)
		}
		later := []model.AggregateRow{{RunDate: "2024-03-16", State: "OR", BreweryType: "micro", Count: 5}}
		if err := w.InsertRows(later); err != nil {
			t.Fatal(err)
		}

		first, err := readRows(path, "2024-03-15")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, rows) {
			t.Errorf("earlier run mutated: %+v", first)
		}
		second, err := readRows(path, "2024-03-16")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(second, later) {
			t.Errorf("got %+v", second)
		}
	})

	t.Run("unwritable path surfaces an error", func(t *testing.T) {
		w := &Writer{Path: filepath.Join(t.TempDir(), "missing", "\x00bad", "gold.db")}
		if err := w.InsertRows(rows); err == nil {
			t.Error("expected error")
		}
	})
}
