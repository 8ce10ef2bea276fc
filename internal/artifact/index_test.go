package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIndexLatest(t *testing.T) {
	t.Run("returns maximal embedded timestamp", func(t *testing.T) {
		ix := NewIndex(
			Entry{Stage: StageBronze, RunID: "20240101T000000Z", Path: "a"},
			Entry{Stage: StageBronze, RunID: "20240301T000000Z", Path: "b"},
			Entry{Stage: StageBronze, RunID: "20240201T000000Z", Path: "c"},
		)
		got, err := ix.Latest(StageBronze)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if got.RunID != "20240301T000000Z" {
			t.Errorf("got run %s", got.RunID)
		}
	})

	t.Run("breaks timestamp ties by lexical path order", func(t *testing.T) {
		ix := NewIndex(
			Entry{Stage: StageBronze, RunID: "20240101T000000Z", Path: "a"},
			Entry{Stage: StageBronze, RunID: "20240101T000000Z", Path: "b"},
		)
		got, err := ix.Latest(StageBronze)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if got.Path != "b" {
			t.Errorf("got path %s, want b", got.Path)
		}
	})

	t.Run("ignores other stages", func(t *testing.T) {
		ix := NewIndex(
			Entry{Stage: StageSilver, RunID: "20240301T000000Z", Path: "s"},
			Entry{Stage: StageBronze, RunID: "20240101T000000Z", Path: "a"},
		)
		got, err := ix.Latest(StageBronze)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if got.RunID != "20240101T000000Z" {
			t.Errorf("got run %s", got.RunID)
		}
	})

	t.Run("empty stage is ArtifactNotFound", func(t *testing.T) {
		ix := NewIndex()
		if _, err := ix.Latest(StageBronze); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("got %v, want ErrArtifactNotFound", err)
		}
	})
}

func TestIndexForRun(t *testing.T) {
	ix := NewIndex(Entry{Stage: StageSilver, RunID: "20240101T000000Z", Path: "s"})

	if _, err := ix.ForRun(StageSilver, "20240101T000000Z"); err != nil {
		t.Errorf("ForRun: %v", err)
	}
	if _, err := ix.ForRun(StageSilver, "20240201T000000Z"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("got %v, want ErrArtifactNotFound", err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	n := Naming{Root: root}

	mustWrite := func(path string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mustWrite(n.BronzePath("20240101T000000Z"))
	mustWrite(n.BronzePath("20240201T000000Z"))
	mustWrite(filepath.Join(n.BronzeDir(), "README.txt")) // skipped
	if err := os.MkdirAll(n.SilverRunDir("20240101T000000Z"), 0o755); err != nil {
		t.Fatal(err)
	}

	ix, err := Scan(n)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	bronze, err := ix.Latest(StageBronze)
	if err != nil {
		t.Fatalf("Latest bronze: %v", err)
	}
	if bronze.RunID != "20240201T000000Z" {
		t.Errorf("latest bronze run %s", bronze.RunID)
	}
	if bronze.Path != n.BronzePath("20240201T000000Z") {
		t.Errorf("latest bronze path %s", bronze.Path)
	}

	silver, err := ix.Latest(StageSilver)
	if err != nil {
		t.Fatalf("Latest silver: %v", err)
	}
	if silver.Path != n.SilverRunDir("20240101T000000Z") {
		t.Errorf("latest silver path %s", silver.Path)
	}

	t.Run("missing root yields empty index", func(t *testing.T) {
		ix, err := Scan(Naming{Root: filepath.Join(root, "nope")})
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if _, err := ix.Latest(StageBronze); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("got %v, want ErrArtifactNotFound", err)
		}
	})
}
