package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medallion-pipeline/internal/model"
)

// Logger appends structured pipeline events, one self-contained JSON file
// per event. File names carry the event timestamp plus a random suffix so
// concurrent writers never overwrite each other. Events are mirrored to the
// console logger.
type Logger struct {
	dir string
	log zerolog.Logger
	now func() time.Time
}

// New creates an event logger writing under dir.
func New(dir string, log zerolog.Logger) *Logger {
	return &Logger{dir: dir, log: log, now: time.Now}
}

// Append writes one event and returns the path of the file created. The
// event timestamp is filled in when unset.
func (l *Logger) Append(ev model.LogEvent) (string, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create logging dir: %w", err)
	}

	stamp := ev.Timestamp.UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("log_%s_%s_%s.json", stamp, ev.Stage, uuid.NewString()[:8])
	path := filepath.Join(l.dir, name)

	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	// O_EXCL keeps the append-only discipline: a name collision fails
	// instead of replacing an existing event.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create event file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write event file: %w", err)
	}

	l.mirror(ev)
	return path, nil
}

func (l *Logger) mirror(ev model.LogEvent) {
	var e *zerolog.Event
	switch ev.Status {
	case model.StatusFailure:
		e = l.log.Error()
	case model.StatusDegraded:
		e = l.log.Warn()
	default:
		e = l.log.Info()
	}
	e.Str("stage", ev.Stage).
		Str("run_id", ev.RunID).
		Str("status", string(ev.Status))
	for name, value := range ev.Metrics {
		e = e.Float64(name, value)
	}
	e.Msg(ev.Message)
}
