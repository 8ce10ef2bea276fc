package pipeline

import (
	"github.com/rs/zerolog"

	"medallion-pipeline/internal/model"
)

// RunContext carries the per-invocation parameters every stage receives
// from the orchestrator. With an empty RunID a stage resolves its input by
// most-recent discovery; InputOverride bypasses discovery entirely.
type RunContext struct {
	RunID         string
	InputOverride string
}

// Recorder appends pipeline events; satisfied by eventlog.Logger.
type Recorder interface {
	Append(ev model.LogEvent) (string, error)
}

// record appends a stage event. An append failure must not fail the stage,
// but a broken logging dir has to be visible, so it is logged.
func record(events Recorder, log zerolog.Logger, ev model.LogEvent) {
	if _, err := events.Append(ev); err != nil {
		log.Error().Err(err).Str("stage", ev.Stage).Msg("could not record stage event")
	}
}
