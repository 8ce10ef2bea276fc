package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/artifact"
)

// Runner executes all stages sequentially for a single run id:
// bronze -> silver -> dq -> gold. Each stage only starts once the previous
// one has published its artifact; a fatal stage error stops the run. A
// failed quality verdict does not block gold: both are consumers of the
// silver dataset, and blocking policy belongs to the orchestrator.
type Runner struct {
	Bronze *Bronze
	Silver *Silver
	DQ     *DQ
	Gold   *Gold
	Log    zerolog.Logger
}

// Run executes one full pass and returns the run id.
func (r *Runner) Run(ctx context.Context) (string, error) {
	runID := artifact.NewRunID(time.Now())
	rc := RunContext{RunID: runID}
	r.Log.Info().Str("run_id", runID).Msg("starting pipeline run")

	if _, err := r.Bronze.Run(ctx, rc); err != nil {
		return runID, fmt.Errorf("bronze stage: %w", err)
	}
	if _, err := r.Silver.Run(ctx, rc); err != nil {
		return runID, fmt.Errorf("silver stage: %w", err)
	}
	report, err := r.DQ.Run(ctx, rc)
	if err != nil {
		return runID, fmt.Errorf("dq stage: %w", err)
	}
	if !report.Passed {
		r.Log.Warn().Str("run_id", runID).Int("failed_rules", len(report.FailedRules())).Msg("quality verdict failed, continuing")
	}
	if _, err := r.Gold.Run(ctx, rc); err != nil {
		return runID, fmt.Errorf("gold stage: %w", err)
	}

	r.Log.Info().Str("run_id", runID).Msg("pipeline run completed")
	return runID, nil
}
