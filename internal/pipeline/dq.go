package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/config"
	"medallion-pipeline/internal/model"
)

// Alerter dispatches a quality alert; satisfied by alert.Notifier.
type Alerter interface {
	Notify(ctx context.Context, msg model.AlertMessage)
}

// MessageBuilder renders a DQ report into an alert message.
type MessageBuilder func(report model.DQReport) model.AlertMessage

// DQ evaluates the static rule set against one canonical dataset and
// triggers alerting when the overall verdict fails.
type DQ struct {
	naming   artifact.Naming
	rules    []model.DQRule
	notifier Alerter
	build    MessageBuilder
	events   Recorder
	log      zerolog.Logger
}

func NewDQ(naming artifact.Naming, rules []model.DQRule, notifier Alerter, build MessageBuilder, events Recorder, log zerolog.Logger) *DQ {
	return &DQ{naming: naming, rules: rules, notifier: notifier, build: build, events: events, log: log}
}

// DefaultRules is the rule set for this pipeline version, parameterized by
// config thresholds.
func DefaultRules(cfg config.RulesConfig) []model.DQRule {
	return []model.DQRule{
		{
			Name:     "min_row_count",
			Kind:     model.RuleCount,
			Severity: model.SeverityCritical,
			Count:    &model.CountParams{Min: cfg.MinRows},
		},
		{
			Name:      "website_url_null_ratio",
			Kind:      model.RuleNullRatio,
			Severity:  model.SeverityWarning,
			NullRatio: &model.NullRatioParams{Field: "website_url", Max: cfg.MaxWebsiteNullRatio},
		},
		{
			Name:     "longitude_in_range",
			Kind:     model.RuleRange,
			Severity: model.SeverityCritical,
			Range:    &model.RangeParams{Field: "longitude", Min: -180, Max: 180, Tolerance: cfg.RangeTolerance},
		},
		{
			Name:     "latitude_in_range",
			Kind:     model.RuleRange,
			Severity: model.SeverityWarning,
			Range:    &model.RangeParams{Field: "latitude", Min: -90, Max: 90, Tolerance: cfg.RangeTolerance},
		},
		{
			Name:     "min_distinct_states",
			Kind:     model.RuleCount,
			Severity: model.SeverityWarning,
			Count:    &model.CountParams{Distinct: "state", Min: cfg.MinStates},
		},
	}
}

// Run evaluates the rules and always records the report, pass or fail. On
// an overall fail the notifier is invoked exactly once. The report itself
// never fails the stage; only a missing or unreadable input does.
func (d *DQ) Run(ctx context.Context, rc RunContext) (model.DQReport, error) {
	start := time.Now()

	dir, runID, err := resolveSilverDir(d.naming, rc)
	if err != nil {
		record(d.events, d.log, model.LogEvent{
			Stage:   string(artifact.StageDQ),
			RunID:   rc.RunID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("input resolution failed: %v", err),
		})
		return model.DQReport{}, err
	}
	d.log.Info().Str("run_id", runID).Str("input", dir).Msg("starting dq stage")

	records, err := ReadSilver(dir)
	if err != nil {
		record(d.events, d.log, model.LogEvent{
			Stage:   string(artifact.StageDQ),
			RunID:   runID,
			Status:  model.StatusFailure,
			Message: fmt.Sprintf("input unusable: %v", err),
		})
		return model.DQReport{}, err
	}

	report := Evaluate(d.rules, records, runID)

	metrics := map[string]float64{
		"rules_evaluated": float64(len(report.Results)),
		"rules_failed":    float64(len(report.FailedRules())),
		"record_count":    float64(len(records)),
		"duration_ms":     float64(time.Since(start).Milliseconds()),
	}
	for _, res := range report.Results {
		metrics["measured_"+res.Rule] = res.Measured
	}

	message := fmt.Sprintf("dq report for run %s: passed", runID)
	if !report.Passed {
		message = fmt.Sprintf("dq report for run %s: failed (%d rule(s))", runID, len(report.FailedRules()))
	}

	// A quality violation is a finding, not a stage failure.
	record(d.events, d.log, model.LogEvent{
		Stage:   string(artifact.StageDQ),
		RunID:   runID,
		Status:  model.StatusSuccess,
		Metrics: metrics,
		Message: message,
	})

	if !report.Passed {
		d.notifier.Notify(ctx, d.build(report))
	}
	return report, nil
}

// Evaluate runs every rule against the dataset. Pure function of the rules
// and records: evaluating twice yields identical reports.
func Evaluate(rules []model.DQRule, records []model.Brewery, runID string) model.DQReport {
	report := model.DQReport{RunID: runID, Passed: true}
	for _, rule := range rules {
		res := evaluateRule(rule, records)
		report.Results = append(report.Results, res)
		if !res.Passed && res.Severity == model.SeverityCritical {
			report.Passed = false
		}
	}
	return report
}

func evaluateRule(rule model.DQRule, records []model.Brewery) model.RuleResult {
	res := model.RuleResult{Rule: rule.Name, Kind: rule.Kind, Severity: rule.Severity}

	switch rule.Kind {
	case model.RuleCount:
		if rule.Count.Distinct != "" {
			res.Measured = float64(distinctCount(records, rule.Count.Distinct))
		} else {
			res.Measured = float64(len(records))
		}
		res.Threshold = float64(rule.Count.Min)
		res.Passed = res.Measured >= res.Threshold

	case model.RuleNullRatio:
		nulls := nullCount(records, rule.NullRatio.Field)
		if len(records) > 0 {
			res.Measured = float64(nulls) / float64(len(records))
		}
		res.Threshold = rule.NullRatio.Max
		res.Passed = res.Measured <= res.Threshold

	case model.RuleRange:
		res.Measured = float64(outsideRange(records, *rule.Range))
		res.Threshold = float64(rule.Range.Tolerance)
		res.Passed = res.Measured <= res.Threshold
	}
	return res
}

func distinctCount(records []model.Brewery, field string) int {
	seen := make(map[string]bool)
	for _, r := range records {
		switch field {
		case "state":
			seen[r.State] = true
		case "brewery_type":
			seen[r.BreweryType] = true
		case "city":
			seen[r.City] = true
		}
	}
	return len(seen)
}

func nullCount(records []model.Brewery, field string) int {
	n := 0
	for _, r := range records {
		switch field {
		case "website_url":
			if r.WebsiteURL == nil {
				n++
			}
		case "longitude":
			if r.Longitude == nil {
				n++
			}
		case "latitude":
			if r.Latitude == nil {
				n++
			}
		}
	}
	return n
}

// outsideRange counts records whose field value lies outside [min, max].
// Null values are a null-ratio concern, not a range violation.
func outsideRange(records []model.Brewery, params model.RangeParams) int {
	n := 0
	for _, r := range records {
		var v *float64
		switch params.Field {
		case "longitude":
			v = r.Longitude
		case "latitude":
			v = r.Latitude
		}
		if v != nil && (*v < params.Min || *v > params.Max) {
			n++
		}
	}
	return n
}
