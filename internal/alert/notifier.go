package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/config"
	"medallion-pipeline/internal/model"
)

// Transport delivers a rendered alert message.
type Transport interface {
	Send(ctx context.Context, msg model.AlertMessage) error
}

// Recorder appends a pipeline event; satisfied by eventlog.Logger.
type Recorder interface {
	Append(ev model.LogEvent) (string, error)
}

// Notifier formats and dispatches alert messages. Delivery failure is
// recorded as an event and never propagated: a broken mail server must not
// fail the pipeline.
type Notifier struct {
	transport Transport
	events    Recorder
	log       zerolog.Logger
}

// New creates a notifier over the given transport.
func New(transport Transport, events Recorder, log zerolog.Logger) *Notifier {
	return &Notifier{transport: transport, events: events, log: log}
}

// Notify attempts delivery once. No in-core retry.
func (n *Notifier) Notify(ctx context.Context, msg model.AlertMessage) {
	if len(msg.Recipients) == 0 {
		n.log.Warn().Str("subject", msg.Subject).Msg("no alert recipients configured, dropping alert")
		return
	}

	ev := model.LogEvent{
		Stage:   "alert",
		Status:  model.StatusSuccess,
		Metrics: map[string]float64{"recipients": float64(len(msg.Recipients))},
		Message: "alert delivered: " + msg.Subject,
	}
	if err := n.transport.Send(ctx, msg); err != nil {
		n.log.Error().Err(err).Str("subject", msg.Subject).Msg("alert delivery failed")
		ev.Status = model.StatusFailure
		ev.Message = fmt.Sprintf("alert delivery failed: %s: %v", msg.Subject, err)
	}
	if _, err := n.events.Append(ev); err != nil {
		n.log.Error().Err(err).Msg("could not record alert event")
	}
}

// BuildDQMessage renders the alert for a failed data-quality report: the
// subject carries severity and run id, the body enumerates failing rules
// with measured vs. threshold values.
func BuildDQMessage(report model.DQReport, alertCfg config.AlertConfig) model.AlertMessage {
	severity := model.SeverityWarning
	for _, res := range report.FailedRules() {
		if res.Severity == model.SeverityCritical {
			severity = model.SeverityCritical
			break
		}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Data-quality check failed for run %s.\n\nFailing rules:\n", report.RunID)
	for _, res := range report.FailedRules() {
		fmt.Fprintf(&body, "  - %s (%s, %s): measured %g, threshold %g\n",
			res.Rule, res.Kind, res.Severity, res.Measured, res.Threshold)
	}

	return model.AlertMessage{
		Severity:   severity,
		Subject:    fmt.Sprintf("[medallion] DQ %s: run %s", severity, report.RunID),
		Body:       body.String(),
		Recipients: alertCfg.Recipients,
	}
}
