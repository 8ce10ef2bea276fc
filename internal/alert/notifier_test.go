package alert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"medallion-pipeline/internal/config"
	"medallion-pipeline/internal/model"
)

type fakeTransport struct {
	sent []model.AlertMessage
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg model.AlertMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRecorder struct {
	events []model.LogEvent
}

func (f *fakeRecorder) Append(ev model.LogEvent) (string, error) {
	f.events = append(f.events, ev)
	return "", nil
}

func TestNotify(t *testing.T) {
	msg := model.AlertMessage{
		Severity:   model.SeverityCritical,
		Subject:    "subject",
		Body:       "body",
		Recipients: []string{"ops@example.com"},
	}

	t.Run("delivery is recorded as success event", func(t *testing.T) {
		transport := &fakeTransport{}
		events := &fakeRecorder{}
		New(transport, events, zerolog.Nop()).Notify(context.Background(), msg)

		if len(transport.sent) != 1 {
			t.Fatalf("sent %d messages", len(transport.sent))
		}
		if len(events.events) != 1 || events.events[0].Status != model.StatusSuccess {
			t.Errorf("events = %+v", events.events)
		}
	})

	t.Run("delivery failure is logged, never fatal", func(t *testing.T) {
		transport := &fakeTransport{err: errors.New("connection refused")}
		events := &fakeRecorder{}
		// Notify has no error return by design; the assertion is the event.
		New(transport, events, zerolog.Nop()).Notify(context.Background(), msg)

		if len(events.events) != 1 {
			t.Fatalf("events = %+v", events.events)
		}
		ev := events.events[0]
		if ev.Status != model.StatusFailure || !strings.Contains(ev.Message, "connection refused") {
			t.Errorf("event = %+v", ev)
		}
	})

	t.Run("no recipients drops the alert silently", func(t *testing.T) {
		transport := &fakeTransport{}
		events := &fakeRecorder{}
		none := msg
		none.Recipients = nil
		New(transport, events, zerolog.Nop()).Notify(context.Background(), none)

		if len(transport.sent) != 0 || len(events.events) != 0 {
			t.Errorf("sent=%d events=%d", len(transport.sent), len(events.events))
		}
	})
}

func TestBuildDQMessage(t *testing.T) {
	report := model.DQReport{
		RunID:  "20240315T103000Z",
		Passed: false,
		Results: []model.RuleResult{
			{Rule: "min_row_count", Kind: model.RuleCount, Severity: model.SeverityCritical, Measured: 7, Threshold: 8, Passed: false},
			{Rule: "website_url_null_ratio", Kind: model.RuleNullRatio, Severity: model.SeverityWarning, Measured: 0.5, Threshold: 0.2, Passed: false},
			{Rule: "latitude_in_range", Kind: model.RuleRange, Severity: model.SeverityWarning, Measured: 0, Threshold: 0, Passed: true},
		},
	}
	cfg := config.AlertConfig{Recipients: []string{"ops@example.com"}}

	msg := BuildDQMessage(report, cfg)

	if msg.Severity != model.SeverityCritical {
		t.Errorf("severity = %s", msg.Severity)
	}
	if !strings.Contains(msg.Subject, "critical") || !strings.Contains(msg.Subject, report.RunID) {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"min_row_count", "measured 7, threshold 8", "website_url_null_ratio"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if strings.Contains(msg.Body, "latitude_in_range") {
		t.Error("body lists a passing rule")
	}
	if len(msg.Recipients) != 1 {
		t.Errorf("recipients = %v", msg.Recipients)
	}

	t.Run("warning-only failures keep warning severity", func(t *testing.T) {
		warnOnly := report
		warnOnly.Results = report.Results[1:]
		msg := BuildDQMessage(warnOnly, cfg)
		if msg.Severity != model.SeverityWarning {
			t.Errorf("severity = %s", msg.Severity)
		}
	})
}
