package alert

import (
	"context"
	"fmt"
	"io"

	"github.com/wneessen/go-mail"

	"medallion-pipeline/internal/config"
	"medallion-pipeline/internal/model"
)

// SMTPTransport delivers alerts through a configured mail server.
type SMTPTransport struct {
	cfg config.SMTPConfig
}

// NewSMTPTransport creates a transport from config.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Send(ctx context.Context, msg model.AlertMessage) error {
	m := mail.NewMsg()
	if err := m.From(t.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.Recipients...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{mail.WithPort(t.cfg.Port)}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	if t.cfg.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

// WriterTransport renders messages to a writer instead of sending them.
// Used by the dq --dry-run flag to inspect alerts without a mail server.
type WriterTransport struct {
	W io.Writer
}

func (t *WriterTransport) Send(_ context.Context, msg model.AlertMessage) error {
	_, err := fmt.Fprintf(t.W, "To: %v\nSubject: %s\n\n%s\n", msg.Recipients, msg.Subject, msg.Body)
	return err
}
