package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/sdmydbr9/EVMR-sub001/internal/config"
	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	"github.com/sdmydbr9/EVMR-sub001/internal/notifier"
)

type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailNotifier struct {
	sender Sender
	from   string
}

// NewNotifier builds the SMTP-backed notifier
func NewNotifier(cfg config.SMTPConfig) notifier.Notifier {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &emailNotifier{sender: dialer, from: cfg.From}
}

// NewNotifierWithSender allows injecting a sender in tests
func NewNotifierWithSender(sender Sender, from string) notifier.Notifier {
	return &emailNotifier{sender: sender, from: from}
}

func (n *emailNotifier) Approved(ctx context.Context, account *model.Account, credential string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour registration has been approved and your account is now active.",
		account.Name,
	)
	if credential != "" {
		body += fmt.Sprintf("\n\nYour unique ID is %s. Quote it when contacting support.", credential)
	}

	return n.send(ctx, account.Email, "Your registration has been approved", body)
}

func (n *emailNotifier) Rejected(ctx context.Context, account *model.Account, reason string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nWe are unable to approve your registration at this time.\n\nReason: %s",
		account.Name, reason,
	)

	return n.send(ctx, account.Email, "Your registration was not approved", body)
}

func (n *emailNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
