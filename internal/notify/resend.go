package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"storefront/internal/models"
)

const sandboxSender = "onboarding@resend.dev"

type ResendConfig struct {
	APIKey        string
	From          string
	VerifiedEmail string
	ReplyTo       string
}

type ResendNotifier struct {
	client *resend.Client
	cfg    ResendConfig
	logger *zap.Logger
}

func NewResendNotifier(cfg ResendConfig, logger *zap.Logger) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger.Named("email"),
	}
}

func (n *ResendNotifier) SendOrderConfirmation(ctx context.Context, order models.Order, customer models.User) error {
	html, err := render(confirmationTmpl, order, customer)
	if err != nil {
		return err
	}
	return n.send(ctx, customer.Email, "Order confirmed: "+order.OrderNumber, html)
}

func (n *ResendNotifier) SendOrderStatusUpdate(ctx context.Context, order models.Order, customer models.User) error {
	html, err := render(statusTmpl, order, customer)
	if err != nil {
		return err
	}
	return n.send(ctx, customer.Email, statusSubject(order), html)
}

func (n *ResendNotifier) send(ctx context.Context, to, subject, html string) error {
	recipient, redirected := Recipient(n.cfg.From, n.cfg.VerifiedEmail, to)
	if redirected {
		n.logger.Debug("sandbox sender, redirecting email", zap.String("intended", to), zap.String("recipient", recipient))
	}

	req := &resend.SendEmailRequest{
		From:    n.cfg.From,
		To:      []string{recipient},
		Subject: subject,
		Html:    html,
		ReplyTo: n.cfg.ReplyTo,
	}
	sent, err := n.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	n.logger.Info("email sent", zap.String("id", sent.Id), zap.String("subject", subject))
	return nil
}

// Recipient applies the sandbox rule: the provider's shared test sender may
// only deliver to the account's verified address.
func Recipient(from, verified, intended string) (string, bool) {
	if strings.Contains(from, sandboxSender) && verified != "" && !strings.EqualFold(verified, intended) {
		return verified, true
	}
	return intended, false
}
