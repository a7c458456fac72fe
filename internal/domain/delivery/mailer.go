// Package delivery sends generated purchase orders to suppliers by email
// and schedules recurring sends. Both pieces are optional at wire-up; the
// conversion engine does not depend on them.
package delivery

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Mailer emails generated purchase orders as attachments.
type Mailer struct {
	client    *resend.Client
	fromEmail string
	logger    *slog.Logger
}

// NewMailer creates a mailer. With an empty API key the mailer is created
// but every send is skipped with a warning, matching a deployment that
// never configured email.
func NewMailer(apiKey, fromEmail string, logger *slog.Logger) *Mailer {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}
	if fromEmail == "" {
		fromEmail = "AutoOrder <orders@autoorder.app>"
	}

	return &Mailer{
		client:    client,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// Order describes one generated purchase order to deliver.
type Order struct {
	To          string
	Supplier    string
	DisplayName string
	FileName    string
	Workbook    []byte
	RowCount    int
}

// SendOrder emails one purchase order workbook as an attachment.
func (m *Mailer) SendOrder(ctx context.Context, order Order) error {
	if m.client == nil {
		m.logger.Warn("resend client not configured, skipping order email",
			slog.String("to", order.To))
		return nil
	}
	if order.To == "" {
		return fmt.Errorf("recipient email is required")
	}

	params := &resend.SendEmailRequest{
		From:    m.fromEmail,
		To:      []string{order.To},
		Subject: fmt.Sprintf("발주서 송부 - %s", order.DisplayName),
		Html:    orderEmailHTML(order),
		Attachments: []*resend.Attachment{
			{
				Content:  order.Workbook,
				Filename: order.DisplayName,
			},
		},
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send order email: %w", err)
	}

	m.logger.Info("order email sent",
		slog.String("to", order.To),
		slog.String("file", order.DisplayName),
		slog.String("message_id", sent.Id),
	)
	return nil
}

func orderEmailHTML(order Order) string {
	supplier := html.EscapeString(order.Supplier)
	if supplier == "" {
		supplier = "담당자"
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <p>%s님, 안녕하세요.</p>
  <p>발주서를 첨부와 같이 송부드립니다. 총 %d건의 주문이 포함되어 있습니다.</p>
  <p>확인 부탁드립니다.</p>
</body>
</html>`, supplier, order.RowCount)
}
