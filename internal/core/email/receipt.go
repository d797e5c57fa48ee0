package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/payment"
)

// EmailLookup resolves a user's address when the gateway callback did not
// carry one.
type EmailLookup func(ctx context.Context, userID uuid.UUID) (string, error)

// ReceiptMailer sends purchase receipts after an order is credited.
type ReceiptMailer struct {
	service *Service
	lookup  EmailLookup
	appName string
}

func NewReceiptMailer(service *Service, lookup EmailLookup, appName string) *ReceiptMailer {
	if appName == "" {
		appName = "NeuroDecor"
	}
	return &ReceiptMailer{service: service, lookup: lookup, appName: appName}
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #2f3e46; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background: #f9f9f9; }
        .footer { padding: 10px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.AppName}}</h1>
        </div>
        <div class="content">
            <p>Дякуємо за покупку!</p>
            <p>Пакет: <strong>{{.Product}}</strong></p>
            <p>Сума: {{.Amount}} {{.Currency}}</p>
            <p>Нараховано кредитів: <strong>{{.Credits}}</strong></p>
            <p>Номер замовлення: {{.OrderReference}}</p>
        </div>
        <div class="footer">
            <p>{{.Date}}</p>
        </div>
    </div>
</body>
</html>`))

// SendPaymentReceipt implements payment.ReceiptSender.
func (m *ReceiptMailer) SendPaymentReceipt(ctx context.Context, txn *payment.Transaction, product payment.Product, to string) error {
	if !m.service.Enabled() {
		return nil
	}

	if to == "" && m.lookup != nil {
		addr, err := m.lookup(ctx, txn.UserID)
		if err != nil {
			return fmt.Errorf("failed to resolve receipt address: %w", err)
		}
		to = addr
	}
	if to == "" {
		return fmt.Errorf("no receipt address for user %s", txn.UserID)
	}

	name := product.Name
	if name == "" {
		name = txn.ProductID
	}

	var body bytes.Buffer
	err := receiptTemplate.Execute(&body, map[string]interface{}{
		"AppName":        m.appName,
		"Product":        name,
		"Amount":         fmt.Sprintf("%.2f", txn.Amount),
		"Currency":       txn.Currency,
		"Credits":        txn.CreditsAdded,
		"OrderReference": txn.OrderReference,
		"Date":           time.Now().Format("02.01.2006 15:04"),
	})
	if err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}

	return m.service.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("%s: оплата підтверджена", m.appName),
		HTML:    body.String(),
		Text: fmt.Sprintf("Дякуємо за покупку! Пакет %s, нараховано кредитів: %d. Замовлення %s.",
			name, txn.CreditsAdded, txn.OrderReference),
	})
}
