package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/export"
)

var ErrReceiptUnavailable = errors.New("Receipt is only available for completed payments")

// Receipt renders a completed order of the caller as a PDF.
func (s *Service) Receipt(ctx context.Context, userID uuid.UUID, orderReference string) (*export.File, error) {
	txn, err := s.GetPayment(ctx, userID, orderReference)
	if err != nil {
		return nil, err
	}
	if txn.Status != StatusCompleted {
		return nil, ErrReceiptUnavailable
	}
	return export.NewService().Export(receiptTable(txn), export.FormatPDF, "receipt-"+txn.OrderReference)
}

func receiptTable(txn *Transaction) *export.ExportData {
	rows := [][]interface{}{
		{"Order", txn.OrderReference},
		{"Package", txn.ProductID},
		{"Credits", txn.CreditsAdded},
		{"Amount", fmt.Sprintf("%.2f %s", txn.Amount, txn.Currency)},
		{"Payment system", txn.PaymentSystem},
		{"Paid at", txn.UpdatedAt.Format("2006-01-02 15:04")},
	}

	data := export.NewTable("NeuroDecor payment receipt", []string{"Field", "Value"}, rows)
	data.Description = "Thank you for your purchase."
	data.Style.AlternateRows = false
	return data
}
