package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/metrics"
)

var (
	ErrInvalidProduct   = errors.New("Invalid product")
	ErrNotConfigured    = errors.New("Payment system not configured")
	ErrProcessingFailed = errors.New("Payment processing failed")
)

const callbackPath = "/api/payment-callback"

// AuditRecorder receives payment events.
type AuditRecorder interface {
	LogAction(ctx context.Context, userID, action, entityType, entityID string, metadata map[string]interface{}) error
}

// ReceiptSender is notified after an order has been credited.
type ReceiptSender interface {
	SendPaymentReceipt(ctx context.Context, txn *Transaction, product Product, email string) error
}

// CallbackResult tells the handler how to answer the gateway.
type CallbackResult struct {
	// Ack is set for approved orders; otherwise the handler replies with
	// a plain "Callback received".
	Ack    *Ack
	Status string
}

type Service struct {
	repo      Repository
	gateway   Gateway
	currency  string
	publicURL string
	domain    string
	audit     AuditRecorder
	receipts  ReceiptSender
	now       func() time.Time
}

type ServiceConfig struct {
	Currency  string
	PublicURL string
	Domain    string
}

func NewService(repo Repository, gateway Gateway, cfg ServiceConfig, audit AuditRecorder, receipts ReceiptSender) *Service {
	currency := cfg.Currency
	if currency == "" {
		currency = "UAH"
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		currency:  currency,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		domain:    cfg.Domain,
		audit:     audit,
		receipts:  receipts,
		now:       time.Now,
	}
}

// GatewayConfigured is used by the health endpoint.
func (s *Service) GatewayConfigured() bool {
	return s.gateway.Configured()
}

// CreatePayment records a pending order and returns the signed checkout form.
// host and baseURL come from the incoming request and are used when no
// public domain or URL is configured.
func (s *Service) CreatePayment(ctx context.Context, userID uuid.UUID, productID, host, baseURL string) (*CheckoutForm, error) {
	product, ok := FindProduct(productID)
	if !ok {
		return nil, ErrInvalidProduct
	}
	if !s.gateway.Configured() {
		return nil, ErrNotConfigured
	}

	now := s.now()
	order := &Order{
		Reference:  fmt.Sprintf("WFP-%s-%s-%d", product.ID, userID, now.UnixMilli()),
		Product:    product,
		Currency:   s.currency,
		Date:       now,
		Domain:     s.domain,
		ServiceURL: s.serviceURL(baseURL),
	}
	if order.Domain == "" {
		order.Domain = host
	}

	form, err := s.gateway.CheckoutForm(order)
	if err != nil {
		return nil, err
	}

	txn := &Transaction{
		UserID:         userID,
		OrderReference: order.Reference,
		ProductID:      product.ID,
		Amount:         float64(product.Price),
		Currency:       s.currency,
		CreditsAdded:   product.Credits,
		Status:         StatusPending,
		PaymentSystem:  s.gateway.Name(),
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_reference", order.Reference).
		Str("user_id", userID.String()).
		Str("product_id", product.ID).
		Msg("Pending transaction created")
	s.record(ctx, userID.String(), "payment.create", order.Reference, map[string]interface{}{
		"product_id": product.ID,
		"amount":     product.Price,
		"gateway":    s.gateway.Name(),
	})

	if s.gateway.AutoApprove() {
		payload, _ := json.Marshal(map[string]interface{}{
			"orderReference":    order.Reference,
			"transactionStatus": GatewayApproved,
			"amount":            product.Price,
			"currency":          s.currency,
			"demo":              true,
		})
		if _, err := s.approve(ctx, order.Reference, payload, ""); err != nil {
			return nil, err
		}
		form.Status = StatusCompleted
	}

	return form, nil
}

// HandleCallback processes a gateway service callback.
func (s *Service) HandleCallback(ctx context.Context, body []byte) (*CallbackResult, error) {
	cb, err := ParseCallback(body)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByReference(ctx, cb.OrderReference); err != nil {
		return nil, err
	}

	if cb.MerchantSignature == "" && s.gateway.RequiresSignature() {
		log.Warn().Str("order_reference", cb.OrderReference).Msg("Unsigned callback rejected")
		metrics.RecordPaymentCallback("invalid_signature")
		return nil, ErrInvalidSignature
	}
	if cb.MerchantSignature != "" {
		if err := s.gateway.VerifyCallback(cb); err != nil {
			log.Warn().Str("order_reference", cb.OrderReference).Msg("Callback signature mismatch")
			metrics.RecordPaymentCallback("invalid_signature")
			return nil, err
		}
	}

	if cb.TransactionStatus == GatewayApproved {
		ack, err := s.approve(ctx, cb.OrderReference, cb.Raw, cb.Email)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Ack: ack, Status: StatusCompleted}, nil
	}

	status := strings.ToLower(cb.TransactionStatus)
	if status == "" {
		status = "unknown"
	}
	if err := s.repo.UpdateStatus(ctx, cb.OrderReference, status, cb.Raw); err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	log.Info().Str("order_reference", cb.OrderReference).Str("status", status).Msg("Payment callback stored")
	metrics.RecordPaymentCallback(status)
	return &CallbackResult{Status: status}, nil
}

func (s *Service) approve(ctx context.Context, orderReference string, payload []byte, email string) (*Ack, error) {
	txn, credited, err := s.repo.CompleteAndCredit(ctx, orderReference, payload)
	if err != nil {
		log.Error().Err(err).Str("order_reference", orderReference).Msg("Payment processing failed")
		failure, _ := json.Marshal(map[string]string{"error": err.Error()})
		if uerr := s.repo.UpdateStatus(ctx, orderReference, StatusFailed, failure); uerr != nil {
			log.Error().Err(uerr).Str("order_reference", orderReference).Msg("Failed to mark transaction failed")
		}
		metrics.RecordPaymentCallback(StatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	if credited {
		log.Info().
			Str("order_reference", orderReference).
			Str("user_id", txn.UserID.String()).
			Int("credits", txn.CreditsAdded).
			Msg("Payment approved, credits added")
		metrics.RecordPaymentCallback("approved")
		s.record(ctx, txn.UserID.String(), "payment.approved", orderReference, map[string]interface{}{
			"credits_added": txn.CreditsAdded,
			"amount":        txn.Amount,
		})
		s.sendReceipt(txn, email)
	} else {
		log.Info().Str("order_reference", orderReference).Msg("Duplicate approval ignored")
		metrics.RecordPaymentCallback("duplicate")
	}

	return s.gateway.Acknowledge(orderReference, s.now()), nil
}

// ListPayments returns the caller's most recent transactions.
func (s *Service) ListPayments(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// GetPayment returns one of the caller's orders.
func (s *Service) GetPayment(ctx context.Context, userID uuid.UUID, orderReference string) (*Transaction, error) {
	txn, err := s.repo.GetByReference(ctx, orderReference)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return txn, nil
}

// ReconcileStale asks the gateway about pending orders older than ttl.
// Approved orders are credited, final statuses close the order. Orders the
// gateway could not be asked about stay pending. Returns how many orders
// were closed.
func (s *Service) ReconcileStale(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, s.now().Add(-ttl), 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale payments: %w", err)
	}

	closed := 0
	for _, txn := range stale {
		status, err := s.gateway.CheckStatus(ctx, txn.OrderReference)
		if err != nil {
			log.Warn().Err(err).Str("order_reference", txn.OrderReference).Msg("Status check failed, order stays pending")
			continue
		}

		switch status {
		case GatewayApproved:
			payload, _ := json.Marshal(map[string]string{"orderReference": txn.OrderReference, "transactionStatus": status, "source": "reconcile"})
			if _, err := s.approve(ctx, txn.OrderReference, payload, ""); err != nil {
				continue
			}
		case GatewayInProcessing, GatewayPending:
			continue
		default:
			next := strings.ToLower(status)
			if next == "" {
				next = StatusExpired
			}
			if err := s.repo.UpdateStatus(ctx, txn.OrderReference, next, nil); err != nil {
				log.Error().Err(err).Str("order_reference", txn.OrderReference).Msg("Failed to close stale order")
				continue
			}
		}
		closed++
	}

	if closed > 0 {
		log.Info().Int("closed", closed).Int("checked", len(stale)).Msg("Reconciled stale payments")
	}
	return closed, nil
}

func (s *Service) serviceURL(baseURL string) string {
	if s.publicURL != "" {
		return s.publicURL + callbackPath
	}
	return strings.TrimRight(baseURL, "/") + callbackPath
}

func (s *Service) sendReceipt(txn *Transaction, email string) {
	if s.receipts == nil {
		return
	}
	product, _ := FindProduct(txn.ProductID)
	cp := *txn
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.receipts.SendPaymentReceipt(ctx, &cp, product, email); err != nil {
			log.Warn().Err(err).Str("order_reference", cp.OrderReference).Msg("Failed to send receipt")
		}
	}()
}

func (s *Service) record(ctx context.Context, userID, action, orderReference string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, userID, action, "payment", orderReference, metadata); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
}
