package payment

import (
	"context"
	"time"
)

// Gateway defines the interface for payment processing.
// WayForPay is the real processor; the demo gateway approves instantly.
type Gateway interface {
	// Name returns the gateway provider name stored on transactions
	Name() string

	// Configured reports whether merchant credentials are present
	Configured() bool

	// AutoApprove is true when orders should be approved without a callback
	AutoApprove() bool

	// CheckoutForm builds the signed purchase form for an order
	CheckoutForm(order *Order) (*CheckoutForm, error)

	// RequiresSignature is true when unsigned callbacks must be rejected
	RequiresSignature() bool

	// VerifyCallback checks the signature of a service callback
	VerifyCallback(cb *Callback) error

	// Acknowledge builds the signed response the gateway expects
	Acknowledge(orderReference string, now time.Time) *Ack

	// CheckStatus asks the gateway for the current transaction status
	CheckStatus(ctx context.Context, orderReference string) (string, error)
}

// Order represents an order that needs payment
type Order struct {
	Reference  string
	Product    Product
	Currency   string
	Date       time.Time
	Domain     string
	ServiceURL string
}

// CheckoutForm is posted by the browser to the gateway's purchase page.
type CheckoutForm struct {
	MerchantAccount    string    `json:"merchantAccount"`
	MerchantAuthType   string    `json:"merchantAuthType"`
	MerchantDomainName string    `json:"merchantDomainName"`
	OrderReference     string    `json:"orderReference"`
	OrderDate          int64     `json:"orderDate"`
	Amount             float64   `json:"amount"`
	Currency           string    `json:"currency"`
	ProductName        []string  `json:"productName"`
	ProductCount       []int     `json:"productCount"`
	ProductPrice       []float64 `json:"productPrice"`
	ServiceURL         string    `json:"serviceUrl"`
	MerchantSignature  string    `json:"merchantSignature"`
	PaymentURL         string    `json:"paymentUrl,omitempty"`
	Demo               bool      `json:"demo,omitempty"`
	Status             string    `json:"status,omitempty"`
}

// Callback is the subset of the gateway's service callback we act on.
// Raw keeps the full document for storage.
type Callback struct {
	MerchantAccount   string
	OrderReference    string
	MerchantSignature string
	Amount            string
	Currency          string
	AuthCode          string
	CardPan           string
	TransactionStatus string
	ReasonCode        string
	Email             string
	Raw               []byte
}

// Ack is the body returned to the gateway after an approved callback.
type Ack struct {
	OrderReference string `json:"orderReference"`
	Status         string `json:"status"`
	Time           int64  `json:"time"`
	Signature      string `json:"signature"`
}

// Gateway transaction statuses as reported by WayForPay.
const (
	GatewayApproved     = "Approved"
	GatewayDeclined     = "Declined"
	GatewayExpired      = "Expired"
	GatewayRefunded     = "Refunded"
	GatewayInProcessing = "InProcessing"
	GatewayPending      = "Pending"
)
