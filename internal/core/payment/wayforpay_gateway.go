package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	wayForPayPayURL = "https://secure.wayforpay.com/pay"
	wayForPayAPIURL = "https://api.wayforpay.com/api"
)

var ErrInvalidSignature = errors.New("Invalid signature")

// WayForPayGateway signs purchase forms and verifies service callbacks
// with HMAC-MD5 over ';'-joined fields.
type WayForPayGateway struct {
	merchantAccount string
	secretKey       string
	apiURL          string
	client          *http.Client
}

func NewWayForPayGateway(merchantAccount, secretKey string) *WayForPayGateway {
	return &WayForPayGateway{
		merchantAccount: merchantAccount,
		secretKey:       secretKey,
		apiURL:          wayForPayAPIURL,
		client:          &http.Client{Timeout: 15 * time.Second},
	}
}

// WithAPIURL points status checks at a different endpoint.
func (g *WayForPayGateway) WithAPIURL(url string) *WayForPayGateway {
	g.apiURL = url
	return g
}

func (g *WayForPayGateway) Name() string {
	return "WayForPay"
}

func (g *WayForPayGateway) Configured() bool {
	return g.merchantAccount != "" && g.secretKey != ""
}

func (g *WayForPayGateway) AutoApprove() bool {
	return false
}

func (g *WayForPayGateway) CheckoutForm(order *Order) (*CheckoutForm, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	price := strconv.Itoa(order.Product.Price)
	orderDate := order.Date.Unix()
	signature := g.sign(
		g.merchantAccount,
		order.Domain,
		order.Reference,
		strconv.FormatInt(orderDate, 10),
		price,
		order.Currency,
		order.Product.Name,
		"1",
		price,
	)

	return &CheckoutForm{
		MerchantAccount:    g.merchantAccount,
		MerchantAuthType:   "Simple",
		MerchantDomainName: order.Domain,
		OrderReference:     order.Reference,
		OrderDate:          orderDate,
		Amount:             float64(order.Product.Price),
		Currency:           order.Currency,
		ProductName:        []string{order.Product.Name},
		ProductCount:       []int{1},
		ProductPrice:       []float64{float64(order.Product.Price)},
		ServiceURL:         order.ServiceURL,
		MerchantSignature:  signature,
		PaymentURL:         wayForPayPayURL,
	}, nil
}

func (g *WayForPayGateway) RequiresSignature() bool {
	return true
}

func (g *WayForPayGateway) VerifyCallback(cb *Callback) error {
	expected := g.sign(
		cb.MerchantAccount,
		cb.OrderReference,
		cb.Amount,
		cb.Currency,
		cb.AuthCode,
		cb.CardPan,
		cb.TransactionStatus,
		cb.ReasonCode,
	)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(cb.MerchantSignature))) {
		return ErrInvalidSignature
	}
	return nil
}

func (g *WayForPayGateway) Acknowledge(orderReference string, now time.Time) *Ack {
	ts := now.Unix()
	return &Ack{
		OrderReference: orderReference,
		Status:         "accept",
		Time:           ts,
		Signature:      g.sign(orderReference, "accept", strconv.FormatInt(ts, 10)),
	}
}

// CheckStatus calls the CHECK_STATUS API and returns transactionStatus.
func (g *WayForPayGateway) CheckStatus(ctx context.Context, orderReference string) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]interface{}{
		"transactionType":   "CHECK_STATUS",
		"merchantAccount":   g.merchantAccount,
		"orderReference":    orderReference,
		"merchantSignature": g.sign(g.merchantAccount, orderReference),
		"apiVersion":        1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal status request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call WayForPay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read WayForPay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("WayForPay API error: %s - %s", resp.Status, string(body))
	}

	result := gjson.ParseBytes(body)
	status := result.Get("transactionStatus").String()
	if status == "" {
		return "", fmt.Errorf("WayForPay status response missing transactionStatus (reason %s: %s)",
			result.Get("reasonCode").String(), result.Get("reason").String())
	}
	return status, nil
}

func (g *WayForPayGateway) sign(parts ...string) string {
	return hmacMD5(g.secretKey, strings.Join(parts, ";"))
}

func hmacMD5(key, data string) string {
	mac := hmac.New(md5.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
