package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const demoSecret = "demo-gateway"

// DemoGateway approves every order instantly. Used for local development
// and showcase deployments without merchant credentials.
type DemoGateway struct{}

func NewDemoGateway() *DemoGateway {
	return &DemoGateway{}
}

func (g *DemoGateway) Name() string {
	return "Demo"
}

func (g *DemoGateway) Configured() bool {
	return true
}

func (g *DemoGateway) AutoApprove() bool {
	return true
}

func (g *DemoGateway) CheckoutForm(order *Order) (*CheckoutForm, error) {
	log.Info().Str("order_reference", order.Reference).Msg("Demo payment created, approving immediately")

	return &CheckoutForm{
		MerchantAccount:    "demo",
		MerchantAuthType:   "Simple",
		MerchantDomainName: order.Domain,
		OrderReference:     order.Reference,
		OrderDate:          order.Date.Unix(),
		Amount:             float64(order.Product.Price),
		Currency:           order.Currency,
		ProductName:        []string{order.Product.Name},
		ProductCount:       []int{1},
		ProductPrice:       []float64{float64(order.Product.Price)},
		ServiceURL:         order.ServiceURL,
		MerchantSignature:  hmacMD5(demoSecret, order.Reference),
		Demo:               true,
	}, nil
}

func (g *DemoGateway) RequiresSignature() bool {
	return false
}

func (g *DemoGateway) VerifyCallback(cb *Callback) error {
	return nil
}

func (g *DemoGateway) Acknowledge(orderReference string, now time.Time) *Ack {
	ts := now.Unix()
	return &Ack{
		OrderReference: orderReference,
		Status:         "accept",
		Time:           ts,
		Signature:      hmacMD5(demoSecret, orderReference+";accept;"+strconv.FormatInt(ts, 10)),
	}
}

// CheckStatus reports Expired: a demo order still pending was never approved.
func (g *DemoGateway) CheckStatus(ctx context.Context, orderReference string) (string, error) {
	return GatewayExpired, nil
}
