package payment

import (
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/config"
)

// NewGateway creates a payment gateway based on configuration
func NewGateway(cfg *config.Config) Gateway {
	switch cfg.PaymentMode {
	case "demo":
		log.Info().Msg("Using demo payment gateway")
		return NewDemoGateway()

	case "wayforpay":
		gw := NewWayForPayGateway(cfg.WayForPayMerchantAccount, cfg.WayForPaySecretKey)
		if !gw.Configured() {
			log.Warn().Msg("WayForPay credentials missing, payments will be rejected")
		} else {
			log.Info().Msg("Using WayForPay payment gateway")
		}
		return gw

	default:
		log.Warn().Str("mode", cfg.PaymentMode).Msg("Unknown payment mode, defaulting to WayForPay")
		return NewWayForPayGateway(cfg.WayForPayMerchantAccount, cfg.WayForPaySecretKey)
	}
}
