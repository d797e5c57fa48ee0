package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// DemoAPIKey is the placeholder shipped in .env.example; it means "no key".
const DemoAPIKey = "YOUR_API_KEY_HERE"

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	PublicURL   string
	StaticDir   string

	AllowedOrigins []string

	// Auth
	JWTSecret      string
	JWTExpiresIn   time.Duration
	GoogleClientID string
	AdminAPIKey    string
	AdminEmails    []string

	// Image generation
	ImageProvider    string // flux | openai | demo
	BFLAPIKey        string
	BFLAPIURL        string
	BFLPollInterval  time.Duration
	BFLMaxPolls      int
	OpenAIKey        string
	OpenAIImageModel string
	DemoDelay        time.Duration

	// Payments
	PaymentMode              string // wayforpay | demo
	WayForPayMerchantAccount string
	WayForPaySecretKey       string
	WayForPayDomain          string
	Currency                 string
	PendingPaymentTTL        time.Duration

	// Storage
	UploadProvider     string // local | s3 | cloudinary
	UploadDir          string
	UploadBaseURL      string
	AWSRegion          string
	AWSBucket          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
	CloudinaryURL      string

	// Rate limiting
	RedisURL       string
	TransformRPS   float64
	TransformBurst int

	// Background work
	WorkerConcurrency  int
	ExpirePaymentsCron string
	PruneJobsCron      string
	JobRetention       time.Duration
	RecoverJobsCron    string
	JobStallTimeout    time.Duration

	// Email
	EmailProvider string // brevo | resend | ""
	BrevoAPIKey   string
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using system environment variables")
	}

	cfg := &Config{
		Port:        os.Getenv("PORT"),
		Env:         os.Getenv("ENV"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		PublicURL:   strings.TrimRight(firstNonEmpty(os.Getenv("PUBLIC_URL"), os.Getenv("NGROK_URL")), "/"),
		StaticDir:   os.Getenv("STATIC_DIR"),

		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiresIn:   getDuration("JWT_EXPIRES_IN", 30*24*time.Hour),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		AdminAPIKey:    os.Getenv("ADMIN_API_KEY"),
		AdminEmails:    splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),

		ImageProvider:    os.Getenv("IMAGE_PROVIDER"),
		BFLAPIKey:        os.Getenv("BFL_API_KEY"),
		BFLAPIURL:        os.Getenv("BFL_API_URL"),
		BFLPollInterval:  getDuration("BFL_POLL_INTERVAL", 2*time.Second),
		BFLMaxPolls:      getInt("BFL_MAX_POLLS", 30),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIImageModel: os.Getenv("OPENAI_IMAGE_MODEL"),
		DemoDelay:        getDuration("DEMO_DELAY", 2*time.Second),

		PaymentMode:              os.Getenv("PAYMENT_MODE"),
		WayForPayMerchantAccount: os.Getenv("WAYFORPAY_MERCHANT_ACCOUNT"),
		WayForPaySecretKey:       os.Getenv("WAYFORPAY_MERCHANT_SECRET_KEY"),
		WayForPayDomain:          os.Getenv("WAYFORPAY_DOMAIN"),
		Currency:                 os.Getenv("CURRENCY"),
		PendingPaymentTTL:        getDuration("PENDING_PAYMENT_TTL", 24*time.Hour),

		UploadProvider:     os.Getenv("UPLOAD_PROVIDER"),
		UploadDir:          os.Getenv("UPLOAD_DIR"),
		UploadBaseURL:      os.Getenv("UPLOAD_BASE_URL"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSBucket:          os.Getenv("AWS_S3_BUCKET"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSEndpoint:        os.Getenv("AWS_S3_ENDPOINT"),
		CloudinaryURL:      os.Getenv("CLOUDINARY_URL"),

		RedisURL:       os.Getenv("REDIS_URL"),
		TransformRPS:   getFloat("TRANSFORM_RPS", 0.2),
		TransformBurst: getInt("TRANSFORM_BURST", 3),

		WorkerConcurrency:  getInt("WORKER_CONCURRENCY", 2),
		ExpirePaymentsCron: os.Getenv("EXPIRE_PAYMENTS_CRON"),
		PruneJobsCron:      os.Getenv("PRUNE_JOBS_CRON"),
		JobRetention:       getDuration("JOB_RETENTION", 7*24*time.Hour),
		RecoverJobsCron:    os.Getenv("RECOVER_JOBS_CRON"),
		JobStallTimeout:    getDuration("JOB_STALL_TIMEOUT", 15*time.Minute),

		EmailProvider: strings.ToLower(os.Getenv("EMAIL_PROVIDER")),
		BrevoAPIKey:   os.Getenv("BREVO_API_KEY"),
		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		EmailFrom:     os.Getenv("EMAIL_FROM"),
		EmailFromName: os.Getenv("EMAIL_FROM_NAME"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "3007"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.BFLAPIURL == "" {
		cfg.BFLAPIURL = "https://api.bfl.ai/v1/flux-kontext-pro"
	}
	if cfg.ImageProvider == "" {
		cfg.ImageProvider = "flux"
	}
	if cfg.OpenAIImageModel == "" {
		cfg.OpenAIImageModel = "gpt-image-1"
	}
	if cfg.PaymentMode == "" {
		cfg.PaymentMode = "wayforpay"
	}
	if cfg.Currency == "" {
		cfg.Currency = "UAH"
	}
	if cfg.UploadProvider == "" {
		cfg.UploadProvider = "local"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.ExpirePaymentsCron == "" {
		cfg.ExpirePaymentsCron = "*/15 * * * *"
	}
	if cfg.PruneJobsCron == "" {
		cfg.PruneJobsCron = "30 3 * * *"
	}
	if cfg.RecoverJobsCron == "" {
		cfg.RecoverJobsCron = "*/10 * * * *"
	}
	if cfg.EmailFromName == "" {
		cfg.EmailFromName = "NeuroDecor"
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set, using an insecure development secret")
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg
}

// FluxDemoMode reports whether no usable BFL key is configured.
func (c *Config) FluxDemoMode() bool {
	return c.BFLAPIKey == "" || c.BFLAPIKey == DemoAPIKey
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return def
	}
	return d
}

func getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid number, using default")
		return def
	}
	return f
}
