package environment

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogDir      string

	FirebaseCredentials string
	FirebaseProjectID   string
	DBSource            string

	RabbitMQURL    string
	NoticeExchange string

	AIProvider   string
	OpenAIAPIKey string
	OpenAIModel  string

	PaymentSecret   string
	PaymentBaseURL  string
	PaymentExpiry   time.Duration
	DefaultTaxRate  float64
	TaxJurisdiction string
	PriceSourceURL  string
	SettlementAsset string
	StaticRate      float64
	UpsellEnabled   bool
	MaxErrors       int
	ETAMinutes      int
	VerificationTTL time.Duration
	AllowedOrigins  []string
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getenv("PORT", "8080"),
		Environment:         getenv("ENVIRONMENT", "development"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogDir:              os.Getenv("LOG_DIR"),
		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		DBSource:            os.Getenv("DB_SOURCE"),
		RabbitMQURL:         os.Getenv("RABBITMQ_URL"),
		NoticeExchange:      getenv("NOTICE_EXCHANGE", "notifications"),
		AIProvider:          getenv("AI_PROVIDER", "keyword"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         os.Getenv("OPENAI_MODEL"),
		PaymentSecret:       os.Getenv("PAYMENT_SECRET"),
		PaymentBaseURL:      getenv("PAYMENT_BASE_URL", "http://localhost:8080"),
		TaxJurisdiction:     getenv("TAX_JURISDICTION", "US-NY-NYC"),
		PriceSourceURL:      os.Getenv("PRICE_SOURCE_URL"),
		SettlementAsset:     getenv("SETTLEMENT_ASSET", "usd-coin"),
		AllowedOrigins:      []string{getenv("ALLOWED_ORIGIN", "*")},
	}

	var err error
	if cfg.PaymentExpiry, err = durationEnv("PAYMENT_EXPIRY", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.VerificationTTL, err = durationEnv("VERIFICATION_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DefaultTaxRate, err = floatEnv("DEFAULT_TAX_RATE", 0.08875); err != nil {
		return nil, err
	}
	if cfg.StaticRate, err = floatEnv("STATIC_EXCHANGE_RATE", 1); err != nil {
		return nil, err
	}
	if cfg.UpsellEnabled, err = boolEnv("UPSELL_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.MaxErrors, err = intEnv("MAX_ERRORS", 3); err != nil {
		return nil, err
	}
	if cfg.ETAMinutes, err = intEnv("ETA_MINUTES", 20); err != nil {
		return nil, err
	}

	if cfg.PaymentSecret == "" {
		return nil, fmt.Errorf("PAYMENT_SECRET environment variable is required")
	}
	if cfg.FirebaseCredentials == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_BASE64 environment variable is required")
	}
	if cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID environment variable is required")
	}
	if cfg.DBSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}
	if cfg.AIProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
