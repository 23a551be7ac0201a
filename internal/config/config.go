package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DBDriver    string // postgres / sqlite
	DatabaseURL string // DSN（空ならPOSTGRES_*から組み立てる）

	JWTSecret      string
	AccessTokenTTL time.Duration

	RedisAddr    string   // 空ならリセットコードはDBに保存
	KafkaBrokers []string // 空なら請求書通知はログ出力のみ
	InvoiceTopic string
	ResetTopic   string

	CommissionRate decimal.Decimal // 手数料率（0.10 = 10%）
	MaxStrikes     int             // この回数で利用停止
	ResetCodeTTL   time.Duration
	RateLimitRPS   float64 // /auth 系のレート制限

	OTLPEndpoint string // 空ならトレースはエクスポートしない
	ServiceName  string

	GoEnv    string // dev/prod
	LogLevel string
}

// Loadは環境変数（.envがあれば先に読む）
func Load() (Config, error) {
	_ = godotenv.Load()

	ttl, err := durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	resetTTL, err := durationEnv("RESET_CODE_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	maxStrikes, err := intEnv("MAX_STRIKES", 3)
	if err != nil {
		return Config{}, err
	}
	rps, err := floatEnv("RATE_LIMIT_RPS", 5)
	if err != nil {
		return Config{}, err
	}
	commission, err := decimal.NewFromString(getenv("COMMISSION_RATE", "0.10"))
	if err != nil {
		return Config{}, fmt.Errorf("COMMISSION_RATE must be decimal: %w", err)
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DBDriver:    getenv("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: ttl,

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		InvoiceTopic: getenv("INVOICE_TOPIC", "invoice.requested"),
		ResetTopic:   getenv("PASSWORD_RESET_TOPIC", "password-reset.requested"),

		CommissionRate: commission,
		MaxStrikes:     maxStrikes,
		ResetCodeTTL:   resetTTL,
		RateLimitRPS:   rps,

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getenv("SERVICE_NAME", "lotmarket-api"),

		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" && cfg.DBDriver == "postgres" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getenv("POSTGRES_HOST", "localhost"),
			getenv("POSTGRES_PORT", "5432"),
			getenv("POSTGRES_USER", "postgres"),
			getenv("POSTGRES_PASSWORD", "postgres"),
			getenv("POSTGRES_DB", "lotmarket"),
			getenv("POSTGRES_SSLMODE", "disable"),
		)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.GoEnv == "prod" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in prod")
	}
	if c.CommissionRate.IsNegative() || c.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("COMMISSION_RATE must be in [0, 1)")
	}
	if c.MaxStrikes < 1 {
		return fmt.Errorf("MAX_STRIKES must be >= 1")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be > 0")
	}
	return nil
}

// ":8080" 形式のアドレス
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
