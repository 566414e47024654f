package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Gateway names accepted in PAYMENT_GATEWAY
const (
	GatewayMoyasar  = "moyasar"
	GatewayMidtrans = "midtrans"
)

type Config struct {
	Port        string
	AppURL      string
	Env         string
	DatabaseURL string
	RedisURL    string

	KafkaBrokers string
	KafkaTopic   string

	PaymentGateway   string
	MoyasarBaseURL   string
	FirebaseCredPath string
	OpsAlertEmail    string
}

// LoadEnv loads a .env file when present. Missing files are not an error.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
}

// Load reads process configuration. Credentials are deliberately not part of
// Config, see Secret.
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		AppURL:           strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "booking.payment_status_changed"),
		PaymentGateway:   strings.ToLower(getEnv("PAYMENT_GATEWAY", GatewayMoyasar)),
		MoyasarBaseURL:   strings.TrimRight(getEnv("MOYASAR_BASE_URL", "https://api.moyasar.com"), "/"),
		FirebaseCredPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
		OpsAlertEmail:    os.Getenv("OPS_ALERT_EMAIL"),
	}
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Secret reads a credential from the environment at call time so that a
// rotated or removed key is picked up by the next request.
func Secret(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
