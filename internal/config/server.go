package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerConfig holds the standalone server settings read from the environment.
type ServerConfig struct {
	ListenAddr     string   `env:"BATTLESHIP_LISTEN_ADDR" envDefault:":8080"`
	HTTPAddr       string   `env:"BATTLESHIP_HTTP_ADDR" envDefault:":8081"`
	GameConfigPath string   `env:"BATTLESHIP_GAME_CONFIG" envDefault:"data/game_config.json"`
	JWTSecret      string   `env:"BATTLESHIP_JWT_SECRET,required"`
	AllowedOrigins []string `env:"BATTLESHIP_ALLOWED_ORIGINS" envSeparator:","`
	BotIdentities  string   `env:"BATTLESHIP_BOT_IDENTITIES" envDefault:"data/bot_identities.json"`
	BotsEnabled    bool     `env:"BATTLESHIP_BOTS_ENABLED" envDefault:"true"`

	DatabaseURL string `env:"DATABASE_URL"`

	PaymentBaseURL string `env:"PAYMENT_BASE_URL"`
	PaymentToken   string `env:"PAYMENT_TOKEN"`
	WebhookToken   string `env:"WEBHOOK_TOKEN"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	RetryIntervalSeconds int     `env:"SETTLEMENT_RETRY_SECONDS" envDefault:"60"`
	MessagesPerSecond    float64 `env:"WS_MESSAGES_PER_SECOND" envDefault:"10"`
	MessageBurst         int     `env:"WS_MESSAGE_BURST" envDefault:"20"`
}

// LoadServerConfig loads an optional .env file and parses the environment.
func LoadServerConfig(files ...string) (*ServerConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(files...)

	var c ServerConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}
