package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           string        `envconfig:"PORT" default:"3000"`
	GinMode        string        `envconfig:"GIN_MODE" default:"debug"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	UploadDir      string        `envconfig:"UPLOAD_DIR" default:"uploads"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`

	// AwayAfter is the idle window before an online user is flipped to away.
	// Zero disables the transition.
	AwayAfter time.Duration `envconfig:"AWAY_AFTER" default:"5m"`

	RateLimit       int           `envconfig:"RATE_LIMIT" default:"120"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	StatusSweepInterval time.Duration `envconfig:"STATUS_SWEEP_INTERVAL" default:"10s"`
	StatusRetention     time.Duration `envconfig:"STATUS_RETENTION" default:"168h"`

	// Web Push is disabled when the VAPID keys are empty.
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	PushSubscriber  string `envconfig:"PUSH_SUBSCRIBER" default:"mailto:admin@duochat.local"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return cfg, nil
}
