package config

import (
	"crypto/rsa"

	"github.com/caarlos0/env/v6"
	"github.com/campuslink/notification-server/utils"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port               string         `env:"LISTEN_ADDR" envDefault:":3000"`
	Timeout            uint64         `env:"TIMEOUT" envDefault:"10"`
	ReadBufferSize     int            `env:"READ_BUFFER_SIZE" envDefault:"4096"`
	BodyLimit          int            `env:"BODY_LIMIT" envDefault:"1048576"`
	AppName            string         `env:"APP_NAME" envDefault:"CampusLink Notify"`
	IsProduction       bool           `env:"PRODUCTION"`
	Dsn                string         `env:"DSN"`
	RedisUrl           string         `env:"REDIS_URL"`
	CookieKey          string         `env:"COOKIE_KEY"`
	JwtPublicKey       string         `env:"JWT_PUBLIC_KEY"`
	JwtParsedPublicKey *rsa.PublicKey
	EmailConfig        EmailConfig    `envPrefix:"EMAIL_"`
	StreamConfig       StreamConfig   `envPrefix:"STREAM_"`
	DispatchConfig     DispatchConfig `envPrefix:"DISPATCH_"`
}

type EmailConfig struct {
	Enabled          bool   `env:"ENABLED" envDefault:"true"`
	From             string `env:"FROM"`
	QueueSize        int    `env:"QUEUE_SIZE" envDefault:"256"`
	SmtpHost         string `env:"SMTP_HOST"`
	SmtpPort         int    `env:"SMTP_PORT" envDefault:"587"`
	SmtpUser         string `env:"SMTP_USER"`
	SmtpPassword     string `env:"SMTP_PASSWORD"`
	SmtpSkipInsecure bool   `env:"SMTP_SKIP_INSECURE" envDefault:"false"`
}

type StreamConfig struct {
	PollIntervalSec      uint64 `env:"POLL_INTERVAL" envDefault:"15"`
	HeartbeatIntervalSec uint64 `env:"HEARTBEAT_INTERVAL" envDefault:"25"`
	BatchLimit           int    `env:"BATCH_LIMIT" envDefault:"64"`
}

type DispatchConfig struct {
	WriteTimeoutSec    uint64 `env:"WRITE_TIMEOUT" envDefault:"5"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

func Parse() (*Config, error) {
	cfg := Config{
		IsProduction: utils.ParseFlags(),
	}

	if err := env.Parse(&cfg); err != nil {
		log.Panic().Err(err).Msg("Failed to parse env config")
	}

	cfg.JwtParsedPublicKey = utils.ParsePublicKey(cfg.JwtPublicKey)

	return &cfg, nil
}
