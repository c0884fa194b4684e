package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	DatabaseDriver  string        `env:"DB_DRIVER" envDefault:"pgx"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBAutoMigrate   bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	JWTExpiresIn    time.Duration `env:"JWT_EXPIRES_IN" envDefault:"1h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	RawAllowOrigins string        `env:"ALLOW_ORIGINS" envDefault:"*"`
	AllowOrigins    []string      `env:"-"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	LogstashTCPAddr string        `env:"LOGSTASH_TCP_ADDR"`

	VerificationCodeTTL    time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
	VerificationCodeLength int           `env:"VERIFICATION_CODE_LENGTH" envDefault:"6"`
	PasswordResetTTL       time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"15m"`
	PasswordMinLength      int           `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	FrontendResetURL       string        `env:"FRONTEND_RESET_URL" envDefault:"http://127.0.0.1:5500/frontend/restablecer.html"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	MailFromName string `env:"MAIL_FROM_NAME" envDefault:"Quantiva"`
}

var validDrivers = map[string]bool{"pgx": true, "postgres": true}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowOrigins = splitAndTrim(cfg.RawAllowOrigins)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !validDrivers[c.DatabaseDriver] {
		return fmt.Errorf("invalid DB_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.VerificationCodeTTL <= 0 || c.PasswordResetTTL <= 0 {
		return errors.New("code and reset ttl must be positive")
	}
	if c.VerificationCodeLength <= 0 {
		return errors.New("VERIFICATION_CODE_LENGTH must be positive")
	}
	if c.PasswordMinLength <= 0 {
		return errors.New("PASSWORD_MIN_LENGTH must be positive")
	}
	return nil
}

// MailEnabled reports whether enough SMTP settings are present to send mail.
func (c Config) MailEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != "" && strings.TrimSpace(c.SMTPFrom) != ""
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
