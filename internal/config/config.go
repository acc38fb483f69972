package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config centraliza la configuración del servicio.
type Config struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"1.0.0"`
	HTTPPort    string `env:"PORT" envDefault:"3010"`
	APIPrefix   string `env:"API_PREFIX" envDefault:"/internal"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`

	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"Vendorica <noreply@vendorica.com>"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Vendorica"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ResetRequestsPerHour   int           `env:"RESET_REQUESTS_PER_HOUR" envDefault:"5"`
	AuthRateLimitPerMinute int           `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.APIPrefix = "/" + strings.Trim(cfg.APIPrefix, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// EmailConfigured indica si hay algun proveedor de email utilizable.
func (c *Config) EmailConfigured() bool {
	return strings.HasPrefix(c.ResendAPIKey, "re_") || strings.TrimSpace(c.SMTPHost) != ""
}

// MissingKeys lista las claves recomendadas que no estan configuradas.
func (c *Config) MissingKeys() []string {
	var missing []string
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if !c.EmailConfigured() {
		missing = append(missing, "RESEND_API_KEY")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	return missing
}
