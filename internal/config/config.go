// Package config loads service configuration from an optional offer.yaml,
// a .env file and OFFER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// OFFER_WEBHOOK_URL for webhook.url.
const EnvPrefix = "OFFER"

// Config holds everything the server needs at start-up.
type Config struct {
	Addr            string `mapstructure:"addr"`
	DBPath          string `mapstructure:"db_path"`
	DevMode         bool   `mapstructure:"dev_mode"`
	BaseURL         string `mapstructure:"base_url"`
	AdminPassphrase string `mapstructure:"admin_passphrase"`
	LogoURL         string `mapstructure:"logo_url"`

	Webhook WebhookConfig `mapstructure:"webhook"`
	Places  PlacesConfig  `mapstructure:"places"`
	QR      QRConfig      `mapstructure:"qr"`
	Draft   DraftConfig   `mapstructure:"draft"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Email   EmailConfig   `mapstructure:"email"`
	Passkey PasskeyConfig `mapstructure:"passkey"`
	Forms   FormsConfig   `mapstructure:"forms"`
}

// WebhookConfig configures offer delivery. An empty URL runs in demo mode.
type WebhookConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	DemoDelay time.Duration `mapstructure:"demo_delay"`
}

// PlacesConfig configures address autocomplete.
type PlacesConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Country string `mapstructure:"country"`
}

// QRConfig configures the QR image service.
type QRConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// DraftConfig selects the draft store and its timings.
type DraftConfig struct {
	Backend  string        `mapstructure:"backend"`
	Debounce time.Duration `mapstructure:"debounce"`
	Window   time.Duration `mapstructure:"window"`
}

// RedisConfig configures the redis draft backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BlobConfig configures S3-compatible image storage. Uploads above
// InlineLimit bytes require Bucket to be set.
type BlobConfig struct {
	Bucket      string `mapstructure:"bucket"`
	Region      string `mapstructure:"region"`
	Endpoint    string `mapstructure:"endpoint"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	PublicURL   string `mapstructure:"public_url"`
	InlineLimit int    `mapstructure:"inline_limit"`
}

// EmailConfig selects the agent notification sender.
type EmailConfig struct {
	Provider  string     `mapstructure:"provider"`
	From      string     `mapstructure:"from"`
	SMTP      SMTPConfig `mapstructure:"smtp"`
	SESRegion string     `mapstructure:"ses_region"`
}

// SMTPConfig holds SMTP credentials.
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

// PasskeyConfig holds the WebAuthn relying party.
type PasskeyConfig struct {
	RPID      string   `mapstructure:"rp_id"`
	RPOrigins []string `mapstructure:"rp_origins"`
}

// FormsConfig controls in-memory form sessions.
type FormsConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

var defaults = map[string]any{
	"addr":             ":8080",
	"db_path":          "",
	"dev_mode":         false,
	"base_url":         "http://localhost:8080",
	"admin_passphrase": "",
	"logo_url":         "https://prdburleighheads.com.au/wp-content/uploads/2025/01/PRD-B.T-LAND-RED-PNG.png",

	"webhook.url":        "",
	"webhook.timeout":    "15s",
	"webhook.demo_delay": "1s",

	"places.api_key": "",
	"places.country": "au",

	"qr.base_url": "https://api.qrserver.com",

	"draft.backend":  "sqlite",
	"draft.debounce": "3s",
	"draft.window":   "24h",

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"blob.bucket":       "",
	"blob.region":       "us-east-1",
	"blob.endpoint":     "",
	"blob.access_key":   "",
	"blob.secret_key":   "",
	"blob.public_url":   "",
	"blob.inline_limit": 700 * 1024,

	"email.provider":   "",
	"email.from":       "",
	"email.smtp.host":  "",
	"email.smtp.port":  "587",
	"email.smtp.user":  "",
	"email.smtp.pass":  "",
	"email.ses_region": "us-east-1",

	"passkey.rp_id":      "localhost",
	"passkey.rp_origins": []string{"http://localhost:8080"},

	"forms.idle_timeout": "2h",
}

// Load reads configuration. path names an explicit YAML file; when empty,
// offer.yaml is looked up in the working directory and ~/.config/offer.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("offer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "offer"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Draft.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("draft.backend must be sqlite or redis, got %q", c.Draft.Backend)
	}
	if c.Draft.Debounce <= 0 {
		return fmt.Errorf("draft.debounce must be positive")
	}
	if c.Draft.Window <= 0 {
		return fmt.Errorf("draft.window must be positive")
	}

	switch c.Email.Provider {
	case "", "smtp", "ses":
	default:
		return fmt.Errorf("email.provider must be smtp or ses, got %q", c.Email.Provider)
	}
	if c.Email.Provider == "smtp" && c.Email.SMTP.Host == "" {
		return fmt.Errorf("email.smtp.host is required for the smtp provider")
	}

	if c.Blob.InlineLimit < 0 {
		return fmt.Errorf("blob.inline_limit must not be negative")
	}

	return nil
}

// loadEnvFile loads path into the process environment when it exists.
// Variables already set are left alone.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
