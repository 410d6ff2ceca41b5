// Package config loads LifeTracker server configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names accepted by the transport key.
const (
	TransportNone     = "none"
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
)

const (
	// DefaultStateDir holds the database, lock file and exports.
	DefaultStateDir = "/var/lib/lifetracker"
	// DefaultAPIAddr is the HTTP listen address.
	DefaultAPIAddr = ":8080"
	// DefaultReminderCron runs the reminder sweep every minute.
	DefaultReminderCron = "* * * * *"
	// DefaultOutboxPoll is how often queued reminders are delivered.
	DefaultOutboxPoll = 5 * time.Second
)

// Config is the top-level LifeTracker configuration.
type Config struct {
	StateDir    string          `yaml:"state_dir"`
	DatabaseDSN string          `yaml:"database_dsn"`
	APIAddr     string          `yaml:"api_addr"`
	Transport   string          `yaml:"transport"`
	Timezone    string          `yaml:"timezone"`
	WhatsApp    WhatsAppConfig  `yaml:"whatsapp"`
	Twilio      TwilioConfig    `yaml:"twilio"`
	Reminders   RemindersConfig `yaml:"reminders"`
	Export      ExportConfig    `yaml:"export"`
	Share       ShareConfig     `yaml:"share"`
}

// WhatsAppConfig configures the whatsmeow transport.
type WhatsAppConfig struct {
	DSN         string `yaml:"dsn"`
	QROutput    string `yaml:"qr_output"`
	NumericCode bool   `yaml:"numeric_code"`
}

// TwilioConfig configures the Twilio transport.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	WebhookURL string `yaml:"webhook_url"` // public URL Twilio posts to; enables signature checks
}

// RemindersConfig configures reminder delivery.
type RemindersConfig struct {
	Cron       string        `yaml:"cron"`
	OutboxPoll time.Duration `yaml:"outbox_poll"`
}

// ExportConfig configures metrics export.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// ShareConfig configures the share action.
type ShareConfig struct {
	Link string `yaml:"link"`
}

// Load reads a YAML config file from path, overlays the environment and returns a
// validated Config. An empty path skips the file.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return parse(data, os.LookupEnv)
}

// Parse unmarshals YAML bytes into a validated Config without consulting the environment.
func Parse(data []byte) (*Config, error) {
	return parse(data, func(string) (string, bool) { return "", false })
}

func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnvError reports an environment variable whose value cannot be used.
type EnvError struct {
	Key   string
	Value string
	Err   error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("config: %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *EnvError) Unwrap() error { return e.Err }

// ErrInvalidBool is wrapped by EnvError for a flag that is not a recognized boolean.
var ErrInvalidBool = errors.New("want true/false, yes/no, on/off or 1/0")

// parseBool accepts the usual spellings of a flag, case-insensitively.
func parseBool(key, val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, &EnvError{Key: key, Value: val, Err: ErrInvalidBool}
}

// applyEnv overrides file values with any environment variables that are set.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.StateDir, "LIFETRACKER_STATE_DIR")
	set(&c.DatabaseDSN, "DATABASE_URL")
	set(&c.APIAddr, "API_ADDR")
	set(&c.Transport, "LIFETRACKER_TRANSPORT")
	set(&c.Timezone, "LIFETRACKER_TIMEZONE")
	set(&c.WhatsApp.DSN, "WHATSAPP_DB_DSN")
	set(&c.WhatsApp.QROutput, "WHATSAPP_QR_OUTPUT")
	set(&c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	set(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	set(&c.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	set(&c.Twilio.WebhookURL, "TWILIO_WEBHOOK_URL")
	set(&c.Reminders.Cron, "REMINDERS_CRON")
	set(&c.Export.Dir, "EXPORT_DIR")
	set(&c.Share.Link, "SHARE_LINK")
	if v, ok := lookup("WHATSAPP_NUMERIC_CODE"); ok && v != "" {
		b, err := parseBool("WHATSAPP_NUMERIC_CODE", v)
		if err != nil {
			return err
		}
		c.WhatsApp.NumericCode = b
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = filepath.Join(c.StateDir, "lifetracker.db")
	}
	if c.APIAddr == "" {
		c.APIAddr = DefaultAPIAddr
	}
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == "" {
		c.Transport = TransportNone
	}
	if c.WhatsApp.DSN == "" {
		c.WhatsApp.DSN = "file:" + filepath.Join(c.StateDir, "whatsmeow.db") + "?_foreign_keys=on"
	}
	if c.Reminders.Cron == "" {
		c.Reminders.Cron = DefaultReminderCron
	}
	if c.Reminders.OutboxPoll <= 0 {
		c.Reminders.OutboxPoll = DefaultOutboxPoll
	}
	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(c.StateDir, "exports")
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Transport {
	case TransportNone, TransportWhatsApp:
	case TransportTwilio:
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
			errs = append(errs, "twilio.account_sid and twilio.auth_token are required for the twilio transport")
		}
		if c.Twilio.FromNumber == "" {
			errs = append(errs, "twilio.from_number is required for the twilio transport")
		}
	default:
		errs = append(errs, fmt.Sprintf("transport must be one of none, whatsapp, twilio (got %q)", c.Transport))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is invalid", c.Timezone))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns the configured time zone, or time.Local when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
