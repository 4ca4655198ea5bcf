package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Ledger    LedgerConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
	Kafka     KafkaConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LoggerConfig selects the minimum log level.
type LoggerConfig struct {
	Level string
}

// LedgerConfig tunes the in-process stock ledger.
type LedgerConfig struct {
	LockTimeout time.Duration
	TopProducts int
	Timezone    string
}

// Location loads the configured timezone.
func (c LedgerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	ManagerID     string
	// StaffIDs may run chat commands; empty allows every sender.
	StaffIDs []string
}

// IsStaff reports whether sender may run chat commands. The manager always may.
func (c WhatsAppConfig) IsStaff(sender string) bool {
	return len(c.StaffIDs) == 0 || sender == c.ManagerID || slices.Contains(c.StaffIDs, sender)
}

// Enabled reports whether any WhatsApp credential is set.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" || c.PhoneNumberID != "" || c.VerifyToken != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" || c.SpreadsheetID != "" }

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

func (c MongoDBConfig) Enabled() bool { return c.URI != "" }

// KafkaConfig holds the event stream and POS sales feed settings.
type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
	SalesTopic  string
	GroupID     string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		_ = godotenv.Load()
	}

	lockTimeout, err := time.ParseDuration(getenvWithDefault("LEDGER_LOCK_TIMEOUT", "250ms"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_LOCK_TIMEOUT: %w", err)
	}
	topProducts, err := strconv.Atoi(getenvWithDefault("DASHBOARD_TOP_PRODUCTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("DASHBOARD_TOP_PRODUCTS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Logger: LoggerConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Ledger: LedgerConfig{
			LockTimeout: lockTimeout,
			TopProducts: topProducts,
			Timezone:    getenvWithDefault("TIMEZONE", "UTC"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "5 0 * * *"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerID:     os.Getenv("WHATSAPP_MANAGER_ID"),
			StaffIDs:      splitList(os.Getenv("WHATSAPP_STAFF_IDS")),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "kitchenledger"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			EventsTopic: getenvWithDefault("KAFKA_EVENTS_TOPIC", "kitchen.ledger.events"),
			SalesTopic:  getenvWithDefault("KAFKA_SALES_TOPIC", "pos.orders"),
			GroupID:     getenvWithDefault("KAFKA_GROUP_ID", "kitchenledger"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated. Integrations are
// optional, but a partially configured one is an error.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Ledger.LockTimeout <= 0 {
		return errors.New("LEDGER_LOCK_TIMEOUT must be positive")
	}
	if c.Ledger.TopProducts <= 0 {
		return errors.New("DASHBOARD_TOP_PRODUCTS must be positive")
	}
	if _, err := c.Ledger.Location(); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Ledger.Timezone, err)
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.AccessToken == "":
			return errors.New("WHATSAPP_TOKEN must be provided")
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Sheets.Enabled() {
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if c.Kafka.Enabled() {
		if c.Kafka.EventsTopic == "" && c.Kafka.SalesTopic == "" {
			return errors.New("KAFKA_EVENTS_TOPIC or KAFKA_SALES_TOPIC must be provided")
		}
		if c.Kafka.SalesTopic != "" && c.Kafka.GroupID == "" {
			return errors.New("KAFKA_GROUP_ID must be provided")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
