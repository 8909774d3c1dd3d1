package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	DiscordToken     string `env:"DISCORD_TOKEN"`
	ApplicationID    string `env:"DISCORD_APPLICATION_ID" validate:"numeric"`
	DiscordPublicKey string `env:"DISCORD_PUBLIC_KEY" validate:"hexadecimal,len=64"`
	GuildID          string `env:"GUILD_ID" validate:"numeric"`

	AirtableAPIKey    string  `env:"AIRTABLE_API_KEY"`
	AirtableBaseID    string  `env:"AIRTABLE_BASE_ID"`
	AirtableRateLimit float64 `env:"AIRTABLE_RATE_LIMIT" validate:"gt=0"`
	SchemaFile        string  `env:"SCHEMA_FILE"`
	DefaultEventYear  string  `env:"DEFAULT_EVENT_YEAR" validate:"len=4,numeric"`

	HTTPAddr          string        `env:"HTTP_ADDR" validate:"hostname_port"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" validate:"gt=0"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" validate:"gt=0"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	VerificationLogChannel string     `env:"VERIFICATION_LOG_CHANNEL" validate:"required"`
	LogLevel               slog.Level `env:"LOG_LEVEL"`

	// Optional audit sinks. Each is enabled only when fully configured.
	TelegramToken            string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatIDs          []int64 `env:"TELEGRAM_ADMIN_CHAT_IDS" validate:"required_with=TelegramToken"`
	GoogleServiceAccountJSON string  `env:"GOOGLE_SERVICE_ACCOUNT_JSON" validate:"required_with=SpreadsheetID"`
	SpreadsheetID            string  `env:"GOOGLE_SHEETS_SPREADSHEET_ID" validate:"required_with=GoogleServiceAccountJSON"`

	// PublicKey is DiscordPublicKey decoded.
	PublicKey ed25519.PublicKey `validate:"-"`
}

func (c Config) TelegramEnabled() bool { return c.TelegramToken != "" }

func (c Config) SheetsEnabled() bool { return c.SpreadsheetID != "" }

func FromEnv() (Config, error) {
	var c Config
	c.DiscordToken = env("DISCORD_TOKEN")
	c.ApplicationID = env("DISCORD_APPLICATION_ID")
	c.DiscordPublicKey = strings.ToLower(env("DISCORD_PUBLIC_KEY"))
	c.GuildID = env("GUILD_ID")
	c.AirtableAPIKey = env("AIRTABLE_API_KEY")
	c.AirtableBaseID = env("AIRTABLE_BASE_ID")

	for _, req := range []struct{ name, val string }{
		{"DISCORD_TOKEN", c.DiscordToken},
		{"DISCORD_APPLICATION_ID", c.ApplicationID},
		{"DISCORD_PUBLIC_KEY", c.DiscordPublicKey},
		{"GUILD_ID", c.GuildID},
		{"AIRTABLE_API_KEY", c.AirtableAPIKey},
		{"AIRTABLE_BASE_ID", c.AirtableBaseID},
	} {
		if req.val == "" {
			return c, fmt.Errorf("%s is empty", req.name)
		}
	}

	c.SchemaFile = env("SCHEMA_FILE")
	c.DefaultEventYear = envOr("DEFAULT_EVENT_YEAR", "2025")
	c.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	c.VerificationLogChannel = envOr("VERIFICATION_LOG_CHANNEL", "verification-logs")

	var err error
	if c.AirtableRateLimit, err = strconv.ParseFloat(envOr("AIRTABLE_RATE_LIMIT", "5"), 64); err != nil {
		return c, fmt.Errorf("AIRTABLE_RATE_LIMIT: %w", err)
	}
	if c.WorkerConcurrency, err = strconv.Atoi(envOr("WORKER_CONCURRENCY", "4")); err != nil {
		return c, fmt.Errorf("WORKER_CONCURRENCY: %w", err)
	}
	if c.HTTPTimeout, err = time.ParseDuration(envOr("HTTP_TIMEOUT", "15s")); err != nil {
		return c, fmt.Errorf("HTTP_TIMEOUT: %w", err)
	}
	if c.ShutdownTimeout, err = time.ParseDuration(envOr("SHUTDOWN_TIMEOUT", "2m")); err != nil {
		return c, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	if err := c.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return c, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	c.TelegramToken = env("TELEGRAM_BOT_TOKEN")
	c.TelegramChatIDs = parseChatIDs(os.Getenv("TELEGRAM_ADMIN_CHAT_IDS"))
	c.GoogleServiceAccountJSON = env("GOOGLE_SERVICE_ACCOUNT_JSON")
	c.SpreadsheetID = env("GOOGLE_SHEETS_SPREADSHEET_ID")

	if err := validate.Struct(c); err != nil {
		return c, describe(err)
	}
	key, err := hex.DecodeString(c.DiscordPublicKey)
	if err != nil {
		return c, fmt.Errorf("DISCORD_PUBLIC_KEY: %w", err)
	}
	c.PublicKey = ed25519.PublicKey(key)
	return c, nil
}

var validate = newValidator()

// newValidator reports fields by their variable name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required_with":
			msgs = append(msgs, fmt.Sprintf("%s is empty but required with %s", fe.Field(), envName(fe.Param())))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is empty", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s=%q fails %s", fe.Field(), fmt.Sprint(fe.Value()), strings.TrimSuffix(fe.Tag()+"="+fe.Param(), "=")))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// envName maps a struct field name used in a validator param to its variable.
func envName(field string) string {
	if f, ok := reflect.TypeOf(Config{}).FieldByName(field); ok {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
	}
	return field
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

// parseChatIDs reads a comma separated list. Entries that are not integers are
// skipped.
func parseChatIDs(raw string) []int64 {
	var ids []int64
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ids
	}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, v)
	}
	return ids
}
