package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// OpenAI configuration
	OpenAI OpenAIConfig

	// Google Play configuration
	GooglePlay GooglePlayConfig

	// App Store Connect configuration
	AppStore AppStoreConfig

	// Polling interval between ingestion passes
	PollInterval time.Duration

	// Preferred language for translations shown to the operator (BCP-47)
	PreferredLanguage string

	// Review database path
	DBPath string

	// Path to the app list (config/apps.json by default)
	AppsPath string

	// Environment name; "dev" switches logging to console output
	AppEnv string
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	// ChatID is the operator chat all review cards are sent to
	ChatID string
}

// OpenAIConfig contains AI provider configuration
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint for OpenAI-compatible providers
	BaseURL string
}

// GooglePlayConfig contains Google Play publisher API configuration
type GooglePlayConfig struct {
	KeyFile string
}

// AppStoreConfig contains App Store Connect API configuration
type AppStoreConfig struct {
	KeyID          string
	IssuerID       string
	PrivateKeyFile string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	pollMinutes := 30
	if val := os.Getenv("POLLING_INTERVAL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			pollMinutes = parsed
		}
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = filepath.Join("data", "reviews.db")
	}

	appsPath := os.Getenv("APPS_CONFIG_PATH")
	if appsPath == "" {
		appsPath = filepath.Join("config", "apps.json")
	}

	preferred := os.Getenv("PREFERRED_LANGUAGE")
	if preferred == "" {
		preferred = "en"
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o"
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
			ChatID:    os.Getenv("FEISHU_CHAT_ID"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   model,
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		GooglePlay: GooglePlayConfig{
			KeyFile: envDefault("GOOGLE_PLAY_KEY_FILE", filepath.Join("credentials", "service-account.json")),
		},
		AppStore: AppStoreConfig{
			KeyID:          os.Getenv("APP_STORE_KEY_ID"),
			IssuerID:       os.Getenv("APP_STORE_ISSUER_ID"),
			PrivateKeyFile: envDefault("APP_STORE_PRIVATE_KEY_FILE", filepath.Join("credentials", "AuthKey.p8")),
		},
		PollInterval:      time.Duration(pollMinutes) * time.Minute,
		PreferredLanguage: preferred,
		DBPath:            dbPath,
		AppsPath:          appsPath,
		AppEnv:            envDefault("APP_ENV", "prod"),
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Feishu.ChatID == "" {
		return &ConfigError{Field: "FEISHU_CHAT_ID", Message: "required"}
	}
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	return nil
}

// GooglePlayConfigured reports whether the service-account key file is
// present. A missing key only skips Google Play apps during a pass.
func (c *Config) GooglePlayConfigured() bool {
	_, err := os.Stat(c.GooglePlay.KeyFile)
	return err == nil
}

// AppStoreConfigured reports whether the App Store Connect credentials are
// complete.
func (c *Config) AppStoreConfigured() bool {
	if c.AppStore.KeyID == "" || c.AppStore.IssuerID == "" {
		return false
	}
	_, err := os.Stat(c.AppStore.PrivateKeyFile)
	return err == nil
}

// PreferredLanguageName returns the English display name of the preferred
// language ("en" -> "English"), falling back to the raw code.
func (c *Config) PreferredLanguageName() string {
	tag, err := language.Parse(c.PreferredLanguage)
	if err != nil {
		return c.PreferredLanguage
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return c.PreferredLanguage
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
