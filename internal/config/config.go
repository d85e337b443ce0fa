package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PRICERADAR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	storeBackendEnv   = "STORE_BACKEND"
	logLevelEnv       = "LOG_LEVEL"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	smtpServerEnv     = "SMTP_SERVER"
	smtpPortEnv       = "SMTP_PORT"
	smtpFromEnv       = "SMTP_FROM"
	smtpPasswordEnv   = "SMTP_PASSWORD"
	alertEmailToEnv   = "ALERT_EMAIL_TO"
	otlpEndpointEnv   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	chromeBinEnv      = "CHROME_BIN"
)

// Site kinds understood by the adapter factory.
const (
	KindHTML    = "html"
	KindBrowser = "browser"
	KindJSON    = "json"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Store         StoreConfig        `yaml:"store"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Discovery     DiscoveryConfig    `yaml:"discovery"`
	Alerts        AlertsConfig       `yaml:"alerts"`
	Trust         TrustConfig        `yaml:"trust"`
	Notifications NotificationConfig `yaml:"notifications"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Signals       SignalsConfig      `yaml:"signals"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
	Browser       BrowserConfig      `yaml:"browser"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the monitor store backend: memory, sqlite, postgres or mysql.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// SchedulerConfig defines how often price monitors are checked.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return defaultLocation()
}

// defaultLocation falls back to UTC when the host has no zone database.
func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		slog.Warn("config: default timezone unavailable, using UTC", "timezone", defaultTimezone, "error", err)
		return time.UTC
	}
	return loc
}

// DiscoveryConfig tunes the fetch fan-out and aggregation.
type DiscoveryConfig struct {
	AdapterTimeout      time.Duration `yaml:"adapterTimeout"`
	FallbackThreshold   int           `yaml:"fallbackThreshold"`
	CacheTTL            time.Duration `yaml:"cacheTTL"`
	CacheSize           int           `yaml:"cacheSize"`
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	KeepAccessories     bool          `yaml:"keepAccessories"`
}

// AlertsConfig bounds monitor evaluation.
type AlertsConfig struct {
	Concurrency  int    `yaml:"concurrency"`
	DefaultOwner string `yaml:"defaultOwner"`
}

// TrustConfig provides static source priors.
type TrustConfig struct {
	Default        int            `yaml:"default"`
	Priors         map[string]int `yaml:"priors"`
	PriorsFile     string         `yaml:"priorsFile"`
	TrustedSellers []string       `yaml:"trustedSellers"`
}

// NotificationConfig encapsulates outbound channels. Channels lists the
// enabled ones by name: telegram, email, events.
type NotificationConfig struct {
	Channels []string       `yaml:"channels"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// EmailConfig describes the SMTP relay used for alert mail.
type EmailConfig struct {
	Server      string        `yaml:"server"`
	Port        int           `yaml:"port"`
	From        string        `yaml:"from"`
	Password    string        `yaml:"password"`
	To          []string      `yaml:"to"`
	PoolSize    int           `yaml:"poolSize"`
	SendTimeout time.Duration `yaml:"sendTimeout"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SignalsConfig points at the service reporting per-source return rates and complaints.
type SignalsConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig enables OTLP export when Endpoint is set.
type TelemetryConfig struct {
	ServiceName string            `yaml:"serviceName"`
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"headers"`
}

// BrowserConfig controls headless Chrome for browser-kind sites.
type BrowserConfig struct {
	ExecPath string        `yaml:"execPath"`
	Settle   time.Duration `yaml:"settle"`
}

// SiteConfig describes one retailer and how to read it: a selector table for
// html and browser sites, a field path table for json sites.
type SiteConfig struct {
	Name      string            `yaml:"name"`
	Kind      string            `yaml:"kind"`
	Fallback  bool              `yaml:"fallback"`
	SearchURL string            `yaml:"searchUrl"`
	BaseURL   string            `yaml:"baseUrl"`
	Proxy     string            `yaml:"proxy"`
	Timeout   time.Duration     `yaml:"timeout"`
	RateLimit float64           `yaml:"rateLimit"`
	Burst     int               `yaml:"burst"`
	Headers   map[string]string `yaml:"headers"`
	Selectors SelectorConfig    `yaml:"selectors"`
	Fields    FieldConfig       `yaml:"fields"`
	Options   map[string]string `yaml:"options"`
}

// SelectorConfig is a goquery selector table. Item scopes one listing; the
// rest are evaluated inside it. TitleAttr reads the title from an attribute
// instead of text.
type SelectorConfig struct {
	Item      string `yaml:"item"`
	Title     string `yaml:"title"`
	TitleAttr string `yaml:"titleAttr"`
	Price     string `yaml:"price"`
	Link      string `yaml:"link"`
	Image     string `yaml:"image"`
	Seller    string `yaml:"seller"`
	Rating    string `yaml:"rating"`
	WaitFor   string `yaml:"waitFor"`
}

// FieldConfig maps a JSON search API response onto listings. Items is the
// dotted path of the product array ("" when the body is the array); the rest
// are paths inside one product. A path may list alternatives separated by
// "|"; the first present one wins.
type FieldConfig struct {
	Items  string `yaml:"items"`
	Title  string `yaml:"title"`
	Price  string `yaml:"price"`
	Link   string `yaml:"link"`
	Image  string `yaml:"image"`
	Seller string `yaml:"seller"`
	Rating string `yaml:"rating"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			slog.Warn("config: falling back to defaults", "path", path, "error", err)
		} else if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			slog.Warn("config: cannot merge file, falling back to defaults", "path", path, "error", err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

// ReadFile parses a YAML config file without merging defaults.
func ReadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate reports configuration the application cannot start with.
func (c Config) Validate() error {
	seen := map[string]struct{}{}
	for _, site := range c.Sites {
		if strings.TrimSpace(site.Name) == "" {
			return fmt.Errorf("site with empty name")
		}
		if _, dup := seen[site.Name]; dup {
			return fmt.Errorf("site %s declared twice", site.Name)
		}
		seen[site.Name] = struct{}{}

		if !strings.Contains(site.SearchURL, "{query}") {
			return fmt.Errorf("site %s: searchUrl must contain {query}", site.Name)
		}
		switch site.Kind {
		case KindHTML, KindBrowser:
			if site.Selectors.Item == "" || site.Selectors.Title == "" || site.Selectors.Link == "" {
				return fmt.Errorf("site %s: item, title and link selectors are required", site.Name)
			}
		case KindJSON:
			if site.Fields.Title == "" || site.Fields.Price == "" || site.Fields.Link == "" {
				return fmt.Errorf("site %s: title, price and link fields are required", site.Name)
			}
		default:
			return fmt.Errorf("site %s: unknown kind %q", site.Name, site.Kind)
		}
		if site.Proxy != "" {
			if err := validateProxy(site.Proxy); err != nil {
				return fmt.Errorf("site %s: %w", site.Name, err)
			}
		}
	}
	if c.Discovery.SimilarityThreshold <= 0 || c.Discovery.SimilarityThreshold > 1 {
		return fmt.Errorf("discovery.similarityThreshold must be in (0, 1]")
	}
	return nil
}

func validateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("proxy %q: scheme must be http, https or socks5", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy %q has no host", raw)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv(storeBackendEnv); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(smtpServerEnv); v != "" {
		c.Notifications.Email.Server = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Notifications.Email.Port = port
		}
	}
	if v := os.Getenv(smtpFromEnv); v != "" {
		c.Notifications.Email.From = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Notifications.Email.Password = v
	}
	if v := os.Getenv(alertEmailToEnv); v != "" {
		c.Notifications.Email.To = strings.Split(v, ",")
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(otlpEndpointEnv); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv(chromeBinEnv); v != "" {
		c.Browser.ExecPath = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("config: unknown timezone, reverting to default", "timezone", tz, "default", defaultTimezone)
		loc = defaultLocation()
	}
	c.Scheduler.location = loc
}
