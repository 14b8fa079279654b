package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when a collaborator is constructed without
// the credential it needs.
var ErrMissingCredential = errors.New("missing credential")

// Environment variables read on top of the YAML file.
const (
	configPathEnv = "GENSEO_CONFIG"

	serpAPIKeyEnv         = "SERPAPI_API_KEY"
	searchAPIKeyEnv       = "GOOGLE_SEARCH_API_KEY"
	searchEngineIDEnv     = "GOOGLE_SEARCH_ENGINE_ID"
	adsDeveloperTokenEnv  = "GOOGLE_ADS_DEVELOPER_TOKEN"
	adsClientIDEnv        = "GOOGLE_ADS_CLIENT_ID"
	adsClientSecretEnv    = "GOOGLE_ADS_CLIENT_SECRET"
	adsRefreshTokenEnv    = "GOOGLE_ADS_REFRESH_TOKEN"
	adsLoginCustomerIDEnv = "GOOGLE_ADS_LOGIN_CUSTOMER_ID"
	adsCustomerIDEnv      = "GOOGLE_ADS_CUSTOMER_ID"
	googleAPIKeyEnv       = "GOOGLE_API_KEY"
	anthropicAPIKeyEnv    = "ANTHROPIC_API_KEY"
	openAIAPIKeyEnv       = "OPENAI_API_KEY"
	ollamaHostEnv         = "OLLAMA_HOST"
	jinaAPIKeyEnv         = "JINA_API_KEY"
	maxCompetitorsEnv     = "MAX_COMPETITORS"
	logLevelEnv           = "GENSEO_LOG_LEVEL"
	logFileEnv            = "GENSEO_LOG_FILE"
	storageDriverEnv      = "GENSEO_STORAGE"
	storageDSNEnv         = "GENSEO_STORAGE_DSN"
	natsURLEnv            = "NATS_URL"
)

// LLM providers.
const (
	ProviderGoogleAI  = "googleai"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Extractor modes.
const (
	ExtractorJina   = "jina"
	ExtractorDirect = "direct"
)

// Storage drivers.
const (
	StorageNone     = "none"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageJSON     = "json"
)

// Config holds every setting of the application.
type Config struct {
	Mission      MissionConfig      `yaml:"mission"`
	SerpAPI      SerpAPIConfig      `yaml:"serpapi"`
	CustomSearch CustomSearchConfig `yaml:"custom_search"`
	GoogleAds    GoogleAdsConfig    `yaml:"google_ads"`
	Extractor    ExtractorConfig    `yaml:"extractor"`
	LLM          LLMConfig          `yaml:"llm"`
	Storage      StorageConfig      `yaml:"storage"`
	Server       ServerConfig       `yaml:"server"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
	NATS         NATSConfig         `yaml:"nats"`
}

// MissionConfig carries request defaults and orchestration limits.
type MissionConfig struct {
	MaxCompetitors        int           `yaml:"max_competitors"`
	MinWordCount          int           `yaml:"min_word_count"`
	DefaultLocation       string        `yaml:"default_location"`
	DefaultLanguage       string        `yaml:"default_language"`
	DefaultContentType    string        `yaml:"default_content_type"`
	DefaultTargetGroup    string        `yaml:"default_target_group"`
	CallTimeout           time.Duration `yaml:"call_timeout"`
	MaxParallelExtraction int           `yaml:"max_parallel_extractions"`
}

// SerpAPIConfig configures search provider A.
type SerpAPIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	HL      string        `yaml:"hl"`
	GL      string        `yaml:"gl"`
	Timeout time.Duration `yaml:"timeout"`
}

// CustomSearchConfig configures search provider B.
type CustomSearchConfig struct {
	APIKey   string        `yaml:"api_key"`
	EngineID string        `yaml:"engine_id"`
	BaseURL  string        `yaml:"base_url"`
	GL       string        `yaml:"gl"`
	LR       string        `yaml:"lr"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GoogleAdsConfig configures the keyword provider.
type GoogleAdsConfig struct {
	DeveloperToken  string        `yaml:"developer_token"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	RefreshToken    string        `yaml:"refresh_token"`
	LoginCustomerID string        `yaml:"login_customer_id"`
	CustomerID      string        `yaml:"customer_id"`
	BaseURL         string        `yaml:"base_url"`
	TokenURL        string        `yaml:"token_url"`
	APIVersion      string        `yaml:"api_version"`
	GeoTargetID     int64         `yaml:"geo_target_id"`
	LanguageID      int64         `yaml:"language_id"`
	Timeout         time.Duration `yaml:"timeout"`
}

// ExtractorConfig configures the content extractor.
type ExtractorConfig struct {
	Mode         string        `yaml:"mode"`
	JinaBaseURL  string        `yaml:"jina_base_url"`
	JinaAPIKey   string        `yaml:"jina_api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	UserAgents   []string      `yaml:"user_agents"`
	Fingerprint  string        `yaml:"fingerprint"`
	RPS          float64       `yaml:"rps"`
	Jitter       float64       `yaml:"jitter"`
	Proxies      []string      `yaml:"proxies"`
	RespectRobot bool          `yaml:"respect_robots"`
}

// LLMConfig selects the language model backend.
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	GoogleAPIKey    string `yaml:"google_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OllamaHost      string `yaml:"ollama_host"`
}

// StorageConfig selects where finished missions are recorded.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig configures the standalone metrics listener used by the CLI.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NATSConfig configures the optional event bus.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mission: MissionConfig{
			MaxCompetitors:     10,
			MinWordCount:       50,
			DefaultLocation:    "Germany",
			DefaultLanguage:    "German",
			DefaultContentType: "Landingpage",
			DefaultTargetGroup: "General Audience",
		},
		SerpAPI: SerpAPIConfig{
			BaseURL: "https://serpapi.com/search",
			HL:      "de",
			GL:      "de",
			Timeout: 30 * time.Second,
		},
		CustomSearch: CustomSearchConfig{
			BaseURL: "https://www.googleapis.com/customsearch/v1",
			GL:      "de",
			LR:      "lang_de",
			Timeout: 30 * time.Second,
		},
		GoogleAds: GoogleAdsConfig{
			BaseURL:     "https://googleads.googleapis.com",
			TokenURL:    "https://oauth2.googleapis.com/token",
			APIVersion:  "v22",
			GeoTargetID: 2276,
			LanguageID:  1001,
			Timeout:     30 * time.Second,
		},
		Extractor: ExtractorConfig{
			Mode:         ExtractorJina,
			JinaBaseURL:  "https://r.jina.ai/",
			Timeout:      30 * time.Second,
			MaxBodyBytes: 5 << 20,
			Fingerprint:  "chrome",
			RespectRobot: true,
		},
		LLM: LLMConfig{
			Provider:   ProviderGoogleAI,
			Model:      "gemini-2.5-pro",
			OllamaHost: "http://localhost:11434",
		},
		Storage: StorageConfig{
			Driver: StorageNone,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		NATS: NATSConfig{
			SubjectPrefix: "genseo.mission",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (or
// $GENSEO_CONFIG when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Fields absent from the file keep their defaults.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.SerpAPI.APIKey, serpAPIKeyEnv)
	setString(&c.CustomSearch.APIKey, searchAPIKeyEnv)
	setString(&c.CustomSearch.EngineID, searchEngineIDEnv)
	setString(&c.GoogleAds.DeveloperToken, adsDeveloperTokenEnv)
	setString(&c.GoogleAds.ClientID, adsClientIDEnv)
	setString(&c.GoogleAds.ClientSecret, adsClientSecretEnv)
	setString(&c.GoogleAds.RefreshToken, adsRefreshTokenEnv)
	setString(&c.GoogleAds.LoginCustomerID, adsLoginCustomerIDEnv)
	setString(&c.GoogleAds.CustomerID, adsCustomerIDEnv)
	setString(&c.LLM.GoogleAPIKey, googleAPIKeyEnv)
	setString(&c.LLM.AnthropicAPIKey, anthropicAPIKeyEnv)
	setString(&c.LLM.OpenAIAPIKey, openAIAPIKeyEnv)
	setString(&c.LLM.OllamaHost, ollamaHostEnv)
	setString(&c.Extractor.JinaAPIKey, jinaAPIKeyEnv)
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.File, logFileEnv)
	setString(&c.Storage.Driver, storageDriverEnv)
	setString(&c.Storage.DSN, storageDSNEnv)
	setString(&c.NATS.URL, natsURLEnv)

	if v := os.Getenv(maxCompetitorsEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", maxCompetitorsEnv, err)
		}
		c.Mission.MaxCompetitors = n
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a mission.
func (c Config) Validate() error {
	if c.Mission.MaxCompetitors <= 0 {
		return fmt.Errorf("mission.max_competitors must be positive, got %d", c.Mission.MaxCompetitors)
	}
	if c.Mission.MinWordCount <= 0 {
		return fmt.Errorf("mission.min_word_count must be positive, got %d", c.Mission.MinWordCount)
	}
	switch c.Extractor.Mode {
	case ExtractorJina, ExtractorDirect:
	default:
		return fmt.Errorf("unknown extractor mode %q", c.Extractor.Mode)
	}
	switch c.Storage.Driver {
	case StorageNone, StorageSQLite, StoragePostgres, StorageJSON:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != StorageNone && c.Storage.DSN == "" {
		return fmt.Errorf("storage driver %q requires a dsn", c.Storage.Driver)
	}
	return nil
}

// LogLevel returns the parsed logging level.
func (c Config) LogLevel() slog.Level {
	return ParseLogLevel(c.Logging.Level)
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
