package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Responder providers.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Series source types.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceS3       = "s3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheValkey = "valkey"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Responder ResponderConfig `yaml:"responder"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Drift     DriftConfig     `yaml:"drift"`
	Series    SeriesConfig    `yaml:"series"`
	Cache     CacheConfig     `yaml:"cache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Auth           AuthConfig      `yaml:"auth"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig enables bearer token checks when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

// Enabled reports whether requests must carry a token.
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

// ResponderConfig selects and configures the text generation backend.
type ResponderConfig struct {
	Provider    string              `yaml:"provider"`
	Timeout     time.Duration       `yaml:"timeout"`
	Temperature float64             `yaml:"temperature"`
	HTTP        HTTPResponderConfig `yaml:"http"`
	OpenAI      APIResponderConfig  `yaml:"openai"`
	Gemini      APIResponderConfig  `yaml:"gemini"`
}

// HTTPResponderConfig describes a JSON-over-HTTP endpoint such as Ollama.
type HTTPResponderConfig struct {
	Endpoint     string         `yaml:"endpoint"`
	APIKey       string         `yaml:"apiKey"`
	Model        string         `yaml:"model"`
	BodyTemplate string         `yaml:"bodyTemplate"`
	ModelPath    string         `yaml:"modelPath"`
	PromptPath   string         `yaml:"promptPath"`
	OptionsPath  string         `yaml:"optionsPath"`
	ResponsePath string         `yaml:"responsePath"`
	Options      map[string]any `yaml:"options"`
}

// APIResponderConfig holds SDK backed provider settings.
type APIResponderConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
}

// PromptConfig bounds prompt construction.
type PromptConfig struct {
	MaxWindow       int             `yaml:"maxWindow"`
	MaxPromptTokens int             `yaml:"maxPromptTokens"`
	DriftRule       string          `yaml:"driftRule"`
	Tokenizer       TokenizerConfig `yaml:"tokenizer"`
}

// TokenizerConfig selects the tiktoken encoding used for token budgeting.
type TokenizerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Encoding string `yaml:"encoding"`
}

// ForecastConfig holds horizon defaults.
type ForecastConfig struct {
	Horizon         int `yaml:"horizon"`
	CombinedHorizon int `yaml:"combinedHorizon"`
	MaxHorizon      int `yaml:"maxHorizon"`
}

// DriftConfig controls the detailed drift variant.
type DriftConfig struct {
	DefaultSpan  time.Duration `yaml:"defaultSpan"`
	DetailedRule string        `yaml:"detailedRule"`
}

// SeriesConfig lists the datasets the service can read.
type SeriesConfig struct {
	Default     string         `yaml:"default"`
	DatabaseURL string         `yaml:"databaseUrl"`
	MaxConns    int32          `yaml:"maxConns"`
	Sources     []SourceConfig `yaml:"sources"`
}

// SourceConfig describes one dataset.
type SourceConfig struct {
	ID      string        `yaml:"id"`
	Type    string        `yaml:"type"`
	Path    string        `yaml:"path"`
	Table   string        `yaml:"table"`
	DSN     string        `yaml:"dsn"`
	Layout  string        `yaml:"layout"`
	Columns ColumnsConfig `yaml:"columns"`
	S3      S3Config      `yaml:"s3"`
}

// ColumnsConfig names the timestamp and value columns.
type ColumnsConfig struct {
	Timestamp string `yaml:"timestamp"`
	Value     string `yaml:"value"`
}

// S3Config locates a CSV object in an S3-compatible bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
}

// CacheConfig controls the optional result cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"maxEntries"`
	Valkey     ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the shared cache.
type ValkeyConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config path; an empty path falls back to
// CONFIG_PATH and then configs/config.yaml.
func LoadFile(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_AUTH_JWT_SECRET"); v != "" {
		cfg.HTTP.Auth.JWTSecret = v
	}
	if v := os.Getenv("RESPONDER_PROVIDER"); v != "" {
		cfg.Responder.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("RESPONDER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Responder.Timeout = parsed
		}
	}
	if v := os.Getenv("RESPONDER_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Responder.Temperature = parsed
		}
	}
	if v := os.Getenv("RESPONDER_ENDPOINT"); v != "" {
		cfg.Responder.HTTP.Endpoint = v
	}
	if v := os.Getenv("RESPONDER_MODEL"); v != "" {
		cfg.Responder.HTTP.Model = v
	}
	if v := os.Getenv("RESPONDER_API_KEY"); v != "" {
		cfg.Responder.HTTP.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Responder.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Responder.OpenAI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Responder.OpenAI.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Responder.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Responder.Gemini.Model = v
	}
	if v := os.Getenv("PROMPT_MAX_WINDOW"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Prompt.MaxWindow = parsed
		}
	}
	if v := os.Getenv("PROMPT_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Prompt.MaxPromptTokens = parsed
		}
	}
	if v := os.Getenv("FORECAST_HORIZON"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.Horizon = parsed
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Series.DatabaseURL = v
	}
	if v := os.Getenv("SERIES_DEFAULT"); v != "" {
		cfg.Series.Default = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = parsed
		}
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("VALKEY_PASSWORD"); v != "" {
		cfg.Cache.Valkey.Password = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   150 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
		},
		Responder: ResponderConfig{
			Provider:    ProviderHTTP,
			Timeout:     120 * time.Second,
			Temperature: 0,
			HTTP: HTTPResponderConfig{
				Endpoint: "http://localhost:11434/api/generate",
				Model:    "llama3",
			},
			OpenAI: APIResponderConfig{Model: "gpt-4o-mini"},
			Gemini: APIResponderConfig{Model: "gemini-2.0-flash"},
		},
		Prompt: PromptConfig{
			MaxWindow: 100,
			Tokenizer: TokenizerConfig{
				Enabled:  false,
				Encoding: "cl100k_base",
			},
		},
		Forecast: ForecastConfig{
			Horizon:         7,
			CombinedHorizon: 3,
			MaxHorizon:      90,
		},
		Drift: DriftConfig{
			DefaultSpan:  30 * 24 * time.Hour,
			DetailedRule: "Drift is true for any abnormal value or any sudden increase or decrease compared to the surrounding rows, otherwise false.",
		},
		Series: SeriesConfig{
			Default:  "usage",
			MaxConns: 4,
			Sources: []SourceConfig{
				{ID: "usage", Type: SourceCSV, Path: "data/usage.csv"},
			},
		},
		Cache: CacheConfig{
			Enabled:    false,
			Backend:    CacheMemory,
			TTL:        10 * time.Minute,
			MaxEntries: 512,
			Valkey:     ValkeyConfig{Prefix: "usage-forecaster"},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if err := c.Responder.validate(); err != nil {
		return err
	}
	if c.Prompt.MaxWindow <= 0 {
		return errors.New("prompt.maxWindow must be positive")
	}
	if c.Prompt.MaxPromptTokens < 0 {
		return errors.New("prompt.maxPromptTokens cannot be negative")
	}
	if c.Forecast.MaxHorizon <= 0 {
		return errors.New("forecast.maxHorizon must be positive")
	}
	if c.Forecast.Horizon <= 0 || c.Forecast.Horizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.horizon must be within [1, %d]", c.Forecast.MaxHorizon)
	}
	if c.Forecast.CombinedHorizon <= 0 || c.Forecast.CombinedHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.combinedHorizon must be within [1, %d]", c.Forecast.MaxHorizon)
	}
	if c.Drift.DefaultSpan <= 0 {
		return errors.New("drift.defaultSpan must be positive")
	}
	if err := c.Series.validate(); err != nil {
		return err
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheMemory:
		case CacheValkey:
			if strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
				return errors.New("cache.valkey.addr cannot be empty when the valkey backend is selected")
			}
		default:
			return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
		}
		if c.Cache.TTL <= 0 {
			return errors.New("cache.ttl must be positive when the cache is enabled")
		}
	}
	return nil
}

func (r ResponderConfig) validate() error {
	if r.Timeout <= 0 {
		return errors.New("responder.timeout must be positive")
	}
	switch r.Provider {
	case ProviderHTTP:
		if strings.TrimSpace(r.HTTP.Endpoint) == "" {
			return errors.New("responder.http.endpoint cannot be empty")
		}
	case ProviderOpenAI:
		if strings.TrimSpace(r.OpenAI.APIKey) == "" {
			return errors.New("responder.openai.apiKey cannot be empty")
		}
	case ProviderGemini:
		if strings.TrimSpace(r.Gemini.APIKey) == "" {
			return errors.New("responder.gemini.apiKey cannot be empty")
		}
	default:
		return fmt.Errorf("responder.provider %q is not supported", r.Provider)
	}
	return nil
}

func (s SeriesConfig) validate() error {
	if len(s.Sources) == 0 {
		return errors.New("series.sources cannot be empty")
	}
	seen := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if strings.TrimSpace(src.ID) == "" {
			return fmt.Errorf("series.sources[%d].id cannot be empty", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("series.sources[%d].id %q is duplicated", i, src.ID)
		}
		seen[src.ID] = true
		switch src.Type {
		case SourceCSV:
			if src.Path == "" {
				return fmt.Errorf("series.sources[%d].path cannot be empty for csv", i)
			}
		case SourceSQLite:
			if src.Path == "" || src.Table == "" {
				return fmt.Errorf("series.sources[%d] needs path and table for sqlite", i)
			}
		case SourcePostgres:
			if src.Table == "" {
				return fmt.Errorf("series.sources[%d].table cannot be empty for postgres", i)
			}
			if src.DSN == "" && s.DatabaseURL == "" {
				return fmt.Errorf("series.sources[%d] needs dsn or series.databaseUrl", i)
			}
		case SourceS3:
			if src.S3.Endpoint == "" || src.S3.Bucket == "" || src.S3.Key == "" {
				return fmt.Errorf("series.sources[%d] needs s3.endpoint, s3.bucket and s3.key", i)
			}
		default:
			return fmt.Errorf("series.sources[%d].type %q is not supported", i, src.Type)
		}
	}
	if !seen[s.Default] {
		return fmt.Errorf("series.default %q does not name a configured source", s.Default)
	}
	return nil
}
