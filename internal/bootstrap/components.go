package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	"github.com/yanqian/usage-forecaster/internal/domain/prompt"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
	"github.com/yanqian/usage-forecaster/internal/infra/llm/gemini"
	"github.com/yanqian/usage-forecaster/internal/infra/llm/httpgen"
	"github.com/yanqian/usage-forecaster/internal/infra/llm/openai"
	"github.com/yanqian/usage-forecaster/internal/infra/llm/tokenizer"
	"github.com/yanqian/usage-forecaster/internal/infra/resultcache"
	"github.com/yanqian/usage-forecaster/internal/infra/seriessource"
)

// AnalysisConfig maps runtime config onto the pipeline knobs.
func AnalysisConfig(cfg *config.Config) analysis.Config {
	ttl := time.Duration(0)
	if cfg.Cache.Enabled {
		ttl = cfg.Cache.TTL
	}
	return analysis.Config{
		ForecastHorizon:   cfg.Forecast.Horizon,
		CombinedHorizon:   cfg.Forecast.CombinedHorizon,
		MaxHorizon:        cfg.Forecast.MaxHorizon,
		DriftSpan:         cfg.Drift.DefaultSpan,
		DetailedDriftRule: cfg.Drift.DetailedRule,
		ResponderTimeout:  cfg.Responder.Timeout,
		CacheTTL:          ttl,
	}
}

// NewResponder builds the configured responder adapter.
func NewResponder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analysis.Responder, error) {
	rc := cfg.Responder
	switch rc.Provider {
	case config.ProviderHTTP:
		options := rc.HTTP.Options
		if options == nil {
			options = map[string]any{"temperature": rc.Temperature}
		}
		client, err := httpgen.NewClient(httpgen.Config{
			Endpoint:     rc.HTTP.Endpoint,
			APIKey:       rc.HTTP.APIKey,
			Model:        rc.HTTP.Model,
			BodyTemplate: rc.HTTP.BodyTemplate,
			ModelPath:    rc.HTTP.ModelPath,
			PromptPath:   rc.HTTP.PromptPath,
			OptionsPath:  rc.HTTP.OptionsPath,
			ResponsePath: rc.HTTP.ResponsePath,
			Options:      options,
			Timeout:      rc.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("http responder enabled", "endpoint", rc.HTTP.Endpoint, "model", rc.HTTP.Model)
		return client, nil
	case config.ProviderOpenAI:
		client, err := openai.NewClient(openai.Config{
			APIKey:      rc.OpenAI.APIKey,
			BaseURL:     rc.OpenAI.BaseURL,
			Model:       rc.OpenAI.Model,
			Temperature: rc.Temperature,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("openai responder enabled", "model", rc.OpenAI.Model)
		return client, nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      rc.Gemini.APIKey,
			BaseURL:     rc.Gemini.BaseURL,
			Model:       rc.Gemini.Model,
			Temperature: float32(rc.Temperature),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("gemini responder enabled", "model", rc.Gemini.Model)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported responder provider %q", rc.Provider)
	}
}

// NewTokenCounter loads the tiktoken encoding when enabled and falls back to
// the character estimate when it cannot be loaded.
func NewTokenCounter(cfg *config.Config, logger *slog.Logger) prompt.TokenCounter {
	if !cfg.Prompt.Tokenizer.Enabled {
		return prompt.ApproxCounter{}
	}
	counter, err := tokenizer.New(cfg.Prompt.Tokenizer.Encoding)
	if err != nil {
		logger.Warn("tokenizer unavailable, using approximate token counts", "error", err)
		return prompt.ApproxCounter{}
	}
	return counter
}

// NewPromptBuilder builds the prompt builder from config.
func NewPromptBuilder(cfg *config.Config, counter prompt.TokenCounter) *prompt.Builder {
	return prompt.NewBuilder(prompt.Config{
		MaxWindow:       cfg.Prompt.MaxWindow,
		MaxPromptTokens: cfg.Prompt.MaxPromptTokens,
		DriftRule:       cfg.Prompt.DriftRule,
	}, counter)
}

// NewCatalog opens every configured source. The returned cleanup closes the
// database handles.
func NewCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*seriessource.Registry, func(), error) {
	var (
		datasets []analysis.Dataset
		closers  []func()
		pools    = make(map[string]*pgxpool.Pool)
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, src := range cfg.Series.Sources {
		cols := seriessource.Columns{Timestamp: src.Columns.Timestamp, Value: src.Columns.Value}
		ds := analysis.Dataset{ID: src.ID, Layout: src.Layout}
		switch src.Type {
		case config.SourceCSV:
			ds.Source = seriessource.NewCSVFile(src.Path, cols)
		case config.SourceSQLite:
			table, err := seriessource.OpenSQLiteTable(src.Path, src.Table, cols)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("source %s: %w", src.ID, err)
			}
			closers = append(closers, func() { _ = table.Close() })
			ds.Source = table
		case config.SourcePostgres:
			dsn := strings.TrimSpace(src.DSN)
			if dsn == "" {
				dsn = cfg.Series.DatabaseURL
			}
			pool, ok := pools[dsn]
			if !ok {
				var err error
				pool, err = openPool(ctx, dsn, cfg.Series.MaxConns, logger)
				if err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("source %s: %w", src.ID, err)
				}
				pools[dsn] = pool
				closers = append(closers, pool.Close)
			}
			ds.Source = seriessource.NewPostgresTable(pool, src.Table, cols)
		case config.SourceS3:
			obj, err := seriessource.NewObjectCSV(seriessource.ObjectStoreConfig{
				Endpoint:  src.S3.Endpoint,
				AccessKey: src.S3.AccessKey,
				SecretKey: src.S3.SecretKey,
				Region:    src.S3.Region,
				Bucket:    src.S3.Bucket,
				Key:       src.S3.Key,
			}, cols, logger)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("source %s: %w", src.ID, err)
			}
			ds.Source = obj
		default:
			cleanup()
			return nil, nil, fmt.Errorf("source %s: unsupported type %q", src.ID, src.Type)
		}
		logger.Info("series source configured", "id", src.ID, "source", ds.Source.Describe())
		datasets = append(datasets, ds)
	}

	registry, err := seriessource.NewRegistry(cfg.Series.Default, datasets...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return registry, cleanup, nil
}

// openPool connects lazily; a failed ping is logged and the pool is kept so
// the source recovers once the database is reachable.
func openPool(ctx context.Context, dsn string, maxConns int32, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("postgres ping failed", "error", err)
	}
	return pool, nil
}

// NewResultCache returns nil when caching is disabled. A Valkey backend that
// cannot be reached falls back to the memory store.
func NewResultCache(cfg *config.Config, logger *slog.Logger) (analysis.ResultCache, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop
	}
	memory := resultcache.NewMemoryStore(cfg.Cache.MaxEntries)
	if cfg.Cache.Backend != config.CacheValkey {
		logger.Info("memory result cache enabled", "ttl", cfg.Cache.TTL)
		return memory, noop
	}

	opt, err := buildValkeyOptions(cfg.Cache.Valkey)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return memory, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return memory, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return memory, noop
	}
	logger.Info("valkey result cache enabled", "addr", cfg.Cache.Valkey.Addr, "ttl", cfg.Cache.TTL)
	return resultcache.NewValkeyStore(client, cfg.Cache.Valkey.Prefix), client.Close
}

func buildValkeyOptions(cfg config.ValkeyConfig) (valkey.ClientOption, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return valkey.ClientOption{}, errors.New("valkey address is empty")
	}
	if strings.Contains(addr, "://") {
		opt, err := valkey.ParseURL(addr)
		if err != nil {
			return valkey.ClientOption{}, err
		}
		return opt, nil
	}
	return valkey.ClientOption{InitAddress: []string{addr}, Password: cfg.Password}, nil
}

// NewAuthService returns nil when no JWT secret is configured.
func NewAuthService(cfg *config.Config, logger *slog.Logger) auth.Service {
	if !cfg.HTTP.Auth.Enabled() {
		return nil
	}
	return auth.NewService(auth.Config{
		Secret: cfg.HTTP.Auth.JWTSecret,
		Issuer: cfg.HTTP.Auth.Issuer,
	}, logger)
}
