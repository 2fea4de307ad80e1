package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/decisioncache"
	"github.com/Veraticus/ingredient-moderator/internal/llm"
	"github.com/Veraticus/ingredient-moderator/internal/matcher"
	"github.com/Veraticus/ingredient-moderator/internal/moderation"
)

// EnvPrefix is prepended to every environment override, so llm.api_key
// becomes MODERATOR_LLM_API_KEY.
const EnvPrefix = "MODERATOR"

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Decision cache backends.
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the complete application configuration.
type Config struct {
	Database      DatabaseConfig             `mapstructure:"database"`
	DecisionCache DecisionCacheConfig        `mapstructure:"decision_cache"`
	Logging       LoggingConfig              `mapstructure:"logging"`
	LLM           llm.Config                 `mapstructure:"llm"`
	Matching      matcher.Thresholds         `mapstructure:"matching"`
	Moderation    moderation.Config          `mapstructure:"moderation"`
	Duplicates    moderation.DuplicateConfig `mapstructure:"duplicates"`
	ProductCache  ProductCacheConfig         `mapstructure:"product_cache"`
	Queue         QueueConfig                `mapstructure:"queue"`
}

// DatabaseConfig selects the catalog store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

// DecisionCacheConfig selects where memoized decisions live.
type DecisionCacheConfig struct {
	Backend string                    `mapstructure:"backend"`
	Redis   decisioncache.RedisConfig `mapstructure:"redis"`
	TTL     time.Duration             `mapstructure:"ttl"`
}

// ProductCacheConfig controls the in-process catalog index.
type ProductCacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// QueueConfig controls escalation batching.
type QueueConfig struct {
	Delay     time.Duration `mapstructure:"delay"`
	BatchSize int           `mapstructure:"batch_size"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so environment
// overrides apply even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "~/.local/share/moderator/moderator.db")

	v.SetDefault("decision_cache.backend", BackendSQL)
	v.SetDefault("decision_cache.ttl", decisioncache.DefaultTTL)
	v.SetDefault("decision_cache.redis.addr", "localhost:6379")
	v.SetDefault("decision_cache.redis.password", "")
	v.SetDefault("decision_cache.redis.db", 0)
	v.SetDefault("decision_cache.redis.prefix", "moderator:decision:")
	v.SetDefault("decision_cache.redis.pool_size", 10)

	v.SetDefault("product_cache.ttl", 5*time.Minute)

	v.SetDefault("queue.delay", moderation.DefaultQueueDelay)
	v.SetDefault("queue.batch_size", moderation.DefaultBatchSize)

	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("llm.sample_size", 100)

	mod := moderation.DefaultConfig()
	v.SetDefault("moderation.auto_link", mod.AutoLink)
	v.SetDefault("moderation.suggest", mod.Suggest)
	v.SetDefault("moderation.min_input_length", mod.MinInputLength)
	v.SetDefault("moderation.task_dedup", string(mod.TaskDedup))
	v.SetDefault("moderation.max_batch_inputs", mod.MaxBatchInputs)

	th := matcher.DefaultThresholds()
	v.SetDefault("matching.synonym", th.Synonym)
	v.SetDefault("matching.contains_base", th.ContainsBase)
	v.SetDefault("matching.contains_span", th.ContainsSpan)
	v.SetDefault("matching.stem", th.Stem)
	v.SetDefault("matching.min_stem_len", th.MinStemLen)
	v.SetDefault("matching.levenshtein", th.Levenshtein)
	v.SetDefault("matching.fuzzy_synonym", th.FuzzySynonym)
	v.SetDefault("matching.fuzzy_synonym_factor", th.FuzzySynonymFactor)
	v.SetDefault("matching.dup_synonym", th.DupSynonym)
	v.SetDefault("matching.dup_max_distance", th.DupMaxDistance)
	v.SetDefault("matching.dup_min_long_len", th.DupMinLongLen)
	v.SetDefault("matching.dup_contains_ratio", th.DupContainsRatio)
	v.SetDefault("matching.dup_min_len", th.DupMinLen)
	v.SetDefault("matching.dup_min_stem_len", th.DupMinStemLen)
	v.SetDefault("matching.dup_stem", th.DupStem)

	dup := moderation.DefaultDuplicateConfig()
	v.SetDefault("duplicates.min_confidence", dup.MinConfidence)
	v.SetDefault("duplicates.max_tasks", dup.MaxTasks)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from v's config file (when one is found),
// environment overrides and defaults, then validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// providerKeyFromEnv falls back to the key variable each provider's own
// tooling reads.
func providerKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case llm.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", common.ErrMissingConfig)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for postgres", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}

	switch c.DecisionCache.Backend {
	case BackendSQL, BackendMemory:
	case BackendRedis:
		if c.DecisionCache.Redis.Addr == "" {
			return fmt.Errorf("%w: decision_cache.redis.addr is required", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown decision_cache.backend %q", common.ErrInvalidConfig, c.DecisionCache.Backend)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI, llm.ProviderOpenAIChat, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", common.ErrInvalidConfig, c.LLM.Provider)
	}

	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("%w: queue.batch_size must be positive", common.ErrInvalidConfig)
	}
	if c.Queue.Delay < 0 {
		return fmt.Errorf("%w: queue.delay must not be negative", common.ErrInvalidConfig)
	}
	if c.Duplicates.MinConfidence < 0 || c.Duplicates.MinConfidence > 1 {
		return fmt.Errorf("%w: duplicates.min_confidence must be between 0 and 1", common.ErrInvalidConfig)
	}

	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("%w: matching: %w", common.ErrInvalidConfig, err)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return c.Moderation.Validate()
}

// LoadDotEnv loads the first .env style files that exist. Missing files
// are not an error; malformed ones are.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(ExpandPath(p)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
