// Package config loads trustrank settings from a YAML file, TRUSTRANK_*
// environment variables and built-in defaults.
package config

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/algorithms"
	"github.com/dd0wney/cluso-trustrank/pkg/logging"
	"github.com/dd0wney/cluso-trustrank/pkg/publish"
	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
	"github.com/dd0wney/cluso-trustrank/pkg/source"
	"github.com/dd0wney/cluso-trustrank/pkg/validation"
)

// EnvPrefix prefixes every environment override, e.g. TRUSTRANK_PAGERANK_DAMPING.
const EnvPrefix = "TRUSTRANK"

// Source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Publish targets.
const (
	TargetNone   = "none"
	TargetStdout = "stdout"
	TargetS3     = "s3"
)

// PageRankSettings mirrors algorithms.PageRankConfig without the trust block.
type PageRankSettings struct {
	Damping       float64 `mapstructure:"damping"`
	MaxIterations int     `mapstructure:"max_iterations" validate:"gt=0"`
	Tolerance     float64 `mapstructure:"tolerance"`
	MinWeight     float64 `mapstructure:"min_weight"`
	MaxWeight     float64 `mapstructure:"max_weight"`
}

// TrustSettings lists trusted seeds as hex addresses. Out-of-range numbers
// are clamped by the solver, not rejected.
type TrustSettings struct {
	Seeds      []string `mapstructure:"seeds" validate:"dive,eth_addr"`
	Multiplier float64  `mapstructure:"multiplier"`
	Share      float64  `mapstructure:"share"`
	Decay      float64  `mapstructure:"decay"`
}

// DecoderSettings configures how edge weights are read from payloads.
type DecoderSettings struct {
	Offset          int     `mapstructure:"offset" validate:"gte=0"`
	Decimals        uint8   `mapstructure:"decimals" validate:"lte=77"`
	DefaultWeight   float64 `mapstructure:"default_weight"`
	SkipUndecodable bool    `mapstructure:"skip_undecodable"`
}

// PostgresSettings points at an attestation indexer database.
type PostgresSettings struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// SourceSettings selects where attestations come from.
type SourceSettings struct {
	Kind     string           `mapstructure:"kind" validate:"oneof=file postgres"`
	Path     string           `mapstructure:"path"`
	Postgres PostgresSettings `mapstructure:"postgres"`
}

// S3Settings configures the S3 publisher.
type S3Settings struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`

	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// PublishSettings selects where results are written.
type PublishSettings struct {
	Target   string     `mapstructure:"target" validate:"oneof=none stdout s3"`
	Compress bool       `mapstructure:"compress"`
	S3       S3Settings `mapstructure:"s3"`
}

// Config holds all runtime configuration for a scoring run.
type Config struct {
	Name              string           `mapstructure:"name" validate:"required"`
	Schema            string           `mapstructure:"schema" validate:"required,bytes32"`
	RewardPool        string           `mapstructure:"pool" validate:"required"`
	MinScoreThreshold float64          `mapstructure:"min_score_threshold"`
	AllowDuplicates   bool             `mapstructure:"allow_duplicates"`
	Workers           int              `mapstructure:"workers" validate:"gt=0"`
	LogLevel          string           `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile       string           `mapstructure:"metrics_file"`
	PageRank          PageRankSettings `mapstructure:"pagerank"`
	Trust             TrustSettings    `mapstructure:"trust"`
	Decoder           DecoderSettings  `mapstructure:"decoder"`
	Source            SourceSettings   `mapstructure:"source"`
	Publish           PublishSettings  `mapstructure:"publish"`
}

// SetDefaults registers the default for every key. Keys must be known to
// viper for environment overrides to apply during Unmarshal.
func SetDefaults(v *viper.Viper) {
	defaults := algorithms.DefaultPageRankConfig()

	v.SetDefault("name", "attestations")
	v.SetDefault("schema", "")
	v.SetDefault("pool", "0")
	v.SetDefault("min_score_threshold", 0.0)
	v.SetDefault("allow_duplicates", true)
	v.SetDefault("workers", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_file", "")

	v.SetDefault("pagerank.damping", defaults.DampingFactor)
	v.SetDefault("pagerank.max_iterations", defaults.MaxIterations)
	v.SetDefault("pagerank.tolerance", defaults.Tolerance)
	v.SetDefault("pagerank.min_weight", defaults.MinWeight)
	v.SetDefault("pagerank.max_weight", defaults.MaxWeight)

	v.SetDefault("trust.seeds", []string{})
	v.SetDefault("trust.multiplier", algorithms.DefaultTrustMultiplier)
	v.SetDefault("trust.share", algorithms.DefaultTrustShare)
	v.SetDefault("trust.decay", algorithms.DefaultTrustDecay)

	v.SetDefault("decoder.offset", 0)
	v.SetDefault("decoder.decimals", 0)
	v.SetDefault("decoder.default_weight", 0.0)
	v.SetDefault("decoder.skip_undecodable", true)

	v.SetDefault("source.kind", SourceFile)
	v.SetDefault("source.path", "attestations.yaml")
	v.SetDefault("source.postgres.dsn", "")
	v.SetDefault("source.postgres.table", source.DefaultAttestationTable)

	v.SetDefault("publish.target", TargetStdout)
	v.SetDefault("publish.compress", false)
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.prefix", "")
	v.SetDefault("publish.s3.region", "")
	v.SetDefault("publish.s3.endpoint", "")
	v.SetDefault("publish.s3.use_path_style", false)
	v.SetDefault("publish.s3.access_key_id", "")
	v.SetDefault("publish.s3.secret_access_key", "")
}

// NewViper returns a viper instance with defaults and environment
// overrides bound. When path is empty, trustrank.yaml is looked up in the
// working directory and its absence is not an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		return v, nil
	}

	v.SetConfigName("trustrank")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading trustrank.yaml")
		}
	}
	return v, nil
}

// Load reads configuration from path (or ./trustrank.yaml), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	cv := validation.NewConfigValidator("config")
	cv.OpenRangeFloat("pagerank.damping", c.PageRank.Damping, 0, 1).
		PositiveFloat("pagerank.tolerance", c.PageRank.Tolerance).
		Finite("pagerank.min_weight", c.PageRank.MinWeight).
		PositiveFloat("pagerank.max_weight", c.PageRank.MaxWeight).
		Custom("pagerank.min_weight", func() error {
			if c.PageRank.MinWeight > c.PageRank.MaxWeight {
				return errors.Newf("%v exceeds max_weight %v", c.PageRank.MinWeight, c.PageRank.MaxWeight)
			}
			return nil
		}).
		NonNegativeFloat("min_score_threshold", c.MinScoreThreshold).
		NonNegativeFloat("decoder.default_weight", c.Decoder.DefaultWeight).
		Custom("pool", func() error {
			_, err := c.Pool()
			return err
		}).
		When(c.Source.Kind == SourceFile, func(cv *validation.ConfigValidator) {
			cv.Required("source.path", c.Source.Path)
		}).
		When(c.Source.Kind == SourcePostgres, func(cv *validation.ConfigValidator) {
			cv.Required("source.postgres.dsn", c.Source.Postgres.DSN).
				Required("source.postgres.table", c.Source.Postgres.Table)
		}).
		When(c.Publish.Target == TargetS3, func(cv *validation.ConfigValidator) {
			cv.Required("publish.s3.bucket", c.Publish.S3.Bucket)
		}).
		When(c.Publish.S3.AccessKeyID != "", func(cv *validation.ConfigValidator) {
			cv.Required("publish.s3.secret_access_key", c.Publish.S3.SecretAccessKey)
		})
	return cv.Validate()
}

// Pool parses the decimal reward pool and checks its bounds.
func (c *Config) Pool() (*big.Int, error) {
	pool, ok := new(big.Int).SetString(strings.TrimSpace(c.RewardPool), 10)
	if !ok {
		return nil, errors.Wrapf(rewards.ErrInvalidPool, "%q is not a decimal integer", c.RewardPool)
	}
	if err := rewards.ValidatePool(pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// Seeds parses the trusted seed addresses. Any invalid entry fails the
// whole set so a typo never silently disables trust.
func (c *Config) Seeds() (account.Set, error) {
	seeds := account.NewSet()
	for i, s := range c.Trust.Seeds {
		a, err := account.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "trust.seeds[%d]", i)
		}
		seeds[a] = struct{}{}
	}
	return seeds, nil
}

// PageRankConfig converts the settings into solver configuration.
func (c *Config) PageRankConfig() (algorithms.PageRankConfig, error) {
	seeds, err := c.Seeds()
	if err != nil {
		return algorithms.PageRankConfig{}, err
	}
	cfg := algorithms.PageRankConfig{
		DampingFactor: c.PageRank.Damping,
		MaxIterations: c.PageRank.MaxIterations,
		Tolerance:     c.PageRank.Tolerance,
		MinWeight:     c.PageRank.MinWeight,
		MaxWeight:     c.PageRank.MaxWeight,
		Trust: algorithms.TrustConfig{
			TrustedSeeds:    seeds,
			TrustMultiplier: c.Trust.Multiplier,
			TrustShare:      c.Trust.Share,
			TrustDecay:      c.Trust.Decay,
		},
	}
	return cfg, cfg.Validate()
}

// WeightDecoder returns the configured payload decoder.
func (c *Config) WeightDecoder() source.WeightDecoder {
	return source.WeightDecoder{
		Offset:          c.Decoder.Offset,
		Decimals:        c.Decoder.Decimals,
		DefaultWeight:   c.Decoder.DefaultWeight,
		SkipUndecodable: c.Decoder.SkipUndecodable,
	}
}

// SourceConfig assembles the AttestationSource configuration.
func (c *Config) SourceConfig() (rewards.AttestationSourceConfig, error) {
	pr, err := c.PageRankConfig()
	if err != nil {
		return rewards.AttestationSourceConfig{}, err
	}
	pool, err := c.Pool()
	if err != nil {
		return rewards.AttestationSourceConfig{}, err
	}
	return rewards.AttestationSourceConfig{
		SchemaID:          c.Schema,
		PageRank:          pr,
		Pool:              pool,
		MinScoreThreshold: c.MinScoreThreshold,
		Decoder:           c.WeightDecoder(),
		AllowDuplicates:   c.AllowDuplicates,
	}, nil
}

// S3Options returns the S3 client options.
func (c *Config) S3Options() publish.S3Options {
	return publish.S3Options{
		Region:       c.Publish.S3.Region,
		Endpoint:     c.Publish.S3.Endpoint,
		UsePathStyle: c.Publish.S3.UsePathStyle,

		AccessKeyID:     c.Publish.S3.AccessKeyID,
		SecretAccessKey: c.Publish.S3.SecretAccessKey,
	}
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}
