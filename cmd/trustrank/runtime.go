package main

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-trustrank/pkg/config"
	"github.com/dd0wney/cluso-trustrank/pkg/logging"
	"github.com/dd0wney/cluso-trustrank/pkg/metrics"
	"github.com/dd0wney/cluso-trustrank/pkg/publish"
	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
	"github.com/dd0wney/cluso-trustrank/pkg/source"
)

// runtime holds everything one command invocation needs.
type runtime struct {
	cfg         *config.Config
	logger      *logging.ZapLogger
	metrics     *metrics.Registry
	metricsFile string
	started     time.Time
	closers     []func()
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	level := cfg.Level()
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = logging.ParseLevel(override)
	}

	metricsFile := cfg.MetricsFile
	if override, _ := cmd.Flags().GetString("metrics-file"); override != "" {
		metricsFile = override
	}

	return &runtime{
		cfg:         cfg,
		logger:      logging.NewZapLogger(cmd.ErrOrStderr(), level),
		metrics:     metrics.NewRegistry(),
		metricsFile: metricsFile,
		started:     time.Now(),
	}, nil
}

// close releases resources in reverse order and flushes metrics.
func (rt *runtime) close() {
	for _, c := range slices.Backward(rt.closers) {
		c()
	}
	rt.closers = nil

	if rt.metricsFile != "" {
		rt.metrics.UpdateSystemMetrics(rt.started)
		if err := rt.metrics.WriteTextfile(rt.metricsFile); err != nil {
			rt.logger.Warn("failed to write metrics", logging.String("path", rt.metricsFile), logging.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

func (rt *runtime) fetcher(ctx context.Context) (source.Fetcher, error) {
	switch rt.cfg.Source.Kind {
	case config.SourcePostgres:
		pool, err := pgxpool.New(ctx, rt.cfg.Source.Postgres.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to attestation database")
		}
		rt.closers = append(rt.closers, pool.Close)
		return source.NewPostgresFetcher(pool,
			source.WithTable(rt.cfg.Source.Postgres.Table),
			source.WithFetchLogger(rt.logger),
			source.WithFetchMetrics(rt.metrics),
		), nil
	default:
		return source.NewFileFetcher(rt.cfg.Source.Path), nil
	}
}

func (rt *runtime) attestationSource(ctx context.Context) (*rewards.AttestationSource, error) {
	fetcher, err := rt.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := rt.cfg.SourceConfig()
	if err != nil {
		return nil, err
	}
	return rewards.NewAttestationSource(rt.cfg.Name, fetcher, sc,
		rewards.WithLogger(rt.logger),
		rewards.WithMetrics(rt.metrics),
	)
}

func (rt *runtime) publisher(ctx context.Context, out io.Writer) (publish.Publisher, error) {
	switch rt.cfg.Publish.Target {
	case config.TargetS3:
		client, err := publish.NewS3Client(ctx, rt.cfg.S3Options())
		if err != nil {
			return nil, err
		}
		return publish.NewS3Publisher(client, rt.cfg.Publish.S3.Bucket, rt.cfg.Publish.S3.Prefix), nil
	case config.TargetStdout:
		return publish.NewWriterPublisher(config.TargetStdout, out), nil
	default:
		return publish.NoOpPublisher{}, nil
	}
}

// withRuntime wraps a command body with runtime setup and teardown.
func withRuntime(fn func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		return fn(cmd, args, rt)
	}
}
