package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peertrace/internal/config"
	"github.com/matzehuels/peertrace/internal/server"
	"github.com/matzehuels/peertrace/pkg/cache"
	"github.com/matzehuels/peertrace/pkg/pipeline"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	configPath string
	listen     string // overrides config when set
}

// serveCommand creates the serve command: the HTTP API for uploaded
// lockfile reports.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the peertrace HTTP API",
		Long: `Run the HTTP API for lockfile reports.

Lockfiles uploaded to POST /api/v1/reports are parsed once and stored
under a report ID; influence queries run against the stored graph.
Backends (cache, report store) are selected in the config file.

Examples:
  peertrace serve
  peertrace serve --listen :9090
  peertrace serve --config ./peertrace.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.listen != "" {
				cfg.Server.Listen = opts.listen
			}
			return c.serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default: ~/.config/peertrace/config.toml)")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func (c *CLI) serve(ctx context.Context, cfg config.Config) error {
	cc, err := c.serveCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cc.Close()

	store, err := c.serveStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	runner := pipeline.NewRunner(cc, c.Logger)
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           server.New(store, runner, c.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// serveCache builds the cache backend named in the config.
func (c *CLI) serveCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendNone:
		return cache.NewNullCache(), nil
	case config.CacheBackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.CacheBackendFile:
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileCache(dir)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// serveStore builds the report store named in the config.
func (c *CLI) serveStore(ctx context.Context, cfg config.Config) (server.Store, error) {
	switch cfg.Server.Store {
	case config.StoreMongo:
		return server.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case config.StoreMemory:
		return server.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown report store: %s", cfg.Server.Store)
	}
}
