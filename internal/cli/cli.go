// Package cli implements the netlens command-line interface.
package cli

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/buildinfo"
	"github.com/matzehuels/netlens/pkg/cache"
	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/config"
	"github.com/matzehuels/netlens/pkg/detect"
	"github.com/matzehuels/netlens/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "netlens",
		Short:        "netlens explores conversation networks",
		Long:         `netlens loads conversation graphs, detects their communities and lets you filter, customize and render them from the terminal or over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/netlens/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the detection cache")

	root.AddCommand(c.statsCommand())
	root.AddCommand(c.communitiesCommand())
	root.AddCommand(c.filterCommand())
	root.AddCommand(c.customizeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.researchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// newCache opens the configured detection cache. An unusable cache directory
// disables caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if c.noCache || cfg.Cache.Backend == config.BackendNone {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.Backend == config.BackendRedis {
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   config.AppName + ":",
		})
	}
	dir, err := cfg.CacheDirectory()
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newDetector returns the configured detector wrapped in the detection
// cache, plus the cache so the caller can close it. Without an API URL
// detection runs in-process.
func (c *CLI) newDetector(ctx context.Context, cfg *config.Config) (community.Detector, cache.Cache, error) {
	var inner community.Detector = detect.Louvain{}
	if cfg.API.BaseURL != "" {
		d, err := community.NewHTTPDetector(cfg.API.BaseURL, &http.Client{},
			community.WithRetry(cfg.API.Attempts, time.Second))
		if err != nil {
			return nil, nil, err
		}
		inner = d
		c.Logger.Debug("using detection service", "url", cfg.API.BaseURL)
	}
	ch, err := c.newCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return community.NewCachedDetector(inner, ch, nil, cfg.Cache.TTL.Duration, c.Logger), ch, nil
}

// newStore opens the configured research store.
func (c *CLI) newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		return store.NewMongoStore(ctx, store.MongoOptions{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.MongoDatabase,
		})
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	}
	return store.NewFileStore(cfg.Store.Dir)
}

// detectContext bounds a detection call by the configured API timeout.
func detectContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.API.Timeout.Duration <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.API.Timeout.Duration)
}
