package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/config"
	"github.com/matzehuels/netlens/pkg/detect"
	"github.com/matzehuels/netlens/pkg/metrics"
	"github.com/matzehuels/netlens/pkg/server"
)

type serveOpts struct {
	addr       string
	autoDetect bool
	origins    string
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the netlens HTTP service",
		Long: `Serve the detection endpoint, the graph utilities, the research store and
explorer sessions over HTTP. Prometheus metrics are exposed on /metrics.

The detection endpoint always runs in-process. Sessions use the detection
service when [api] base_url is configured.`,
		Example: `  netlens serve
  netlens serve --addr :9000 --auto-detect --cors http://localhost:3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.autoDetect, "auto-detect", false, "detect communities when a session opens")
	cmd.Flags().StringVar(&opts.origins, "cors", "", "comma-separated origins allowed by CORS")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	st, err := c.newStore(ctx, cfg)
	if err != nil {
		return err
	}

	det, ch, err := c.newDetector(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return err
	}
	defer ch.Close()
	analyzer := community.NewCachedDetector(detect.Louvain{}, ch, nil, cfg.Cache.TTL.Duration, c.Logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.Register()

	srv := server.New(server.Options{
		Store:          st,
		Analyzer:       analyzer,
		Detector:       det,
		Settings:       &cfg.Customize,
		AutoDetect:     opts.autoDetect,
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: splitList(opts.origins),
		SessionTTL:     cfg.Server.SessionTTL.Duration,
		MaxSessions:    cfg.Server.MaxSessions,
		Logger:         c.Logger,
	})
	defer srv.Close()

	c.Logger.Info("starting server", "addr", addr, "store", cfg.Store.Backend, "cache", c.cacheBackend(cfg))
	return srv.ListenAndServe(ctx, addr)
}

func (c *CLI) cacheBackend(cfg *config.Config) string {
	if c.noCache {
		return config.BackendNone
	}
	return cfg.Cache.Backend
}
