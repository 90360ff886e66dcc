package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/embed"
	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/store"
	"github.com/Aman-CERP/linkmap/internal/telemetry"
	"github.com/Aman-CERP/linkmap/internal/ui"
)

// app is the wiring behind a command: configuration, store, embedder,
// metrics and the service over them.
type app struct {
	cfg      *config.Config
	store    *store.Store
	embedder embed.Embedder
	metrics  *telemetry.Collector
	svc      *service.Service
}

func (g *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configDir)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Store.DBPath = g.dbPath
	}
	return cfg, nil
}

// open builds the app. The caller must Close it.
func (g *globalOptions) open() (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	embedCfg, err := cfg.EmbedConfig()
	if err != nil {
		return nil, err
	}
	embedder, err := embed.NewFromConfig(embedCfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	metrics := telemetry.NewCollector("")
	if cached, ok := embedder.(*embed.CachedEmbedder); ok {
		if err := metrics.RegisterCacheStats(cached.Stats); err != nil {
			slog.Warn("cache_metrics_unavailable", slog.String("error", err.Error()))
		}
	}

	svc, err := service.New(st, cfg,
		service.WithEmbedder(embedder),
		service.WithMetrics(metrics),
		service.WithLogger(slog.Default()))
	if err != nil {
		_ = st.Close()
		_ = embedder.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: st, embedder: embedder, metrics: metrics, svc: svc}, nil
}

func (a *app) Close() error {
	return errors.Join(a.embedder.Close(), a.store.Close())
}

// emit writes v as JSON with --json, otherwise renders it for humans.
func (g *globalOptions) emit(cmd *cobra.Command, v any, human func(*ui.Renderer)) error {
	out := cmd.OutOrStdout()
	if g.jsonOutput {
		return ui.WriteJSON(out, v)
	}
	human(ui.NewRenderer(out, !ui.ColorEnabled(out, g.noColor)))
	return nil
}

// domainFlag registers the required --domain flag.
func domainFlag(cmd *cobra.Command, domain *string) {
	cmd.Flags().StringVarP(domain, "domain", "d", "", "Site domain (required)")
	_ = cmd.MarkFlagRequired("domain")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
