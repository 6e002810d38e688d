package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/pipeline"
)

// NewShipCmd creates the ship command.
func NewShipCmd(cfgFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ship",
		Short: "Ship log lines from stdin or files to CLS",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShip(cmd, cfgFile, logLevel)
		},
	}

	// Input flags
	cmd.Flags().StringSlice("file", nil, "file glob patterns to tail instead of stdin")
	cmd.Flags().Bool("from-start", false, "ship existing file content before tailing")

	// Destination flags
	cmd.Flags().String("logset", "", "log set name (created when missing)")
	cmd.Flags().String("topic", "", "topic name (created when missing)")
	cmd.Flags().String("category", "", "emitter category, used as the batch filename prefix")
	cmd.Flags().String("min-level", "", "lowest level shipped (debug, info, warn, error)")

	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	// Hot-reload flag
	cmd.Flags().Bool("hot-reload", true, "enable hot-reload of config file")

	return cmd
}

func runShip(cmd *cobra.Command, cfgFile, logLevel *string) error {
	cfg, err := loadShipConfig(cmd, *cfgFile)
	if err != nil {
		return err
	}

	log := SetupLogging(effectiveLevel(*logLevel, cfg), cfg.LogFile)

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	log.Infof("starting cls-shipper: endpoint=%s, logset=%s, topic=%s, files=%v",
		cfg.CLS.Endpoint, cfg.CLS.LogSetName, cfg.CLS.TopicName, cfg.Input.Files)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Address != "" {
		srv := startMetricsServer(cfg.Metrics, log)
		defer stopMetricsServer(srv, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	hotReloadEnabled, _ := cmd.Flags().GetBool("hot-reload")
	if *cfgFile != "" && hotReloadEnabled {
		startConfigWatcher(ctx, cmd, cfgFile, p, log)
	}

	go handleSignals(ctx, cancel, sigChan, cmd, cfgFile, p, log)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info("cls-shipper stopped")
	return nil
}

// loadShipConfig loads the configuration, applies flag overrides and
// validates the result.
func loadShipConfig(cmd *cobra.Command, cfgFile string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyShipOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func startMetricsServer(cfg config.MetricsConfig, log logger.ILogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("serving metrics: addr=%s, path=%s", cfg.Address, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server failed: %v", err)
		}
	}()
	return srv
}

func stopMetricsServer(srv *http.Server, log logger.ILogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warningf("metrics server shutdown: %v", err)
	}
}

func startConfigWatcher(ctx context.Context, cmd *cobra.Command, cfgFile *string, p *pipeline.Pipeline, log logger.ILogger) {
	watcher := config.NewConfigWatcher(*cfgFile, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warningf("failed to start config watcher: %v", err)
		return
	}

	log.Infof("hot-reload enabled: config=%s", *cfgFile)

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				applyShipOverrides(cmd, newCfg)
				reconfigure(p, newCfg, log)
			case err := <-watcher.Errors():
				log.Errorf("config watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, cmd *cobra.Command, cfgFile *string, p *pipeline.Pipeline, log logger.ILogger) {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info("received SIGHUP, reloading config")
				newCfg, err := loadShipConfig(cmd, *cfgFile)
				if err != nil {
					log.Errorf("failed to reload config: %v", err)
					continue
				}
				reconfigure(p, newCfg, log)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received shutdown signal: %s", sig)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func reconfigure(p *pipeline.Pipeline, cfg *config.Config, log logger.ILogger) {
	if err := cfg.Validate(); err != nil {
		log.Errorf("reloaded config rejected: %v", err)
		return
	}
	err := p.Reconfigure(cfg)
	switch {
	case errors.Is(err, pipeline.ErrShuttingDown):
		log.Debug("reload ignored, shutting down")
	case err != nil:
		log.Errorf("reconfigure failed: %v", err)
	}
}

func applyShipOverrides(cmd *cobra.Command, cfg *config.Config) {
	if files, _ := cmd.Flags().GetStringSlice("file"); len(files) > 0 {
		cfg.Input.Files = files
	}
	if v, _ := cmd.Flags().GetBool("from-start"); v {
		cfg.Input.FromStart = true
	}
	if v, _ := cmd.Flags().GetString("logset"); v != "" {
		cfg.CLS.LogSetName = v
	}
	if v, _ := cmd.Flags().GetString("topic"); v != "" {
		cfg.CLS.TopicName = v
	}
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		cfg.CLS.Category = v
	}
	if v, _ := cmd.Flags().GetString("min-level"); v != "" {
		cfg.CLS.MinLevel = v
	}
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		cfg.Metrics.Address = v
	}
}
