package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// clientFactory returns the service client used by the admin commands.
type clientFactory func(cmd *cobra.Command) (resource.Caller, error)

// configClient builds a transport client from the loaded configuration.
func configClient(cfgFile, logLevel *string) clientFactory {
	return func(cmd *cobra.Command) (resource.Caller, error) {
		cfg, err := config.Load(*cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		log := SetupLogging(effectiveLevel(*logLevel, cfg), cfg.LogFile)

		opts := []transport.Option{transport.WithLogger(log)}
		if cfg.CLS.Scheme != "" {
			opts = append(opts, transport.WithScheme(cfg.CLS.Scheme))
		}
		if cfg.CLS.Timeout > 0 {
			opts = append(opts, transport.WithTimeout(cfg.CLS.Timeout))
		}

		c, err := transport.New(cfg.CLS.Endpoint, cfg.CLS.Credentials(), opts...)
		if err != nil {
			return nil, fmt.Errorf("creating cls client: %w", err)
		}
		return c, nil
	}
}

// withClient adapts an admin action to cobra's RunE.
func withClient(newClient clientFactory, fn func(cmd *cobra.Command, c resource.Caller, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return fn(cmd, c, args)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return err
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// parseTime accepts RFC 3339, or a duration meaning that long before now.
// Empty means now.
func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "" || s == "now" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: want RFC 3339 or a duration", s)
	}
	return now.Add(-d), nil
}

func timeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	t, err := parseTime(v, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
