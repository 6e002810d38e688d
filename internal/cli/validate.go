package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/pipeline"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid:\n")

			if !cfg.CLS.Enabled {
				fmt.Fprintf(out, "  CLS output: disabled\n")
				return nil
			}

			p, err := pipeline.New(cfg, logger.NewConsoleLogger(io.Discard))
			if err != nil {
				return fmt.Errorf("pipeline configuration error: %w", err)
			}

			input := "stdin"
			if len(cfg.Input.Files) > 0 {
				input = strings.Join(cfg.Input.Files, ", ")
			}

			fmt.Fprintf(out, "  Endpoint:   %s://%s\n", cfg.CLS.Scheme, cfg.CLS.Endpoint)
			fmt.Fprintf(out, "  Topic:      %s/%s\n", cfg.CLS.LogSetName, cfg.CLS.TopicName)
			fmt.Fprintf(out, "  Min level:  %s\n", cfg.CLS.MinLevel)
			fmt.Fprintf(out, "  Input:      %s\n", input)
			fmt.Fprintf(out, "  Processors: %d enabled\n", p.ProcessorCount())
			return nil
		},
	}
}
