package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/throwdown/internal/errors"
)

func configCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after the config file, environment variables
and flags have been applied. The output is a valid config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "yaml", "json":
			default:
				return errors.New("E150").WithDetail("Unknown format " + format).
					WithSuggestion("Use --format yaml or --format json")
			}
			if p := a.cfg.Path(); p != "" {
				a.logger.Debug("loaded config", "path", p)
			}
			return a.cfg.Encode(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")

	return cmd
}
