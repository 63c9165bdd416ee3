package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/throwdown/internal/config"
	"github.com/vango-dev/throwdown/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "throwdown",
		Short: "Node identity and lifecycle tracking for mutable trees",
		Long: `throwdown attaches persistent identities and lifecycle callbacks to
nodes of a mutable tree and keeps component state in sync with the
tree's structural changes.

Configuration is read from throwdown.json or throwdown.yaml in the
working directory, then overridden by THROWDOWN_* environment variables
and command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			}
			cfg, err := loadSettings(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(cfg.Log.Handler(cmd.ErrOrStderr()))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: throwdown.json or throwdown.yaml in the working directory)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Bool("no-color", false, "Disable colored error output")
	bindFlags(a.v, flags, map[string]string{
		"config":     "config",
		"log.level":  "log-level",
		"log.format": "log-format",
	})

	rootCmd.AddCommand(
		demoCmd(a),
		watchCmd(a),
		configCmd(a),
		versionCmd(),
	)
	return rootCmd
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("throwdown: %v", err))
	}
}
