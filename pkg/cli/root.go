package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	db "github.com/TechXTT/fluentdao"
	"github.com/TechXTT/fluentdao/internal/logger"
	"github.com/TechXTT/fluentdao/pkg/config"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "v0.1.0"

// NewVersionCmd builds the `version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}

// NewRootCmd builds the top-level `fluentdao` command.
func NewRootCmd() *cobra.Command {
	cfg := config.Default()
	root := &cobra.Command{
		Use:   "fluentdao",
		Short: "Run SQL and inspect tables through the fluentdao engine",
		Long: `fluentdao runs queries and statements through the fluentdao engine and
inspects table metadata.

Settings come from flags, FLUENTDAO_* environment variables (also read
from .env) and an optional TOML file given with --config, in that order of
priority. DATABASE_URL is used when no DSN is configured.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(); err != nil {
				return err
			}
			if err := config.SetAll(viper.New(), cmd.Flags()); err != nil {
				return err
			}
			cfg.Resolve()
			return nil
		},
	}
	cfg.Flags(root.PersistentFlags())
	root.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")

	root.AddCommand(newQueryCmd(cfg))
	root.AddCommand(newExecCmd(cfg))
	root.AddCommand(newColumnsCmd(cfg))
	root.AddCommand(newPrimaryKeyCmd(cfg))
	root.AddCommand(NewVersionCmd())
	return root
}

func connect(cmd *cobra.Command, cfg *config.Config) (*db.DB, error) {
	var log logger.Logger = logger.NewStandardLogger(cmd.ErrOrStderr())
	if cfg.Verbose {
		log = logger.NewVerboseLogger(cmd.ErrOrStderr())
	}
	return db.NewFromConfig(cmd.Context(), cfg, db.WithLogger(log))
}
