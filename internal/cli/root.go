package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/msgledger/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string
	Driver     string
	Keypair    string

	// Config is resolved before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the msgledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "msgledger",
		Short: "msgledger - message records on a local ledger",
		Long: `A local ledger that stores signed, rent-paying message records.

Every transaction is logged with its receipt, whether it committed or failed,
and the log can be replayed to verify that execution is deterministic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(opts.ConfigFile, flagOverrides(cmd, opts))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg

			// Logs go to stderr so JSON output stays parseable.
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			})))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./msgledger.yaml or ~/.config/msgledger/msgledger.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "ledger path: SQLite file or Badger directory")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|badger)")
	cmd.PersistentFlags().StringVarP(&opts.Keypair, "keypair", "k", "", "signer keypair file")

	// Add subcommands
	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewAirdropCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewIDLCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// flagOverrides maps explicitly set global flags to config keys.
func flagOverrides(cmd *cobra.Command, opts *RootOptions) map[string]any {
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("db") {
		overrides["ledger.path"] = opts.Database
	}
	if flags.Changed("driver") {
		overrides["ledger.driver"] = opts.Driver
	}
	if flags.Changed("keypair") {
		overrides["keypair"] = opts.Keypair
	}
	if opts.Verbose {
		overrides["log.level"] = "debug"
	}
	return overrides
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
