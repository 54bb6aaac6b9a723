package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dmitrijs2005/xjournal/internal/buildinfo"
	"github.com/dmitrijs2005/xjournal/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands and the configuration
// resolved from them.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	VaultPath  string
	Journal    string
	Remote     string
	LogLevel   string
	LogFormat  string
	Format     string // "json" | "text"

	fs    afero.Fs
	stdin io.Reader
	cfg   *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the xjournal CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{fs: afero.NewOsFs(), stdin: os.Stdin})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xjournal",
		Short: "xjournal - encrypted journal with remote sync",
		Long: `Keeps journal entries encrypted at rest in a local SQLite database and
mirrors unsynchronized entries to a remote object store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a JSON config file")
	pf.StringVar(&opts.DBPath, "db", "", "path to the entry database")
	pf.StringVar(&opts.VaultPath, "vault", "", "path to the key vault file")
	pf.StringVarP(&opts.Journal, "journal", "j", "", "journal id")
	pf.StringVar(&opts.Remote, "remote", "", "remote kind (none|dir|s3|postgres)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newEditCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// resolve loads the config file and applies the flags that were set.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.fs, o.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("db", &cfg.DBPath, o.DBPath)
	override("vault", &cfg.VaultPath, o.VaultPath)
	override("journal", &cfg.Journal, o.Journal)
	override("remote", &cfg.Remote.Kind, o.Remote)
	override("log-level", &cfg.LogLevel, o.LogLevel)
	override("log-format", &cfg.LogFormat, o.LogFormat)

	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
			return nil
		},
	}
}
