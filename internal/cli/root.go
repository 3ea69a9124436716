package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the dependencies shared by all
// commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // SQLite database serving table sources

	// Fs reads documents and scenarios. Defaults to the OS filesystem.
	Fs afero.Fs

	// Traces issues trace ids. Defaults to UUIDv7Generator.
	Traces TraceGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the qm CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith creates the root command around opts. Tests use it to
// inject a filesystem and a fixed trace generator.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qm",
		Short: "qm - query model toolkit",
		Long: `Build, inspect and run query models.

A query document names its data sources and an operator chain. qm turns
the chain into a query model, prints its canonical form or clause tree,
and executes it in memory.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database for table sources")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// formatter creates the output formatter for one command invocation.
func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	var traces TraceGenerator = UUIDv7Generator{}
	if opts.Traces != nil {
		traces = opts.Traces
	}
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   traces.Generate(),
	}
}

func (opts *RootOptions) filesystem() afero.Fs {
	if opts.Fs == nil {
		return afero.NewOsFs()
	}
	return opts.Fs
}
