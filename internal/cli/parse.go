package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/canonical"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Snapshot bool // include the canonical JSON snapshot
}

// ParseResult is the output of the parse command.
type ParseResult struct {
	Document    string          `json:"document"`
	Canonical   string          `json:"canonical"`
	Fingerprint string          `json:"fingerprint"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
}

func (r ParseResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Canonical)
	fmt.Fprintf(&b, "fingerprint: %s", r.Fingerprint)
	if r.Snapshot != nil {
		fmt.Fprintf(&b, "\n%s", r.Snapshot)
	}
	return b.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <document>",
		Short: "Build a query model and print its canonical form",
		Long: `Build the query model of a document and print its canonical text form
and fingerprint. Models with the same fingerprint are structurally equal.

Examples:
  qm parse adults.yaml
  qm parse adults.cue --snapshot --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Snapshot, "snapshot", false, "include the canonical JSON snapshot")

	return cmd
}

func runParse(opts *ParseOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	loaded, err := opts.load(cmd, path)
	if err != nil {
		return failLoad(f, err)
	}
	defer loaded.Close()
	f.VerboseLog("Built model for %s", path)

	result := ParseResult{Document: loaded.Document.Name, Canonical: loaded.Model.String()}
	if result.Fingerprint, err = canonical.Fingerprint(loaded.Model); err != nil {
		return f.Fail(ExitFailure, ErrCodeBuild, "fingerprint failed", err)
	}
	if opts.Snapshot {
		snapshot, err := canonical.Snapshot(loaded.Model)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeBuild, "snapshot failed", err)
		}
		result.Snapshot = snapshot
	}
	return f.Success(result)
}
