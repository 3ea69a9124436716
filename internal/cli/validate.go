package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentStatus is the validation outcome of one document.
type DocumentStatus struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Documents []DocumentStatus `json:"documents"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for i, d := range r.Documents {
		if i > 0 {
			b.WriteByte('\n')
		}
		if d.Valid {
			fmt.Fprintf(&b, "✓ %s", d.Path)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n  [%s] %s", d.Path, d.Code, d.Message)
		if d.Line > 0 {
			fmt.Fprintf(&b, " (line %d)", d.Line)
		}
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <document>...",
		Short: "Check that documents build a query model",
		Long: `Decode each document, load its sources and build its query model without
executing it. Every document is checked; the command fails if any is
invalid.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	result := ValidationResult{Valid: true, Documents: make([]DocumentStatus, 0, len(paths))}

	for _, path := range paths {
		status := DocumentStatus{Path: path, Valid: true}
		loaded, err := opts.load(cmd, path)
		if err != nil {
			result.Valid = false
			status.Valid = false
			status.Code, status.Message = ErrCodeGeneric, err.Error()
			var le *LoadError
			if errors.As(err, &le) {
				status.Code, status.Message, status.Line = le.Code, le.Message, le.Line()
			}
		} else {
			f.VerboseLog("%s: %s", path, loaded.Model)
			loaded.Close()
		}
		result.Documents = append(result.Documents, status)
	}

	if result.Valid {
		return f.Success(result)
	}
	invalid := 0
	for _, d := range result.Documents {
		if !d.Valid {
			invalid++
		}
	}
	if f.Format == "json" {
		if err := f.encode(CLIResponse{
			Status:  "error",
			Data:    result,
			Error:   &CLIError{Code: ErrCodeDocument, Message: fmt.Sprintf("%d document(s) invalid", invalid)},
			TraceID: f.TraceID,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, result)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) invalid", invalid))
}
