package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/canonical"
	"github.com/roach88/querymodel/internal/exec"
	"github.com/roach88/querymodel/internal/queryir"
	"github.com/roach88/querymodel/internal/store"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Record bool // append the run to the --db run log
}

// ExecResult is the output of the exec command. Exactly one of Items and
// Value is meaningful, as Scalar says.
type ExecResult struct {
	Document    string `json:"document"`
	Canonical   string `json:"canonical"`
	Fingerprint string `json:"fingerprint"`
	Scalar      bool   `json:"scalar"`
	Items       []any  `json:"items,omitempty"`
	Value       any    `json:"value,omitempty"`
	RunSeq      int64  `json:"run_seq,omitempty"`
}

func (r ExecResult) String() string {
	if r.Scalar {
		return jsonText(r.Value)
	}
	lines := make([]string, len(r.Items))
	for i, it := range r.Items {
		lines[i] = jsonText(it)
	}
	return strings.Join(lines, "\n")
}

func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <document>",
		Short: "Execute a query document in memory",
		Long: `Build the query model of a document and execute it in memory. Sequence
results print one JSON item per line; scalar results print one value.

With --record, the run (trace id, fingerprint, status, item count) is
appended to the run log of the --db database.

Exit codes:
  0 - The query ran
  1 - The query could not be built or failed during execution
  2 - Command error (missing document, database not openable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run in the --db run log")

	return cmd
}

func runExec(opts *ExecOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Record && opts.DB == "" {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "--record requires --db", nil)
	}

	loaded, err := opts.load(cmd, path)
	if err != nil {
		return failLoad(f, err)
	}
	defer loaded.Close()

	result := ExecResult{Document: loaded.Document.Name, Canonical: loaded.Model.String()}
	if result.Fingerprint, err = canonical.Fingerprint(loaded.Model); err != nil {
		return f.Fail(ExitFailure, ErrCodeBuild, "fingerprint failed", err)
	}

	slog.Debug("executing document", "path", path, "trace_id", f.TraceID, "fingerprint", result.Fingerprint)
	execErr := execute(loaded.Model, &result)

	if opts.Record {
		run := store.Run{
			ID:          f.TraceID,
			Document:    path,
			Fingerprint: result.Fingerprint,
			Canonical:   result.Canonical,
			Status:      "ok",
			Items:       len(result.Items),
		}
		if execErr != nil {
			run.Status, run.ErrorCode = "error", string(queryir.CodeOf(execErr))
		}
		if run, err = loaded.store.RecordRun(cmd.Context(), run); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to record run", err)
		}
		result.RunSeq = run.Seq
	}

	if execErr != nil {
		return f.Fail(ExitFailure, ErrCodeExecution, "execution failed", execErr)
	}
	return f.Success(result)
}

func execute(m *queryir.QueryModel, result *ExecResult) error {
	v, err := exec.New().Execute(m)
	if err != nil {
		return err
	}
	seq, ok := v.(queryir.Sequence)
	if !ok {
		result.Scalar, result.Value = true, v
		return nil
	}
	items, err := queryir.Collect(seq)
	if err != nil {
		return err
	}
	result.Items = items
	return nil
}
