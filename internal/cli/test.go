package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r TestResult) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(&b, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	fmt.Fprintf(&b, "\nTest Summary: %d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <pattern>...",
		Short: "Run scenario files through the harness",
		Long: `Run query scenarios and check their expectations and assertions.

Each argument is a scenario file, a directory (searched recursively for
.yaml and .yml files) or a glob pattern; ** matches any number of
directories. When a scenario has a golden file in a golden/ directory
next to it, its snapshot must match the file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (bad pattern, etc.)

Examples:
  qm test ./scenarios
  qm test 'queries/**/*.yaml' --filter 'adults*'
  qm test ./scenarios --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by file name glob")

	return cmd
}

func runTests(opts *TestOptions, patterns []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Filter != "" && !doublestar.ValidatePattern(opts.Filter) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid filter pattern %q", opts.Filter), nil)
	}

	files, err := findScenarioFiles(patterns, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to find scenarios", err)
	}
	f.VerboseLog("Found %d scenario file(s)", len(files))

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(cmd.Context(), opts, file)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if result.Failed == 0 {
		return f.Success(result)
	}
	message := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if f.Format == "json" {
		if err := f.encode(CLIResponse{
			Status:  "error",
			Data:    result,
			Error:   &CLIError{Code: ErrCodeTests, Message: message},
			TraceID: f.TraceID,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, result)
	}
	return NewExitError(ExitFailure, message)
}

// findScenarioFiles expands the patterns into a sorted, duplicate-free
// list of YAML files whose base names match filter.
func findScenarioFiles(patterns []string, filter string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			pattern = filepath.Join(pattern, "**", "*.{yaml,yml}")
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no scenario files match %s", pattern)
		}
		for _, m := range matches {
			if ext := filepath.Ext(m); ext != ".yaml" && ext != ".yml" {
				continue
			}
			if filter != "" {
				if ok, _ := doublestar.Match(filter, filepath.Base(m)); !ok {
					continue
				}
			}
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// runScenario executes a single scenario and checks its golden file.
func runScenario(ctx context.Context, opts *TestOptions, file string) ScenarioResult {
	fs := opts.filesystem()
	sr := ScenarioResult{Name: filepath.Base(file), Path: file}

	scenario, err := harness.LoadScenario(fs, file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(ctx, scenario, fs)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Pass, sr.Errors = result.Pass, result.Errors

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("snapshot failed: %v", err))
		return sr
	}
	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(fs, goldenPath, snapshot); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return sr
	}

	golden, err := afero.ReadFile(fs, goldenPath)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return sr
	}
	if string(golden) != string(snapshot) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
