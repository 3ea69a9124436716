package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/explain"
)

// ExplainResult is the output of the explain command.
type ExplainResult struct {
	Document string `json:"document"`
	Tree     string `json:"tree"`
}

func (r ExplainResult) String() string { return strings.TrimSuffix(r.Tree, "\n") }

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <document>",
		Short: "Print the clause tree of a query model",
		Long: `Build the query model of a document and print it as a tree: one branch
per clause and result operator, with sub-queries numbered #1, #2, ...
and expanded under the clause that uses them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			loaded, err := rootOpts.load(cmd, args[0])
			if err != nil {
				return failLoad(f, err)
			}
			defer loaded.Close()

			tree, err := explain.Explain(loaded.Model)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeBuild, "explain failed", err)
			}
			return f.Success(ExplainResult{Document: loaded.Document.Name, Tree: tree})
		},
	}
}
