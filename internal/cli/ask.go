package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/internal/app"
	"github.com/jarwiz-ai/jarwiz/internal/output"
	"github.com/jarwiz-ai/jarwiz/internal/types"
)

func NewAskCmd(deps *Dependencies) *cobra.Command {
	var docID string
	var topK int

	cmd := &cobra.Command{
		Use:     "ask <question>",
		Aliases: []string{"query"},
		Short:   "Ask a question against the indexed documents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return app.ErrEmptyQuery
			}
			res, err := deps.Backend.Query(cmd.Context(), question, docID, topK)
			if err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).Answer(res, deps.Config.BackendURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&docID, "doc", "d", "", "Restrict the search to one document id")
	cmd.Flags().IntVarP(&topK, "top-k", "k", types.DefaultTopK, "Number of chunks to retrieve")

	return cmd
}
