package cli

import (
	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/internal/output"
)

func NewDocumentsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs", "list"},
		Short:   "List indexed documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := deps.Backend.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).DocumentList(docs)
			return nil
		},
	}
}
