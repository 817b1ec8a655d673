package cli

import (
	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/internal/app"
	"github.com/jarwiz-ai/jarwiz/internal/output"
)

func NewUploadCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload and index a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			if err := app.CheckPDF(args[0]); err != nil {
				return err
			}
			res, err := deps.Backend.UploadPDF(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter.Uploaded(res)
			return nil
		},
	}
}
