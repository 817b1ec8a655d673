package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/internal/output"
	"github.com/jarwiz-ai/jarwiz/internal/setup"
	"github.com/jarwiz-ai/jarwiz/internal/types"
)

func NewPageCmd(deps *Dependencies) *cobra.Command {
	var page int
	var out string
	var bbox []float64

	cmd := &cobra.Command{
		Use:   "page <doc-id>",
		Short: "Download a page screenshot, optionally highlighting a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			if page < 1 {
				return fmt.Errorf("--page must be at least 1, got %d", page)
			}

			var box *types.BBox
			switch len(bbox) {
			case 0:
			case 4:
				box = &types.BBox{X0: &bbox[0], Y0: &bbox[1], X1: &bbox[2], Y1: &bbox[3]}
			default:
				return fmt.Errorf("--bbox takes 4 values (x0,y0,x1,y1), got %d", len(bbox))
			}

			pages, store := setup.Pages(deps.Config, deps.Backend)
			if store != nil {
				defer store.Close()
			}

			data, _, err := pages.PageImage(cmd.Context(), args[0], page, box)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s-p%d.png", args[0], page)
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write page image: %w", err)
			}
			formatter.Success("Page saved: " + out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number (1-based)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default <doc-id>-p<page>.png)")
	cmd.Flags().Float64SliceVar(&bbox, "bbox", nil, "Highlight rectangle x0,y0,x1,y1")

	return cmd
}
