package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/internal/output"
	"github.com/jarwiz-ai/jarwiz/internal/setup"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			ok := true

			if path := deps.Config.Path(); path != "" {
				f.SetupCheck("Config", true, path)
			}

			ff, err := setup.Acquirer(deps.Config)
			switch {
			case err != nil:
				f.SetupCheck("Audio capture", false, err.Error())
				ok = false
			case ff.CheckFFmpeg() != nil:
				f.SetupCheck("ffmpeg", false, "not found. Install ffmpeg or set JARWIZ_FFMPEG")
				ok = false
			default:
				f.SetupCheck("ffmpeg", true, "installed")
			}

			if deps.Config.DeepgramAPIKey != "" {
				f.SetupCheck("Deepgram API key", true, "configured")
			} else {
				f.SetupCheck("Deepgram API key", false, "not set. Set JARWIZ_DEEPGRAM_API_KEY or add to config")
				ok = false
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if docs, err := deps.Backend.ListDocuments(ctx); err != nil {
				f.SetupCheck("Backend", false, deps.Config.BackendURL+": "+err.Error())
				ok = false
			} else {
				f.SetupCheck("Backend", true, deps.Config.BackendURL+" ("+strconv.Itoa(len(docs))+" documents)")
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to listen!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
