package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/config"
	"github.com/jarwiz-ai/jarwiz/internal/version"
	"github.com/jarwiz-ai/jarwiz/ragclient"
)

type Dependencies struct {
	Config  *config.Config
	Backend *ragclient.Client
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "jarwiz",
		Short: "Ask your documents and transcribe meetings",
		Long:  "A CLI for the JarWiz RAG backend: upload PDFs, ask questions with citations, and transcribe live meeting audio with Deepgram.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(NewUploadCmd(deps))
	rootCmd.AddCommand(NewDocumentsCmd(deps))
	rootCmd.AddCommand(NewAskCmd(deps))
	rootCmd.AddCommand(NewPageCmd(deps))
	rootCmd.AddCommand(NewListenCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
