package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jarwiz-ai/jarwiz/audiocapture"
	"github.com/jarwiz-ai/jarwiz/internal/output"
	"github.com/jarwiz-ai/jarwiz/internal/setup"
	"github.com/jarwiz-ai/jarwiz/livesession"
	"github.com/jarwiz-ai/jarwiz/transcript"
)

func NewListenCmd(deps *Dependencies) *cobra.Command {
	var input string
	var micOnly bool
	var ask bool
	var out string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Transcribe meeting audio live",
		Long: "Capture meeting and microphone audio with ffmpeg and stream it to Deepgram (Ctrl+C to stop).\n" +
			"Use --input - to read mono float32 little-endian PCM at the configured sample rate from stdin instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var acq audiocapture.Acquirer
			var ended <-chan struct{}
			switch input {
			case "":
				ff, err := setup.Acquirer(deps.Config)
				if err != nil {
					return err
				}
				if err := ff.CheckFFmpeg(); err != nil {
					return err
				}
				acq = ff
			case "-":
				r := newReaderAcquirer(cmd.InOrStdin(), deps.Config.Capture.SampleRate)
				acq = r
				ended = r.Done()
				micOnly = true
			default:
				return fmt.Errorf("unsupported --input %q, only - is accepted", input)
			}

			session, err := setup.Session(deps.Config, acq)
			if err != nil {
				return err
			}
			defer session.Close()

			var askMu sync.Mutex
			unsubscribe := session.Subscribe(func(u livesession.Update) {
				switch u.Kind {
				case livesession.UpdateState:
					formatter.Status(u.State.StatusLabel)
					if u.State.LastError != "" {
						formatter.Error(u.State.LastError)
					}
				case livesession.UpdateMessage:
					formatter.TranscriptLine(u.Message)
				case livesession.UpdateLatestSentence:
					formatter.LatestSentence(u.Sentence)
					if ask {
						// Listeners must not block the session.
						go func(q string) {
							askMu.Lock()
							defer askMu.Unlock()
							res, err := deps.Backend.Query(ctx, q, "", 0)
							if err != nil {
								formatter.Error(err.Error())
								return
							}
							formatter.Answer(res, deps.Config.BackendURL)
						}(u.Sentence)
					}
				}
			})
			defer unsubscribe()

			if micOnly {
				err = session.ConnectMicrophone(ctx)
			} else {
				err = session.ConnectToMeeting(ctx)
			}
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
			case <-ended:
				// Let the service finish the last utterance.
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
			session.DisconnectAll()

			if out != "" {
				if err := os.WriteFile(out, []byte(transcript.Format(session.Messages(), time.Local)), 0644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				formatter.Success("Transcript saved: " + out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read PCM from stdin (-) instead of capturing devices")
	cmd.Flags().BoolVar(&micOnly, "mic-only", false, "Transcribe the microphone without meeting audio")
	cmd.Flags().BoolVar(&ask, "ask", false, "Ask the backend every new sentence")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the transcript to a file on exit")

	return cmd
}

// readerAcquirer serves one microphone track read from r. Meeting audio is
// not available.
type readerAcquirer struct {
	track *audiocapture.FeedTrack
	used  bool
	mu    sync.Mutex
}

func newReaderAcquirer(r io.Reader, sampleRate int) *readerAcquirer {
	return &readerAcquirer{track: audiocapture.NewReaderTrack("stdin", sampleRate, r)}
}

func (a *readerAcquirer) AcquireDisplay(context.Context) (*audiocapture.DisplayCapture, error) {
	return nil, fmt.Errorf("stdin input: %w", audiocapture.ErrNoMediaAvailable)
}

// AcquireMicrophone hands out the stdin track once; the input cannot be
// rewound.
func (a *readerAcquirer) AcquireMicrophone(context.Context, audiocapture.Constraints) (audiocapture.Track, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.used {
		return nil, errors.New("stdin input already consumed")
	}
	a.used = true
	return a.track, nil
}

// Done is closed once the input is exhausted.
func (a *readerAcquirer) Done() <-chan struct{} {
	return a.track.Done()
}
