// Package setup builds the runtime collaborators from a loaded configuration.
// It is shared by the desktop shell and the command line.
package setup

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jarwiz-ai/jarwiz/audiocapture"
	"github.com/jarwiz-ai/jarwiz/cache"
	"github.com/jarwiz-ai/jarwiz/config"
	"github.com/jarwiz-ai/jarwiz/deepgram"
	"github.com/jarwiz-ai/jarwiz/livesession"
	"github.com/jarwiz-ai/jarwiz/ragclient"
	"github.com/jarwiz-ai/jarwiz/recorder"
)

// ErrNoAPIKey is returned when live transcription is requested without a
// Deepgram key.
var ErrNoAPIKey = errors.New("deepgram API key not configured")

// Backend returns a client for the RAG backend.
func Backend(cfg *config.Config) *ragclient.Client {
	return ragclient.New(ragclient.Config{BaseURL: cfg.BackendURL})
}

// Pages returns the page image source. When the cache is enabled and opens,
// the returned cache must be closed on shutdown; otherwise it is nil.
func Pages(cfg *config.Config, backend *ragclient.Client) (ragclient.PageFetcher, *cache.Cache) {
	if !cfg.Cache.Enabled {
		return backend, nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		slog.Error("resolve cache dir", "error", err)
		return backend, nil
	}
	store, err := cache.New(dir)
	if err != nil {
		slog.Error("init cache", "error", err)
		return backend, nil
	}
	slog.Info("page cache initialized", "path", dir)
	return ragclient.NewCachedPages(backend, store, cfg.CacheTTL()), store
}

// Acquirer returns the ffmpeg capture backend configured for this machine.
func Acquirer(cfg *config.Config) (*audiocapture.FFmpeg, error) {
	return audiocapture.NewFFmpeg(audiocapture.FFmpegConfig{
		Path:             cfg.Capture.FFmpegPath,
		InputFormat:      cfg.Capture.InputFormat,
		DisplayDevice:    cfg.Capture.DisplayDevice,
		MicrophoneDevice: cfg.Capture.MicrophoneDevice,
		SampleRate:       cfg.Capture.SampleRate,
	})
}

// ListenOptions returns the socket parameters for cfg.
func ListenOptions(cfg *config.Config) deepgram.ListenOptions {
	opts := deepgram.DefaultListenOptions()
	opts.Model = cfg.Listen.Model
	opts.Language = cfg.Listen.Language
	opts.UtteranceEndMs = cfg.Listen.UtteranceEndMs
	return opts
}

// Session wires a transcription session to Deepgram, the recorder and acq.
func Session(cfg *config.Config, acq audiocapture.Acquirer) (*livesession.Session, error) {
	if cfg.DeepgramAPIKey == "" {
		return nil, ErrNoAPIKey
	}

	opts := ListenOptions(cfg)
	apiKey := cfg.DeepgramAPIKey
	interval := cfg.ChunkInterval()

	constraints := audiocapture.DefaultConstraints()
	constraints.SampleRate = cfg.Capture.SampleRate

	s, err := livesession.New(livesession.Config{
		Acquirer: acq,
		Dial: func() (livesession.Transport, error) {
			c, err := deepgram.NewClient(deepgram.Config{APIKey: apiKey, Options: opts})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		NewRecorder: func() livesession.Recorder {
			return recorder.New(recorder.Options{Interval: interval, PreferOpus: true})
		},
		Constraints:       constraints,
		KeepAliveInterval: cfg.KeepAliveInterval(),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}
