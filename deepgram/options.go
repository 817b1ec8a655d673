// Package deepgram streams audio to the Deepgram live transcription API over
// a WebSocket and parses the events it sends back.
package deepgram

import (
	"net/url"
	"strconv"
)

// DefaultURL is the live transcription endpoint.
const DefaultURL = "wss://api.deepgram.com/v1/listen"

// ListenOptions are the connection parameters of one listen socket.
// They are fixed for the lifetime of the socket.
type ListenOptions struct {
	Model          string // Default: "nova-2"
	Language       string // Default: "en"
	SmartFormat    bool
	Punctuate      bool
	Diarize        bool
	InterimResults bool
	UtteranceEndMs int // Default: 3000
	FillerWords    bool

	// Raw audio only. Containerized audio (Ogg, WAV) leaves these empty.
	Encoding   string
	SampleRate int
	Channels   int
}

// DefaultListenOptions returns the parameters used for meeting transcription.
func DefaultListenOptions() ListenOptions {
	return ListenOptions{
		Model:          "nova-2",
		Language:       "en",
		SmartFormat:    true,
		Punctuate:      true,
		Diarize:        true,
		InterimResults: true,
		UtteranceEndMs: 3000,
		FillerWords:    true,
	}
}

// Values encodes the options as URL query parameters.
func (o ListenOptions) Values() url.Values {
	d := DefaultListenOptions()
	if o.Model == "" {
		o.Model = d.Model
	}
	if o.Language == "" {
		o.Language = d.Language
	}

	v := url.Values{}
	v.Set("model", o.Model)
	v.Set("language", o.Language)
	v.Set("smart_format", strconv.FormatBool(o.SmartFormat))
	v.Set("punctuate", strconv.FormatBool(o.Punctuate))
	v.Set("diarize", strconv.FormatBool(o.Diarize))
	v.Set("interim_results", strconv.FormatBool(o.InterimResults))
	if o.UtteranceEndMs > 0 {
		v.Set("utterance_end_ms", strconv.Itoa(o.UtteranceEndMs))
	}
	v.Set("filler_words", strconv.FormatBool(o.FillerWords))

	if o.Encoding != "" {
		v.Set("encoding", o.Encoding)
	}
	if o.SampleRate > 0 {
		v.Set("sample_rate", strconv.Itoa(o.SampleRate))
	}
	if o.Channels > 0 {
		v.Set("channels", strconv.Itoa(o.Channels))
	}
	return v
}

// ListenURL joins a base endpoint and the encoded options.
func ListenURL(base string, o ListenOptions) (string, error) {
	if base == "" {
		base = DefaultURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.RawQuery = o.Values().Encode()
	return u.String(), nil
}
