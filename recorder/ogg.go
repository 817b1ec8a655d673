package recorder

import (
	"bytes"
	"fmt"
	"sync"

	opuscodec "github.com/jj11hh/opus"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// MimeOggOpus is the container produced by OggOpusEncoder.
const MimeOggOpus = "audio/ogg;codecs=opus"

const (
	opusFrameDuration = 20 // ms
	opusPayloadType   = 111
	maxOpusPacket     = 1275
)

// OggOpusEncoder encodes 20 ms Opus frames into an Ogg stream. The Ogg
// headers are part of the first flushed chunk.
type OggOpusEncoder struct {
	mu sync.Mutex

	enc      *opuscodec.Encoder
	ogg      *oggwriter.OggWriter
	out      bytes.Buffer
	channels int

	frameSize int // samples per channel per frame
	pending   []float32
	packet    []byte

	seq       uint16
	timestamp uint32
	closed    bool
}

// NewOggOpusEncoder creates an encoder. sampleRate must be one Opus accepts
// (8000, 12000, 16000, 24000 or 48000).
func NewOggOpusEncoder(sampleRate, channels int) (*OggOpusEncoder, error) {
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("%w: opus at %d Hz", ErrUnsupportedFormat, sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: opus with %d channels", ErrUnsupportedFormat, channels)
	}

	enc, err := opuscodec.NewEncoder(sampleRate, channels, opuscodec.AppRestrictedLowdelay)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	e := &OggOpusEncoder{
		enc:       enc,
		channels:  channels,
		frameSize: sampleRate * opusFrameDuration / 1000,
		packet:    make([]byte, maxOpusPacket),
	}
	e.ogg, err = oggwriter.NewWith(&e.out, uint32(sampleRate), uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("create ogg writer: %w", err)
	}
	return e, nil
}

func (e *OggOpusEncoder) MimeType() string { return MimeOggOpus }

func (e *OggOpusEncoder) Write(samples []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	e.pending = append(e.pending, samples...)
	n := e.frameSize * e.channels
	for len(e.pending) >= n {
		if err := e.encodeFrame(e.pending[:n]); err != nil {
			return err
		}
		e.pending = e.pending[n:]
	}
	if len(e.pending) == 0 {
		e.pending = nil
	}
	return nil
}

func (e *OggOpusEncoder) encodeFrame(frame []float32) error {
	n, err := e.enc.EncodeFloat32(frame, e.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}

	// Ogg granule positions are always counted at 48 kHz.
	e.timestamp += uint32(opusFrameDuration * 48)
	e.seq++

	err = e.ogg.WriteRTP(&rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: e.seq,
			Timestamp:      e.timestamp,
		},
		Payload: e.packet[:n],
	})
	if err != nil {
		return fmt.Errorf("write ogg page: %w", err)
	}
	return nil
}

func (e *OggOpusEncoder) Flush() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drain(), nil
}

func (e *OggOpusEncoder) drain() []byte {
	if e.out.Len() == 0 {
		return nil
	}
	b := make([]byte, e.out.Len())
	copy(b, e.out.Bytes())
	e.out.Reset()
	return b
}

// Close pads and encodes the last partial frame.
func (e *OggOpusEncoder) Close() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nil
	}
	e.closed = true

	if len(e.pending) > 0 {
		frame := make([]float32, e.frameSize*e.channels)
		copy(frame, e.pending)
		e.pending = nil
		if err := e.encodeFrame(frame); err != nil {
			return nil, err
		}
	}
	if err := e.ogg.Close(); err != nil {
		return nil, fmt.Errorf("close ogg writer: %w", err)
	}
	return e.drain(), nil
}
