package recorder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// MimeWAV is the container produced by WAVEncoder.
const MimeWAV = "audio/wav"

// streamingSize marks RIFF sizes as unknown for a live stream.
const streamingSize = 0xFFFFFFFF

// WAVEncoder streams 16-bit PCM behind a WAV header with open-ended sizes.
// The header is part of the first flushed chunk.
type WAVEncoder struct {
	mu     sync.Mutex
	out    bytes.Buffer
	closed bool
}

// NewWAVEncoder creates an encoder for the given format.
func NewWAVEncoder(sampleRate, channels int) (*WAVEncoder, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: wav at %d Hz, %d channels", ErrUnsupportedFormat, sampleRate, channels)
	}
	e := &WAVEncoder{}
	writeWAVHeader(&e.out, sampleRate, channels)
	return e, nil
}

func writeWAVHeader(buf *bytes.Buffer, sampleRate, channels int) {
	blockAlign := channels * 2

	// RIFF header
	buf.WriteString("RIFF")
	writeUint32LE(buf, streamingSize)
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	writeUint32LE(buf, 16)                            // Chunk size
	writeUint16LE(buf, 1)                             // Audio format (PCM)
	writeUint16LE(buf, uint16(channels))              // Num channels
	writeUint32LE(buf, uint32(sampleRate))            // Sample rate
	writeUint32LE(buf, uint32(sampleRate*blockAlign)) // Byte rate
	writeUint16LE(buf, uint16(blockAlign))            // Block align
	writeUint16LE(buf, 16)                            // Bits per sample

	// data chunk
	buf.WriteString("data")
	writeUint32LE(buf, streamingSize)
}

func (e *WAVEncoder) MimeType() string { return MimeWAV }

func (e *WAVEncoder) Write(samples []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	for _, s := range samples {
		writeUint16LE(&e.out, uint16(floatToPCM16(s)))
	}
	return nil
}

func (e *WAVEncoder) Flush() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drain(), nil
}

func (e *WAVEncoder) drain() []byte {
	if e.out.Len() == 0 {
		return nil
	}
	b := make([]byte, e.out.Len())
	copy(b, e.out.Bytes())
	e.out.Reset()
	return b
}

func (e *WAVEncoder) Close() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.drain(), nil
}

// floatToPCM16 converts a [-1, 1] sample to int16, clamping out-of-range input.
func floatToPCM16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(math.Round(float64(s) * math.MaxInt16))
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint16LE(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
