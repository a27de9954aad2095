package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the length of the canonical RIFF/WAVE header.
const HeaderSize = 44

var ErrNotWAV = errors.New("audio: not a wav file")

// Header builds the 44-byte header for dataLen bytes of mono PCM16 at sampleRate.
func Header(dataLen, sampleRate int) [HeaderSize]byte {
	var h [HeaderSize]byte
	le := binary.LittleEndian
	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], 16)
	le.PutUint16(h[20:22], 1) // PCM
	le.PutUint16(h[22:24], 1) // mono
	le.PutUint32(h[24:28], uint32(sampleRate))
	le.PutUint32(h[28:32], uint32(sampleRate*2))
	le.PutUint16(h[32:34], 2)
	le.PutUint16(h[34:36], 16)
	copy(h[36:40], "data")
	le.PutUint32(h[40:44], uint32(dataLen))
	return h
}

// EncodeWAV prefixes pcm with a canonical header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	h := Header(len(pcm), sampleRate)
	out := make([]byte, 0, HeaderSize+len(pcm))
	out = append(out, h[:]...)
	return append(out, pcm...)
}

// Format describes a parsed WAV stream.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// ExtractPCM walks the RIFF chunks and returns the format and data payload.
func ExtractPCM(wav []byte) (Format, []byte, error) {
	var f Format
	if len(wav) < 12 || !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		return f, nil, ErrNotWAV
	}
	le := binary.LittleEndian
	seenFmt := false
	for off := 12; off+8 <= len(wav); {
		id := string(wav[off : off+4])
		size := int(le.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(wav) {
			return f, nil, fmt.Errorf("%w: chunk %q overruns file", ErrNotWAV, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return f, nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			f.AudioFormat = le.Uint16(wav[body:])
			f.Channels = le.Uint16(wav[body+2:])
			f.SampleRate = le.Uint32(wav[body+4:])
			f.BitsPerSample = le.Uint16(wav[body+14:])
			seenFmt = true
		case "data":
			if !seenFmt {
				return f, nil, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			return f, wav[body : body+size], nil
		}
		off = body + size + size%2
	}
	return f, nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
}
