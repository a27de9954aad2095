// Package audio converts the speech provider's raw PCM16 output into
// playable samples and downloadable WAV files.
package audio

import (
	"encoding/binary"
	"time"
)

// DefaultSampleRate is the rate of the speech provider's output.
const DefaultSampleRate = 24000

// DecodePCM16 converts little-endian signed 16-bit mono samples to floats
// in [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Duration reports how long pcm plays at sampleRate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
