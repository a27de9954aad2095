package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
)

// Player renders decoded samples.
type Player interface {
	Play(ctx context.Context, samples []float32, sampleRate int) error
}

// Play decodes pcm and hands it to p.
func Play(ctx context.Context, p Player, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return p.Play(ctx, DecodePCM16(pcm), sampleRate)
}

// CommandPlayer streams float32 samples to an external player over stdin.
// The default invocation is ffplay reading raw f32le.
type CommandPlayer struct {
	Binary string
	Args   func(sampleRate int) []string
}

// NewFFPlay returns a player backed by ffplay.
func NewFFPlay() *CommandPlayer {
	return &CommandPlayer{
		Binary: "ffplay",
		Args: func(rate int) []string {
			return []string{"-nodisp", "-autoexit", "-loglevel", "error",
				"-f", "f32le", "-ar", strconv.Itoa(rate), "-ch_layout", "mono", "-i", "pipe:0"}
		},
	}
}

func (p *CommandPlayer) Play(ctx context.Context, samples []float32, sampleRate int) error {
	var buf bytes.Buffer
	buf.Grow(len(samples) * 4)
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("audio: encode samples: %w", err)
	}
	var args []string
	if p.Args != nil {
		args = p.Args(sampleRate)
	}
	cmd := exec.CommandContext(ctx, p.Binary, args...)
	cmd.Stdin = &buf
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio: %s: %w: %s", p.Binary, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
