// Package synthetic is an offline GenerationProvider. It renders
// deterministic placeholder assets so the whole pipeline runs without
// network access or API keys.
package synthetic

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adstory/internal/domain"
	"adstory/internal/infra"
)

// Options tunes the synthetic backend.
type Options struct {
	// PollsUntilDone is how many polls a video job needs before it finishes.
	PollsUntilDone int
	SampleRate     int
	// Latency is added to every call.
	Latency time.Duration
	Logger  *infra.Logger
}

// Provider implements domain.GenerationProvider without network access.
type Provider struct {
	pollsUntilDone int
	sampleRate     int
	latency        time.Duration
	logger         *infra.Logger

	mu     sync.Mutex
	jobs   map[string]*videoJob
	videos map[string][]byte
}

type videoJob struct {
	seed   string
	prompt string
	polls  int
}

var _ domain.GenerationProvider = (*Provider)(nil)

func NewProvider(opts Options) *Provider {
	if opts.PollsUntilDone <= 0 {
		opts.PollsUntilDone = 3
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Provider{
		pollsUntilDone: opts.PollsUntilDone,
		sampleRate:     opts.SampleRate,
		latency:        opts.Latency,
		logger:         logger,
		jobs:           make(map[string]*videoJob),
		videos:         make(map[string][]byte),
	}
}

func (p *Provider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GeneratePlan builds a three-scene storyboard from the request.
func (p *Provider) GeneratePlan(ctx context.Context, req domain.PlanRequest) (*domain.Plan, error) {
	if len(req.ProductImages) == 0 {
		return nil, fmt.Errorf("%w: at least one product image is required", domain.ErrInvalidPlan)
	}
	if err := p.wait(ctx); err != nil {
		return nil, domain.RequestFailed("generate plan: %v", err)
	}
	product := strings.TrimSuffix(req.ProductImages[0].Filename, extOf(req.ProductImages[0].Filename))
	if product == "" {
		product = "product"
	}
	style := req.Style.Label
	if style == "" {
		style = "Cinematic"
	}
	beats := []struct{ visual, motion, line string }{
		{"hero shot of the %s on a clean surface", "slow push-in toward the %s", "Stop scrolling. Meet %s."},
		{"close-up detail of the %s texture", "gentle orbit around the %s", "Every detail of %s is made for you."},
		{"%s in an everyday lifestyle moment", "hand reaches for the %s", "Get %s today."},
	}
	plan := &domain.Plan{
		ContentTitle:       fmt.Sprintf("%s | %s", strings.ToUpper(product[:1])+product[1:], style),
		KillerHook:         fmt.Sprintf(beats[0].line, product),
		ProductDescription: fmt.Sprintf("A %s storyboard for %s in %s.", strings.ToLower(style), product, req.Language.Label),
	}
	for i, b := range beats {
		plan.Scenes = append(plan.Scenes, domain.Scene{
			Number:      i + 1,
			VisualScene: fmt.Sprintf(b.visual, product),
			ImagePrompt: fmt.Sprintf(b.visual, product),
			VideoPrompt: fmt.Sprintf(b.motion, product),
			AudioScript: fmt.Sprintf(b.line, product),
			TextOverlay: strings.ToUpper(product),
		})
	}
	plan.Reindex()
	return plan, nil
}

// GenerateImage renders a striped PNG derived from the prompt.
func (p *Provider) GenerateImage(ctx context.Context, req domain.ImageRequest) (*domain.Media, error) {
	if err := p.wait(ctx); err != nil {
		return nil, domain.RequestFailed("generate image: %v", err)
	}
	width, height := normalizeAspect(req.AspectRatio)
	seed := deterministicSeed(req.Prompt, req.AspectRatio, req.Style.Key)
	img := renderImage(width/4, height/4, seed)
	if img == nil {
		return nil, domain.RequestFailed("no image returned")
	}
	p.logger.Debug().Str("seed", seed).Msg("synthetic: generated image")
	return &domain.Media{Data: img, MIME: "image/png"}, nil
}

// GenerateSpeech returns a sine tone whose length follows the word count.
func (p *Provider) GenerateSpeech(ctx context.Context, req domain.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, domain.RequestFailed("empty narration script")
	}
	if err := p.wait(ctx); err != nil {
		return nil, domain.RequestFailed("generate speech: %v", err)
	}
	return renderTone(req.Text, string(req.Voice), p.sampleRate), nil
}

// StartVideoJob registers a job that completes after PollsUntilDone polls.
func (p *Provider) StartVideoJob(ctx context.Context, req domain.VideoRequest) (domain.VideoJobHandle, error) {
	if len(req.Source.Data) == 0 {
		return domain.VideoJobHandle{}, fmt.Errorf("%w: source image is empty", domain.ErrPreconditionNotMet)
	}
	if err := p.wait(ctx); err != nil {
		return domain.VideoJobHandle{}, domain.RequestFailed("start video: %v", err)
	}
	seed := deterministicSeed(req.Prompt, req.AspectRatio, len(req.Source.Data), time.Now().UnixNano())
	name := "operations/synthetic-" + seed
	p.mu.Lock()
	p.jobs[name] = &videoJob{seed: seed, prompt: req.Prompt}
	p.mu.Unlock()
	return domain.VideoJobHandle{Name: name}, nil
}

func (p *Provider) PollVideoJob(ctx context.Context, handle domain.VideoJobHandle) (domain.VideoJobStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.VideoJobStatus{}, domain.RequestFailed("poll video: %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[handle.Name]
	if !ok {
		return domain.VideoJobStatus{}, fmt.Errorf("%w: Requested entity was not found: %s", domain.ErrResourceNotFound, handle.Name)
	}
	job.polls++
	status := domain.VideoJobStatus{Handle: handle}
	if job.polls < p.pollsUntilDone {
		return status, nil
	}
	uri := "synthetic://videos/" + job.seed + ".mp4"
	p.videos[uri] = renderVideo(job.seed, job.prompt)
	delete(p.jobs, handle.Name)
	status.Done = true
	status.MediaURI = uri
	return status, nil
}

func (p *Provider) FetchMedia(ctx context.Context, uri string) (*domain.Media, error) {
	if err := p.wait(ctx); err != nil {
		return nil, domain.RequestFailed("download video: %v", err)
	}
	p.mu.Lock()
	data, ok := p.videos[uri]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, uri)
	}
	return &domain.Media{Data: data, MIME: "video/mp4", URI: uri}, nil
}

func renderTone(text, voice string, sampleRate int) []byte {
	words := len(strings.Fields(text))
	seconds := float64(words) * 0.35
	if seconds < 1 {
		seconds = 1
	}
	seed := deterministicSeed(voice)
	freq := 180 + float64(mustParseHexByte(seed[:2]))
	n := int(seconds * float64(sampleRate))
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := 0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return out
}

func extOf(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		return name[idx:]
	}
	return ""
}
