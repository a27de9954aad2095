// Package jobs runs single generation jobs against the provider and records
// their outcome in the asset store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adstory/internal/assets"
	"adstory/internal/domain"
	"adstory/internal/infra"
)

// Sink persists ready payloads outside the store. Failures are logged only.
type Sink interface {
	Persist(ctx context.Context, scene int, kind domain.AssetKind, media domain.Media) error
}

// Options configures a Runner.
type Options struct {
	Provider domain.GenerationProvider
	Sink     Sink
	Logger   *infra.Logger

	// SampleRate labels speech payloads; the provider emits 24 kHz.
	SampleRate int

	// PollInterval spaces video status checks.
	PollInterval time.Duration
	// PollTimeout bounds the whole wait for a video; zero means no bound
	// beyond the caller's context.
	PollTimeout time.Duration
	// MaxPolls bounds the number of status checks; zero means unbounded.
	MaxPolls int

	ProgressInterval time.Duration
	ProgressMessages []string

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner executes image, speech and video jobs. Each job writes through the
// cell it was handed, so it can only touch the plan it was created for.
type Runner struct {
	provider domain.GenerationProvider
	sink     Sink
	logger   *infra.Logger
	pcmMIME  string

	pollInterval     time.Duration
	pollTimeout      time.Duration
	maxPolls         int
	progressInterval time.Duration
	progressMessages []string
	sleep            func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	progress map[int]*Ticker
}

const (
	DefaultPollInterval     = 10 * time.Second
	DefaultProgressInterval = 4 * time.Second
)

func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	r := &Runner{
		provider:         opts.Provider,
		sink:             opts.Sink,
		logger:           logger,
		pollInterval:     opts.PollInterval,
		pollTimeout:      opts.PollTimeout,
		maxPolls:         opts.MaxPolls,
		progressInterval: opts.ProgressInterval,
		progressMessages: opts.ProgressMessages,
		sleep:            opts.Sleep,
		progress:         make(map[int]*Ticker),
	}
	if r.pollInterval <= 0 {
		r.pollInterval = DefaultPollInterval
	}
	if r.progressInterval <= 0 {
		r.progressInterval = DefaultProgressInterval
	}
	if len(r.progressMessages) == 0 {
		r.progressMessages = []string{"Rendering video..."}
	}
	r.pcmMIME = PCMMIME(opts.SampleRate)
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	return r
}

// ImageContext carries the per-plan inputs of an image job.
type ImageContext struct {
	ProductImage *domain.ReferenceImage
	ModelImage   *domain.ReferenceImage
	AspectRatio  string
	Style        domain.Style
	PreserveFace bool
}

// GenerateImage renders the still into cell. When the cell already has a
// pending job the current asset is returned and no provider call is made.
func (r *Runner) GenerateImage(ctx context.Context, cell *assets.Cell, prompt string, ic ImageContext) (domain.Asset, error) {
	current, ok := cell.Begin()
	if !ok {
		return declined(cell, current)
	}

	req := domain.ImageRequest{
		Prompt:       prompt,
		AspectRatio:  ic.AspectRatio,
		Style:        ic.Style,
		PreserveFace: ic.PreserveFace,
	}
	for _, ref := range []*domain.ReferenceImage{ic.ProductImage, ic.ModelImage} {
		if ref != nil && len(ref.Data) > 0 {
			req.References = append(req.References, *ref)
		}
	}

	media, err := r.provider.GenerateImage(ctx, req)
	if err == nil && (media == nil || len(media.Data) == 0) {
		err = domain.RequestFailed("no image returned")
	}
	return r.finish(ctx, cell, media, err)
}

// GenerateAudio narrates the scene script with voice. The payload is raw PCM16.
func (r *Runner) GenerateAudio(ctx context.Context, cell *assets.Cell, script string, voice domain.Voice) (domain.Asset, error) {
	current, ok := cell.Begin()
	if !ok {
		return declined(cell, current)
	}

	pcm, err := r.provider.GenerateSpeech(ctx, domain.SpeechRequest{Text: script, Voice: voice})
	if err == nil && len(pcm) == 0 {
		err = domain.RequestFailed("no audio returned")
	}
	var media *domain.Media
	if err == nil {
		media = &domain.Media{Data: pcm, MIME: r.pcmMIME}
	}
	return r.finish(ctx, cell, media, err)
}

// PCMMIME labels raw speech payloads.
func PCMMIME(sampleRate int) string {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return fmt.Sprintf("audio/L16;rate=%d;channels=1", sampleRate)
}

// GenerateVideo animates the ready image next to cell. Without a ready image
// it fails with ErrPreconditionNotMet before touching the provider or any cell.
func (r *Runner) GenerateVideo(ctx context.Context, cell *assets.Cell, motionPrompt, aspectRatio string) (domain.Asset, error) {
	image, live := cell.Sibling(domain.AssetKindImage).Current()
	if !live {
		return domain.IdleAsset(cell.Kind()), errStale
	}
	if image.State != domain.AssetStateReady || len(image.Data) == 0 {
		return cell.Get(), fmt.Errorf("%w: scene %d has no ready image", domain.ErrPreconditionNotMet, cell.Scene())
	}

	current, ok := cell.Begin()
	if !ok {
		return declined(cell, current)
	}

	scene := cell.Scene()
	ticker := r.startProgress(scene)
	defer r.stopProgress(scene, ticker)

	log := r.logger.With().Int("scene", scene).Logger()
	handle, err := r.provider.StartVideoJob(ctx, domain.VideoRequest{
		Prompt:      motionPrompt,
		Source:      domain.ReferenceImage{Data: image.Data, MIME: image.MIME},
		AspectRatio: aspectRatio,
	})
	if err != nil {
		return r.finish(ctx, cell, nil, err)
	}
	log.Info().Str("job", handle.Name).Msg("jobs: video started")

	status, err := r.awaitVideo(ctx, cell, handle)
	if err != nil {
		return r.finish(ctx, cell, nil, err)
	}
	if strings.TrimSpace(status.MediaURI) == "" {
		return r.finish(ctx, cell, nil, domain.RequestFailed("video job finished without a media uri"))
	}

	media, err := r.provider.FetchMedia(ctx, status.MediaURI)
	if err == nil && (media == nil || len(media.Data) == 0) {
		err = domain.RequestFailed("downloaded video is empty")
	}
	if err == nil && media.URI == "" {
		media.URI = status.MediaURI
	}
	return r.finish(ctx, cell, media, err)
}

var errStale = fmt.Errorf("%w while job was running", domain.ErrSuperseded)

// declined explains a refused Begin: a stale cell belongs to a replaced
// plan, otherwise another job already owns the cell.
func declined(cell *assets.Cell, current domain.Asset) (domain.Asset, error) {
	if cell.Stale() {
		return domain.IdleAsset(cell.Kind()), errStale
	}
	return current, nil
}

// awaitVideo polls until the job is done. The wait ends early on context
// cancellation, PollTimeout, MaxPolls, or when the plan is replaced.
func (r *Runner) awaitVideo(ctx context.Context, cell *assets.Cell, handle domain.VideoJobHandle) (domain.VideoJobStatus, error) {
	pollCtx := ctx
	if r.pollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, r.pollTimeout)
		defer cancel()
	}

	status := domain.VideoJobStatus{Handle: handle}
	for attempt := 1; ; attempt++ {
		if err := r.sleep(pollCtx, r.pollInterval); err != nil {
			return status, r.waitError(err, attempt)
		}
		if cell.Stale() {
			return status, errStale
		}

		next, err := r.provider.PollVideoJob(pollCtx, status.Handle)
		if err != nil {
			if errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return status, r.waitError(pollCtx.Err(), attempt)
			}
			return status, err
		}
		if next.Handle.Name == "" && next.Handle.Ref == nil {
			next.Handle = status.Handle
		}
		status = next

		r.logger.Debug().
			Int("scene", cell.Scene()).
			Int("attempt", attempt).
			Bool("done", status.Done).
			Msg("jobs: video poll")

		if status.Done {
			return status, nil
		}
		if r.maxPolls > 0 && attempt >= r.maxPolls {
			return status, fmt.Errorf("%w: video not ready after %d polls", domain.ErrTimeout, attempt)
		}
	}
}

func (r *Runner) waitError(err error, attempt int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: video not ready after %d polls", domain.ErrTimeout, attempt-1)
	}
	return err
}

// finish records the outcome on cell and forwards ready payloads to the sink.
func (r *Runner) finish(ctx context.Context, cell *assets.Cell, media *domain.Media, err error) (domain.Asset, error) {
	log := r.logger.With().Int("scene", cell.Scene()).Str("kind", string(cell.Kind())).Logger()

	if err != nil {
		if errors.Is(err, errStale) {
			log.Info().Msg("jobs: plan replaced, dropping job")
			return domain.IdleAsset(cell.Kind()), err
		}
		asset, ok := cell.Fail(err)
		if !ok {
			log.Info().Err(err).Msg("jobs: discarding stale failure")
			return asset, fmt.Errorf("%w: %v", errStale, err)
		}
		log.Warn().Err(err).Str("code", asset.ErrorCode).Msg("jobs: generation failed")
		return asset, err
	}

	asset, ok := cell.Complete(*media)
	if !ok {
		log.Info().Msg("jobs: discarding stale completion")
		return asset, errStale
	}
	log.Info().Int("bytes", len(media.Data)).Msg("jobs: asset ready")

	if r.sink != nil {
		if err := r.sink.Persist(context.WithoutCancel(ctx), cell.Scene(), cell.Kind(), *media); err != nil {
			log.Warn().Err(err).Msg("jobs: persist asset failed")
		}
	}
	return asset, nil
}

// IsStale reports whether err means the job's plan was replaced.
func IsStale(err error) bool {
	return errors.Is(err, errStale)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
