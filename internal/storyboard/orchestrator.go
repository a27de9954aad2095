// Package storyboard wires a plan to its asset store: it fans out the
// initial image jobs and routes per-scene redraw, animate and narrate
// requests to the job runner.
package storyboard

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"adstory/internal/assets"
	"adstory/internal/domain"
	"adstory/internal/infra"
	"adstory/internal/jobs"
)

// Settings are the per-project generation inputs.
type Settings struct {
	Style        domain.Style
	Language     domain.Language
	AspectRatio  string
	Voice        domain.Voice
	PreserveFace bool
	ProductImage *domain.ReferenceImage
	ModelImage   *domain.ReferenceImage
}

// Notifier receives one call per failed job.
type Notifier func(scene int, kind domain.AssetKind, err error)

// Options configures an Orchestrator.
type Options struct {
	Store  *assets.Store
	Runner *jobs.Runner
	Logger *infra.Logger
	// Base bounds detached jobs; cancelling it stops them. Nil means
	// context.Background.
	Base context.Context
	// FanOutLimit caps concurrent initial image jobs; zero means one per scene.
	FanOutLimit int
	Notify      Notifier
}

// Orchestrator owns one plan at a time.
type Orchestrator struct {
	store       *assets.Store
	runner      *jobs.Runner
	logger      *infra.Logger
	base        context.Context
	fanOutLimit int
	notify      Notifier

	mu          sync.Mutex
	plan        *domain.Plan
	settings    Settings
	generation  uint64
	initialized string
	fanOutDone  chan struct{}
}

func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	base := opts.Base
	if base == nil {
		base = context.Background()
	}
	return &Orchestrator{
		store:       opts.Store,
		runner:      opts.Runner,
		logger:      logger,
		base:        base,
		fanOutLimit: opts.FanOutLimit,
		notify:      opts.Notify,
	}
}

// Detach returns a context that keeps ctx's values but is cancelled by the
// orchestrator's base context instead of ctx. Call the CancelFunc when the
// job ends.
func (o *Orchestrator) Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(o.base, cancel)
	return jobCtx, func() {
		stop()
		cancel()
	}
}

// Submit replaces the current plan, clears every asset, and starts the
// initial image fan-out. Jobs from the previous plan can no longer write.
func (o *Orchestrator) Submit(ctx context.Context, plan *domain.Plan, settings Settings) error {
	if plan == nil || len(plan.Scenes) == 0 {
		return fmt.Errorf("%w: plan has no scenes", domain.ErrInvalidPlan)
	}
	if plan.ID == "" {
		return fmt.Errorf("%w: plan has no id", domain.ErrInvalidPlan)
	}
	o.mu.Lock()
	o.plan = plan
	o.settings = settings
	o.initialized = ""
	o.runner.StopAll()
	o.generation = o.store.Reset(len(plan.Scenes))
	o.mu.Unlock()

	o.EnsureInitialImages(ctx, plan.ID)
	return nil
}

// EnsureInitialImages starts one image job per scene, at most once per plan
// ID. Repeated calls, or calls for a plan that is not current, do nothing.
// The jobs are detached from ctx's cancellation and write only into the
// generation of planID.
func (o *Orchestrator) EnsureInitialImages(ctx context.Context, planID string) bool {
	o.mu.Lock()
	if o.plan == nil || o.plan.ID != planID || o.initialized == planID {
		o.mu.Unlock()
		return false
	}
	o.initialized = planID
	plan, settings, generation := o.plan, o.settings, o.generation
	g := new(errgroup.Group)
	if o.fanOutLimit > 0 {
		g.SetLimit(o.fanOutLimit)
	}
	done := make(chan struct{})
	o.fanOutDone = done
	o.mu.Unlock()

	jobCtx, cancel := o.Detach(ctx)
	o.logger.Info().
		Str("plan_id", planID).
		Int("scenes", len(plan.Scenes)).
		Msg("storyboard: starting image fan-out")

	// g.Go blocks once the limit is reached, so scheduling runs off the caller's goroutine.
	go func() {
		defer close(done)
		defer cancel()
		for _, scene := range plan.Scenes {
			if o.store.Generation() != generation {
				o.logger.Info().Str("plan_id", planID).Msg("storyboard: plan replaced, fan-out stopped")
				break
			}
			t := target{scene: scene, settings: settings, generation: generation}
			g.Go(func() error {
				o.run(jobCtx, t, domain.AssetKindImage)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return true
}

// Wait blocks until the current fan-out has settled or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.fanOutDone
	o.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RedrawImage regenerates the still for scene.
func (o *Orchestrator) RedrawImage(ctx context.Context, scene int) (domain.Asset, error) {
	return o.trigger(ctx, scene, domain.AssetKindImage)
}

// Animate turns the scene's ready still into a video.
func (o *Orchestrator) Animate(ctx context.Context, scene int) (domain.Asset, error) {
	return o.trigger(ctx, scene, domain.AssetKindVideo)
}

// Narrate speaks the scene's script with the project voice.
func (o *Orchestrator) Narrate(ctx context.Context, scene int) (domain.Asset, error) {
	return o.trigger(ctx, scene, domain.AssetKindAudio)
}

func (o *Orchestrator) trigger(ctx context.Context, scene int, kind domain.AssetKind) (domain.Asset, error) {
	t, err := o.target(scene)
	if err != nil {
		return domain.Asset{}, err
	}
	return o.run(ctx, t, kind)
}

// target pins a scene to the plan generation it was read from.
type target struct {
	scene      domain.Scene
	settings   Settings
	generation uint64
}

// run executes one job for t. If the plan was replaced since t was read,
// the cell refuses the job and it ends with a superseded error.
func (o *Orchestrator) run(ctx context.Context, t target, kind domain.AssetKind) (domain.Asset, error) {
	cell := o.store.CellFor(t.generation, t.scene.Index, kind)
	var (
		asset domain.Asset
		err   error
	)
	switch kind {
	case domain.AssetKindImage:
		asset, err = o.runner.GenerateImage(ctx, cell, t.scene.ImagePrompt, imageContext(t.settings))
	case domain.AssetKindVideo:
		asset, err = o.runner.GenerateVideo(ctx, cell, t.scene.VideoPrompt, t.settings.AspectRatio)
	case domain.AssetKindAudio:
		asset, err = o.runner.GenerateAudio(ctx, cell, t.scene.AudioScript, t.settings.Voice)
	default:
		return domain.Asset{}, fmt.Errorf("%w: asset kind %q", domain.ErrNotFound, kind)
	}
	o.report(t.scene.Index, kind, err)
	return asset, err
}

// Trigger dispatches on kind.
func (o *Orchestrator) Trigger(ctx context.Context, scene int, kind domain.AssetKind) (domain.Asset, error) {
	switch kind {
	case domain.AssetKindImage:
		return o.RedrawImage(ctx, scene)
	case domain.AssetKindVideo:
		return o.Animate(ctx, scene)
	case domain.AssetKindAudio:
		return o.Narrate(ctx, scene)
	default:
		return domain.Asset{}, fmt.Errorf("%w: asset kind %q", domain.ErrNotFound, kind)
	}
}

// UpdateSettings changes the voice or aspect ratio used by later triggers.
func (o *Orchestrator) UpdateSettings(voice *domain.Voice, aspectRatio *string) Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	if voice != nil && *voice != "" {
		o.settings.Voice = *voice
	}
	if aspectRatio != nil && *aspectRatio != "" {
		o.settings.AspectRatio = *aspectRatio
	}
	return o.settings
}

// Reset drops the plan and every asset.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.plan = nil
	o.settings = Settings{}
	o.initialized = ""
	o.runner.StopAll()
	o.generation = o.store.Reset(0)
}

// SceneView is one scene with its assets.
type SceneView struct {
	Scene    domain.Scene
	Assets   map[domain.AssetKind]domain.Asset
	Progress string
}

// View is a consistent read of the orchestrator.
type View struct {
	Plan     *domain.Plan
	Settings Settings
	Scenes   []SceneView
}

// Snapshot returns the plan, settings, and a copy of every cell.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	plan, settings := o.plan, o.settings
	o.mu.Unlock()

	v := View{Plan: plan, Settings: settings}
	if plan == nil {
		return v
	}
	rows := o.store.Snapshot()
	for _, scene := range plan.Scenes {
		sv := SceneView{Scene: scene, Assets: map[domain.AssetKind]domain.Asset{}}
		if scene.Index < len(rows) {
			sv.Assets = rows[scene.Index].Assets
		}
		if msg, ok := o.runner.Progress(scene.Index); ok {
			sv.Progress = msg
		}
		v.Scenes = append(v.Scenes, sv)
	}
	return v
}

// Asset returns one cell.
func (o *Orchestrator) Asset(scene int, kind domain.AssetKind) (domain.Asset, error) {
	if _, err := o.target(scene); err != nil {
		return domain.Asset{}, err
	}
	return o.store.Get(scene, kind), nil
}

func (o *Orchestrator) target(index int) (target, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.plan == nil {
		return target{}, fmt.Errorf("%w: no active plan", domain.ErrNotFound)
	}
	s, ok := o.plan.Scene(index)
	if !ok {
		return target{}, fmt.Errorf("%w: scene %d", domain.ErrNotFound, index)
	}
	return target{scene: s, settings: o.settings, generation: o.generation}, nil
}

func (o *Orchestrator) report(scene int, kind domain.AssetKind, err error) {
	if err == nil || jobs.IsStale(err) || o.notify == nil {
		return
	}
	o.notify(scene, kind, err)
}

func imageContext(s Settings) jobs.ImageContext {
	return jobs.ImageContext{
		ProductImage: s.ProductImage,
		ModelImage:   s.ModelImage,
		AspectRatio:  s.AspectRatio,
		Style:        s.Style,
		PreserveFace: s.PreserveFace,
	}
}
