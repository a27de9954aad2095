package storyboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"adstory/internal/assets"
	"adstory/internal/domain"
	"adstory/internal/infra"
	"adstory/internal/jobs"
	"adstory/internal/storage"
)

// Project is one storyboard session owned by a device.
type Project struct {
	ID           string
	DeviceID     string
	CreatedAt    time.Time
	Orchestrator *Orchestrator
}

// RegistryOptions configures how projects are assembled.
type RegistryOptions struct {
	Provider domain.GenerationProvider
	Logger   infra.Logger
	// Base is the server's root context; detached jobs stop when it ends.
	Base context.Context
	// Files persists ready assets per project when set.
	Files *storage.FileStore
	// Jobs is the template for each project's runner; Provider, Sink and
	// Logger are filled in per project.
	Jobs        jobs.Options
	FanOutLimit int
	SampleRate  int
	Notify      func(projectID string, scene int, kind domain.AssetKind, err error)
	Now         func() time.Time
}

// Registry keeps the live projects in memory.
type Registry struct {
	opts RegistryOptions

	mu       sync.RWMutex
	projects map[string]*Project
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{opts: opts, projects: make(map[string]*Project)}
}

// Create starts a project for plan and kicks off its image fan-out.
func (r *Registry) Create(ctx context.Context, deviceID string, plan *domain.Plan, settings Settings) (*Project, error) {
	id := uuid.NewString()
	p := &Project{
		ID:           id,
		DeviceID:     deviceID,
		CreatedAt:    r.opts.Now(),
		Orchestrator: r.newOrchestrator(id),
	}
	if err := submit(ctx, p, plan, settings); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.projects[id] = p
	r.mu.Unlock()

	r.opts.Logger.Info().
		Str("project_id", id).
		Str("plan_id", plan.ID).
		Int("scenes", len(plan.Scenes)).
		Msg("storyboard: project created")
	return p, nil
}

// Resubmit replaces the plan of an existing project. Jobs still running for
// the old plan finish without touching the new one.
func (r *Registry) Resubmit(ctx context.Context, projectID, deviceID string, plan *domain.Plan, settings Settings) (*Project, error) {
	p, err := r.Get(projectID, deviceID)
	if err != nil {
		return nil, err
	}
	if r.opts.Files != nil {
		if err := r.opts.Files.RemoveAll(ctx, projectPrefix(p.ID)); err != nil {
			r.opts.Logger.Warn().Err(err).Str("project_id", p.ID).Msg("storyboard: clear files failed")
		}
	}
	if err := submit(ctx, p, plan, settings); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the project if deviceID owns it.
func (r *Registry) Get(projectID, deviceID string) (*Project, error) {
	r.mu.RLock()
	p, ok := r.projects[projectID]
	r.mu.RUnlock()
	if !ok || p.DeviceID != deviceID {
		return nil, fmt.Errorf("%w: project %s", domain.ErrNotFound, projectID)
	}
	return p, nil
}

// Delete starts over: the store is cleared and the project forgotten.
func (r *Registry) Delete(ctx context.Context, projectID, deviceID string) error {
	p, err := r.Get(projectID, deviceID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.projects, projectID)
	r.mu.Unlock()

	p.Orchestrator.Reset()
	if r.opts.Files != nil {
		if err := r.opts.Files.RemoveAll(ctx, projectPrefix(projectID)); err != nil {
			return fmt.Errorf("remove project files: %w", err)
		}
	}
	return nil
}

// Len reports how many projects are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

func (r *Registry) newOrchestrator(projectID string) *Orchestrator {
	logger := r.opts.Logger.With().Str("project_id", projectID).Logger()
	store := assets.NewStore()

	jobOpts := r.opts.Jobs
	jobOpts.Provider = r.opts.Provider
	jobOpts.Logger = &logger
	jobOpts.SampleRate = r.opts.SampleRate
	if r.opts.Files != nil {
		jobOpts.Sink = &FileSink{Files: r.opts.Files, Prefix: projectPrefix(projectID), SampleRate: r.opts.SampleRate}
	}

	var notify Notifier
	if r.opts.Notify != nil {
		notify = func(scene int, kind domain.AssetKind, err error) {
			r.opts.Notify(projectID, scene, kind, err)
		}
	}
	return NewOrchestrator(Options{
		Store:       store,
		Runner:      jobs.NewRunner(jobOpts),
		Logger:      &logger,
		Base:        r.opts.Base,
		FanOutLimit: r.opts.FanOutLimit,
		Notify:      notify,
	})
}

func submit(ctx context.Context, p *Project, plan *domain.Plan, settings Settings) error {
	if plan == nil {
		return fmt.Errorf("%w: empty plan", domain.ErrInvalidPlan)
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.Reindex()
	return p.Orchestrator.Submit(ctx, plan, settings)
}

func projectPrefix(projectID string) string {
	return "projects/" + projectID
}
