// Package assets holds the per-scene asset cells of the active storyboard.
package assets

import (
	"sync"
	"time"

	"adstory/internal/domain"
)

type cellKey struct {
	scene int
	kind  domain.AssetKind
}

// Store maps (scene, kind) to the current Asset. Every cell transition
// happens under mu, so a cell has at most one pending job and readers never
// observe a half-written payload.
type Store struct {
	mu         sync.RWMutex
	generation uint64
	scenes     int
	cells      map[cellKey]domain.Asset
	now        func() time.Time
}

// NewStore returns an empty store with no scenes.
func NewStore() *Store {
	return &Store{cells: make(map[cellKey]domain.Asset), now: time.Now}
}

// Reset clears every cell and sizes the store for a new plan. Jobs that
// started before the reset can no longer write.
func (s *Store) Reset(scenes int) uint64 {
	if scenes < 0 {
		scenes = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.scenes = scenes
	s.cells = make(map[cellKey]domain.Asset, scenes*len(domain.AssetKinds))
	return s.generation
}

// Generation identifies the current plan lifetime.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Scenes reports how many scenes the store is sized for.
func (s *Store) Scenes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenes
}

// Contains reports whether scene is addressable.
func (s *Store) Contains(scene int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scene >= 0 && scene < s.scenes
}

// Get returns the asset at (scene, kind); absent cells are idle.
func (s *Store) Get(scene int, kind domain.AssetKind) domain.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(scene, kind)
}

func (s *Store) getLocked(scene int, kind domain.AssetKind) domain.Asset {
	if a, ok := s.cells[cellKey{scene, kind}]; ok {
		return a
	}
	return domain.IdleAsset(kind)
}

// Set overwrites a cell. Out-of-range scenes are ignored.
func (s *Store) Set(scene int, kind domain.AssetKind, asset domain.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scene < 0 || scene >= s.scenes {
		return
	}
	asset.Kind = kind
	if asset.UpdatedAt.IsZero() {
		asset.UpdatedAt = s.now()
	}
	s.cells[cellKey{scene, kind}] = asset
}

// SceneAssets is one row of a snapshot.
type SceneAssets struct {
	Scene  int
	Assets map[domain.AssetKind]domain.Asset
}

// Snapshot copies every scene's cells in scene order.
func (s *Store) Snapshot() []SceneAssets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SceneAssets, 0, s.scenes)
	for i := 0; i < s.scenes; i++ {
		row := SceneAssets{Scene: i, Assets: make(map[domain.AssetKind]domain.Asset, len(domain.AssetKinds))}
		for _, kind := range domain.AssetKinds {
			row.Assets[kind] = s.getLocked(i, kind)
		}
		out = append(out, row)
	}
	return out
}

// Cell hands out the write capability for one (scene, kind) pair, bound to
// the current generation.
func (s *Store) Cell(scene int, kind domain.AssetKind) *Cell {
	return s.CellFor(s.Generation(), scene, kind)
}

// CellFor binds the capability to generation, usually the value Reset
// returned for the plan the job belongs to. A cell for an old generation
// never writes.
func (s *Store) CellFor(generation uint64, scene int, kind domain.AssetKind) *Cell {
	return &Cell{store: s, scene: scene, kind: kind, generation: generation}
}
