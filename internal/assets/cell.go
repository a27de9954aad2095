package assets

import "adstory/internal/domain"

// Cell is the only way jobs mutate the store. Writes from a cell whose
// generation is no longer current are dropped.
type Cell struct {
	store      *Store
	scene      int
	kind       domain.AssetKind
	generation uint64
}

func (c *Cell) Scene() int { return c.scene }
func (c *Cell) Kind() domain.AssetKind { return c.kind }
func (c *Cell) Generation() uint64 { return c.generation }
func (c *Cell) Get() domain.Asset { return c.store.Get(c.scene, c.kind) }

// Sibling returns the cell of another kind in the same scene and generation.
func (c *Cell) Sibling(kind domain.AssetKind) *Cell {
	return &Cell{store: c.store, scene: c.scene, kind: kind, generation: c.generation}
}

// Current reads the cell. It reports false when the cell is stale.
func (c *Cell) Current() (domain.Asset, bool) {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation != c.generation {
		return domain.IdleAsset(c.kind), false
	}
	return s.getLocked(c.scene, c.kind), true
}

// Stale reports whether the store was reset after the cell was issued.
func (c *Cell) Stale() bool {
	return c.store.Generation() != c.generation
}

// Begin claims the cell for a job. It returns false, leaving the cell
// untouched, when a job already owns it or the cell is stale. A ready
// payload stays readable while the new job runs.
func (c *Cell) Begin() (domain.Asset, bool) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.getLocked(c.scene, c.kind)
	if s.generation != c.generation || c.scene < 0 || c.scene >= s.scenes {
		return current, false
	}
	if current.State == domain.AssetStatePending {
		return current, false
	}
	next := domain.Asset{
		Kind:      c.kind,
		State:     domain.AssetStatePending,
		Data:      current.Data,
		MIME:      current.MIME,
		URI:       current.URI,
		UpdatedAt: s.now(),
	}
	s.cells[cellKey{c.scene, c.kind}] = next
	return next, true
}

// Complete stores media as the ready payload. It reports false when the
// completion is stale and was discarded.
func (c *Cell) Complete(media domain.Media) (domain.Asset, bool) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != c.generation {
		return domain.IdleAsset(c.kind), false
	}
	next := domain.Asset{
		Kind:      c.kind,
		State:     domain.AssetStateReady,
		Data:      media.Data,
		MIME:      media.MIME,
		URI:       media.URI,
		UpdatedAt: s.now(),
	}
	s.cells[cellKey{c.scene, c.kind}] = next
	return next, true
}

// Fail records err on the cell. The previous payload is dropped.
func (c *Cell) Fail(err error) (domain.Asset, bool) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != c.generation {
		return domain.IdleAsset(c.kind), false
	}
	next := domain.Asset{
		Kind:         c.kind,
		State:        domain.AssetStateFailed,
		ErrorCode:    domain.ErrorCode(err),
		ErrorMessage: errMessage(err),
		UpdatedAt:    s.now(),
	}
	s.cells[cellKey{c.scene, c.kind}] = next
	return next, true
}

func errMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
