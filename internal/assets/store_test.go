package assets

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"adstory/internal/domain"
)

func TestStoreStartsIdle(t *testing.T) {
	s := NewStore()
	s.Reset(2)

	for _, kind := range domain.AssetKinds {
		if got := s.Get(1, kind).State; got != domain.AssetStateIdle {
			t.Fatalf("Get(1, %s).State = %q, want idle", kind, got)
		}
	}
	if s.Contains(2) {
		t.Fatalf("Contains(2) = true on a two-scene store")
	}
}

func TestCellBeginGuardsPending(t *testing.T) {
	s := NewStore()
	s.Reset(1)

	first := s.Cell(0, domain.AssetKindImage)
	if _, ok := first.Begin(); !ok {
		t.Fatalf("first Begin() = false, want true")
	}
	second := s.Cell(0, domain.AssetKindImage)
	asset, ok := second.Begin()
	if ok {
		t.Fatalf("second Begin() = true while pending")
	}
	if asset.State != domain.AssetStatePending {
		t.Fatalf("second Begin() state = %q, want pending", asset.State)
	}
}

func TestCellBeginConcurrentClaimsOnce(t *testing.T) {
	s := NewStore()
	s.Reset(1)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Cell(0, domain.AssetKindAudio).Begin(); ok {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if claims != 1 {
		t.Fatalf("claims = %d, want 1", claims)
	}
}

func TestCellCompleteAndFail(t *testing.T) {
	s := NewStore()
	s.Reset(1)

	c := s.Cell(0, domain.AssetKindImage)
	c.Begin()
	asset, ok := c.Complete(domain.Media{Data: []byte("png"), MIME: "image/png"})
	if !ok || asset.State != domain.AssetStateReady {
		t.Fatalf("Complete() = %+v, %v", asset, ok)
	}
	if got := s.Get(0, domain.AssetKindImage); !bytes.Equal(got.Data, []byte("png")) {
		t.Fatalf("stored data = %q, want png", got.Data)
	}

	// redraw keeps the old payload visible until the new one lands
	redraw := s.Cell(0, domain.AssetKindImage)
	pending, ok := redraw.Begin()
	if !ok || pending.State != domain.AssetStatePending || string(pending.Data) != "png" {
		t.Fatalf("redraw Begin() = %+v, %v", pending, ok)
	}
	failed, _ := redraw.Fail(domain.RequestFailed("no image returned"))
	if failed.State != domain.AssetStateFailed || failed.ErrorCode != domain.CodeProviderRequestFailed {
		t.Fatalf("Fail() = %+v", failed)
	}
	if failed.ErrorMessage == "" || failed.Data != nil {
		t.Fatalf("Fail() should carry a message and no payload: %+v", failed)
	}
}

func TestStaleCompletionDiscarded(t *testing.T) {
	s := NewStore()
	s.Reset(2)

	c := s.Cell(1, domain.AssetKindVideo)
	if _, ok := c.Begin(); !ok {
		t.Fatalf("Begin() = false")
	}
	s.Reset(3)

	if !c.Stale() {
		t.Fatalf("Stale() = false after reset")
	}
	if _, ok := c.Complete(domain.Media{Data: []byte("old")}); ok {
		t.Fatalf("stale Complete() accepted")
	}
	if _, ok := c.Fail(errors.New("late")); ok {
		t.Fatalf("stale Fail() accepted")
	}
	if got := s.Get(1, domain.AssetKindVideo).State; got != domain.AssetStateIdle {
		t.Fatalf("cell after stale completion = %q, want idle", got)
	}
	if _, ok := c.Begin(); ok {
		t.Fatalf("stale Begin() accepted")
	}
}

func TestCellForOldGenerationIssuedAfterReset(t *testing.T) {
	s := NewStore()
	old := s.Reset(2)
	current := s.Reset(2)

	c := s.CellFor(old, 0, domain.AssetKindImage)
	if _, ok := c.Begin(); ok {
		t.Fatalf("Begin() accepted for generation %d, current is %d", old, current)
	}
	if _, ok := c.Complete(domain.Media{Data: []byte("old")}); ok {
		t.Fatalf("Complete() accepted for an old generation")
	}
	if _, ok := c.Sibling(domain.AssetKindVideo).Current(); ok {
		t.Fatalf("Sibling().Current() readable for an old generation")
	}
	if got := s.Get(0, domain.AssetKindImage).State; got != domain.AssetStateIdle {
		t.Fatalf("cell = %q, want idle", got)
	}

	live := s.CellFor(current, 0, domain.AssetKindImage)
	live.Begin()
	live.Complete(domain.Media{Data: []byte("new")})
	got, ok := live.Sibling(domain.AssetKindVideo).Sibling(domain.AssetKindImage).Current()
	if !ok || string(got.Data) != "new" {
		t.Fatalf("Current() = %+v, %v", got, ok)
	}
}

func TestCompleteReplacesPayloadWhole(t *testing.T) {
	s := NewStore()
	s.Reset(1)

	oldPayload := bytes.Repeat([]byte{'a'}, 4096)
	newPayload := bytes.Repeat([]byte{'b'}, 8192)

	c := s.Cell(0, domain.AssetKindImage)
	c.Begin()
	c.Complete(domain.Media{Data: oldPayload, MIME: "image/png"})

	redraw := s.Cell(0, domain.AssetKindImage)
	redraw.Begin()

	done := make(chan struct{})
	torn := make(chan string, 1)
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			got := s.Get(0, domain.AssetKindImage).Data
			if !bytes.Equal(got, oldPayload) && !bytes.Equal(got, newPayload) {
				select {
				case torn <- string(got[:8]):
				default:
				}
				return
			}
		}
	}()
	redraw.Complete(domain.Media{Data: newPayload, MIME: "image/png"})
	<-done

	select {
	case prefix := <-torn:
		t.Fatalf("reader observed mixed payload starting %q", prefix)
	default:
	}
	if got := s.Get(0, domain.AssetKindImage).Data; !bytes.Equal(got, newPayload) {
		t.Fatalf("final payload length = %d, want %d", len(got), len(newPayload))
	}
}

func TestSnapshotOrdered(t *testing.T) {
	s := NewStore()
	s.Reset(3)
	s.Set(2, domain.AssetKindAudio, domain.Asset{State: domain.AssetStateReady, Data: []byte{1, 2}})
	s.Set(7, domain.AssetKindAudio, domain.Asset{State: domain.AssetStateReady})

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(Snapshot()) = %d, want 3", len(snap))
	}
	for i, row := range snap {
		if row.Scene != i {
			t.Fatalf("row %d has scene %d", i, row.Scene)
		}
	}
	if snap[2].Assets[domain.AssetKindAudio].State != domain.AssetStateReady {
		t.Fatalf("scene 2 audio not ready in snapshot")
	}
}
