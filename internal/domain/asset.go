package domain

import (
	"fmt"
	"strings"
	"time"
)

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
	AssetKindAudio AssetKind = "audio"
)

// AssetKinds lists every kind in display order.
var AssetKinds = []AssetKind{AssetKindImage, AssetKindVideo, AssetKindAudio}

// ParseAssetKind validates a kind received from a caller.
func ParseAssetKind(raw string) (AssetKind, error) {
	kind := AssetKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case AssetKindImage, AssetKindVideo, AssetKindAudio:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown asset kind %q", raw)
	}
}

// AssetState enumerates the lifecycle of a single asset cell.
type AssetState string

const (
	AssetStateIdle    AssetState = "idle"
	AssetStatePending AssetState = "pending"
	AssetStateReady   AssetState = "ready"
	AssetStateFailed  AssetState = "failed"
)

// Media is a payload produced by a provider.
type Media struct {
	Data []byte
	MIME string
	URI  string
}

// Asset is the state of one (scene, kind) cell.
//
// Data is never mutated in place; a completed job swaps in a new slice so
// readers holding an Asset value always see one whole payload.
type Asset struct {
	Kind         AssetKind
	State        AssetState
	Data         []byte
	MIME         string
	URI          string
	ErrorCode    string
	ErrorMessage string
	UpdatedAt    time.Time
}

// IdleAsset returns the zero state for kind.
func IdleAsset(kind AssetKind) Asset {
	return Asset{Kind: kind, State: AssetStateIdle}
}

// Ready reports whether the asset holds a usable payload.
func (a Asset) Ready() bool {
	return a.State == AssetStateReady && len(a.Data) > 0
}

// Pending reports whether a job currently owns the asset.
func (a Asset) Pending() bool {
	return a.State == AssetStatePending
}
