package domain

import "context"

// ImageRequest describes one still-image generation.
type ImageRequest struct {
	Prompt       string
	References   []ReferenceImage
	AspectRatio  string
	Style        Style
	PreserveFace bool
}

// VideoRequest animates a still image.
type VideoRequest struct {
	Prompt      string
	Source      ReferenceImage
	AspectRatio string
}

// SpeechRequest narrates text with a prebuilt voice.
type SpeechRequest struct {
	Text  string
	Voice Voice
}

// GenerationProvider is the generative backend. Implementations resolve
// credentials before any network call and classify failures with the
// sentinel errors of this package.
type GenerationProvider interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*Plan, error)
	GenerateImage(ctx context.Context, req ImageRequest) (*Media, error)
	StartVideoJob(ctx context.Context, req VideoRequest) (VideoJobHandle, error)
	PollVideoJob(ctx context.Context, handle VideoJobHandle) (VideoJobStatus, error)
	FetchMedia(ctx context.Context, uri string) (*Media, error)
	// GenerateSpeech returns raw PCM16 little-endian mono samples.
	GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error)
}
