package providers

import (
	"context"
	"errors"
	"testing"

	"adstory/internal/domain"
	"adstory/internal/infra"
	"adstory/internal/providers/gemini"
	"adstory/internal/providers/synthetic"
)

func TestNew(t *testing.T) {
	noKey := func(context.Context) (string, error) { return "", nil }

	p, err := New(&infra.Config{Provider: infra.ProviderSynthetic, AudioSampleRate: 24000}, noKey, nil)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	if _, ok := p.(*synthetic.Provider); !ok {
		t.Fatalf("synthetic: got %T", p)
	}

	p, err = New(&infra.Config{Provider: infra.ProviderGemini}, noKey, nil)
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if _, ok := p.(*gemini.Provider); !ok {
		t.Fatalf("gemini: got %T", p)
	}
	if _, err := p.GenerateSpeech(context.Background(), domain.SpeechRequest{Text: "Halo!"}); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("gemini without key: err = %v", err)
	}

	if _, err := New(&infra.Config{Provider: "openai"}, noKey, nil); err == nil {
		t.Fatal("unknown provider accepted")
	}
}
