package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfileDefaults(t *testing.T) {
	p, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile returned error: %v", err)
	}
	if len(p.ProgressMessages) != len(DefaultProgressMessages) {
		t.Fatalf("ProgressMessages = %d, want %d", len(p.ProgressMessages), len(DefaultProgressMessages))
	}
	if got := len(p.Catalog().Voices); got != 5 {
		t.Fatalf("voices = %d, want 5", got)
	}
}

func TestLoadProfileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	body := `
progress_messages:
  - "Rendering..."
styles:
  - key: cinematic
    descriptor: "noir, high contrast"
voices: [Kore]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile returned error: %v", err)
	}
	if len(p.ProgressMessages) != 1 || p.ProgressMessages[0] != "Rendering..." {
		t.Fatalf("ProgressMessages mismatch: %#v", p.ProgressMessages)
	}
	c := p.Catalog()
	if c.Style("cinematic").Descriptor != "noir, high contrast" {
		t.Fatalf("style override not applied: %+v", c.Style("cinematic"))
	}
	if len(c.Voices) != 1 || c.Voices[0] != "Kore" {
		t.Fatalf("voices mismatch: %#v", c.Voices)
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("LoadProfile accepted a missing file")
	}
}
