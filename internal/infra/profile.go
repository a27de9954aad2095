package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"adstory/internal/domain"
)

// DefaultProgressMessages rotate while a video job is pending.
var DefaultProgressMessages = []string{
	"Mempersiapkan panggung digital...",
	"AI Director sedang merancang gerakan...",
	"Merender pencahayaan sinematik...",
	"Hampir selesai, memfinalisasi pixel...",
	"Mengarahkan adegan terbaik untuk Anda...",
}

// Profile tunes the generation catalog without a rebuild.
type Profile struct {
	ProgressMessages []string       `yaml:"progress_messages"`
	Styles           []domain.Style `yaml:"styles"`
	Voices           []string       `yaml:"voices"`
}

// LoadProfile reads a YAML profile. An empty path yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile: %w", err)
		}
		if err := yaml.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	}
	if len(p.ProgressMessages) == 0 {
		p.ProgressMessages = append([]string(nil), DefaultProgressMessages...)
	}
	return p, nil
}

// Catalog applies the profile to the built-in catalog.
func (p *Profile) Catalog() *domain.Catalog {
	c := domain.DefaultCatalog()
	if p == nil {
		return c
	}
	return c.WithStyles(p.Styles).WithVoices(p.Voices)
}
