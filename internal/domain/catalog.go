package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// Style is a content style offered to the user.
type Style struct {
	Key        string `json:"key" yaml:"key"`
	Label      string `json:"label" yaml:"label"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
}

// Language is a supported output language.
type Language struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Voice is a prebuilt speech voice.
type Voice string

const (
	DefaultVoice       Voice  = "Zephyr"
	DefaultAspectRatio string = "1:1"
	DefaultStyleKey    string = "cinematic"
	DefaultLanguage    string = "id-ID"
)

// Catalog lists the choices exposed to callers.
type Catalog struct {
	Styles       []Style    `json:"styles"`
	Voices       []Voice    `json:"voices"`
	Languages    []Language `json:"languages"`
	AspectRatios []string   `json:"aspect_ratios"`

	matcher language.Matcher
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Styles: []Style{
			{Key: "cinematic", Label: "Cinematic", Descriptor: "Cinematic, dramatic lighting, shallow depth of field, premium commercial grade"},
			{Key: "ugc", Label: "UGC (TikTok/Reels)", Descriptor: "UGC (TikTok/Reels), authentic handheld smartphone look, natural lighting, relatable everyday setting"},
			{Key: "faceless", Label: "Faceless (POV/ASMR)", Descriptor: "Faceless (POV/ASMR), first-person hands-only framing, close-up textures, satisfying details"},
			{Key: "model", Label: "Lifestyle Model", Descriptor: "Lifestyle Model, a model naturally using the product in an aspirational lifestyle setting"},
		},
		Voices: []Voice{"Puck", "Charon", "Kore", "Fenrir", "Zephyr"},
		Languages: []Language{
			{Code: "id-ID", Label: "Indonesia"},
			{Code: "ms-MY", Label: "Malaysia"},
			{Code: "th-TH", Label: "Thailand"},
			{Code: "en-US", Label: "English (US)"},
			{Code: "en-GB", Label: "English (UK)"},
			{Code: "ja-JP", Label: "Japanese"},
			{Code: "ko-KR", Label: "Korean"},
			{Code: "vi-VN", Label: "Vietnamese"},
			{Code: "zh-CN", Label: "Chinese (Mandarin)"},
			{Code: "ar-XA", Label: "Arabic"},
			{Code: "es-ES", Label: "Spanish"},
		},
		AspectRatios: []string{"1:1", "9:16", "16:9"},
	}
	c.buildMatcher()
	return c
}

func (c *Catalog) buildMatcher() {
	tags := make([]language.Tag, 0, len(c.Languages))
	for _, lang := range c.Languages {
		tags = append(tags, language.Make(normalizeLanguageCode(lang.Code)))
	}
	c.matcher = language.NewMatcher(tags)
}

// WithStyles replaces the descriptors of known styles and appends new ones.
func (c *Catalog) WithStyles(styles []Style) *Catalog {
	for _, override := range styles {
		key := strings.ToLower(strings.TrimSpace(override.Key))
		if key == "" {
			continue
		}
		replaced := false
		for i := range c.Styles {
			if c.Styles[i].Key != key {
				continue
			}
			if override.Label != "" {
				c.Styles[i].Label = override.Label
			}
			if override.Descriptor != "" {
				c.Styles[i].Descriptor = override.Descriptor
			}
			replaced = true
		}
		if !replaced && override.Descriptor != "" {
			override.Key = key
			if override.Label == "" {
				override.Label = override.Key
			}
			c.Styles = append(c.Styles, override)
		}
	}
	return c
}

// WithVoices replaces the voice list when voices is not empty.
func (c *Catalog) WithVoices(voices []string) *Catalog {
	if len(voices) == 0 {
		return c
	}
	c.Voices = c.Voices[:0]
	for _, v := range voices {
		if v = strings.TrimSpace(v); v != "" {
			c.Voices = append(c.Voices, Voice(v))
		}
	}
	return c
}

// Style resolves key, falling back to the default style.
func (c *Catalog) Style(key string) Style {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range c.Styles {
		if s.Key == key {
			return s
		}
	}
	for _, s := range c.Styles {
		if s.Key == DefaultStyleKey {
			return s
		}
	}
	return c.Styles[0]
}

// HasStyle reports whether key names a known style.
func (c *Catalog) HasStyle(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range c.Styles {
		if s.Key == key {
			return true
		}
	}
	return false
}

// Voice resolves name case-insensitively, falling back to the default voice.
func (c *Catalog) Voice(name string) Voice {
	for _, v := range c.Voices {
		if strings.EqualFold(string(v), strings.TrimSpace(name)) {
			return v
		}
	}
	return DefaultVoice
}

// HasVoice reports whether name is a known voice.
func (c *Catalog) HasVoice(name string) bool {
	for _, v := range c.Voices {
		if strings.EqualFold(string(v), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// HasAspectRatio reports whether ratio is offered.
func (c *Catalog) HasAspectRatio(ratio string) bool {
	for _, r := range c.AspectRatios {
		if r == strings.TrimSpace(ratio) {
			return true
		}
	}
	return false
}

// MatchLanguage picks the supported language closest to the BCP 47 code.
// Unknown or empty codes resolve to the default language.
func (c *Catalog) MatchLanguage(code string) Language {
	if lang, ok := c.FindLanguage(code); ok {
		return lang
	}
	for _, lang := range c.Languages {
		if lang.Code == DefaultLanguage {
			return lang
		}
	}
	return c.Languages[0]
}

// FindLanguage is MatchLanguage without the default.
func (c *Catalog) FindLanguage(code string) (Language, bool) {
	code = normalizeLanguageCode(code)
	if code == "" {
		return Language{}, false
	}
	for _, lang := range c.Languages {
		if strings.EqualFold(lang.Code, code) {
			return lang, true
		}
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Language{}, false
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(c.Languages) {
		return Language{}, false
	}
	return c.Languages[idx], true
}

// ar-XA is a pseudo-region used by speech vendors; x/text only knows ar.
func normalizeLanguageCode(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if strings.EqualFold(code, "ar-XA") {
		return "ar"
	}
	return code
}

// Greeting returns the salutation used by voice previews.
func Greeting(lang Language) string {
	base, _ := language.Make(normalizeLanguageCode(lang.Code)).Base()
	switch base.String() {
	case "id":
		return "Halo!"
	case "ms":
		return "Selamat pagi!"
	case "th":
		return "Sawasdee krap!"
	default:
		return "Hello!"
	}
}
