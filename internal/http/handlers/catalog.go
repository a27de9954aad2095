package handlers

import (
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"

	"adstory/internal/domain"
	"adstory/internal/middleware"
)

// ShowCatalog lists the styles, voices, languages and aspect ratios together
// with the language picked for this request.
func (a *App) ShowCatalog(w http.ResponseWriter, r *http.Request) {
	preferred := middleware.LanguageFromContext(r.Context())
	if preferred.Code == "" {
		preferred = a.Catalog.MatchLanguage("")
	}
	a.json(w, http.StatusOK, map[string]any{
		"styles":             a.Catalog.Styles,
		"voices":             a.Catalog.Voices,
		"languages":          a.Catalog.Languages,
		"aspect_ratios":      a.Catalog.AspectRatios,
		"default_voice":      domain.DefaultVoice,
		"default_style":      domain.DefaultStyleKey,
		"default_aspect":     domain.DefaultAspectRatio,
		"preferred_language": preferred,
	})
}

var planSchema = sync.OnceValue(func() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&domain.Plan{})
	s.Title = "AdStory storyboard"
	return s
})

// PlanSchema publishes the JSON Schema of the storyboard document.
func (a *App) PlanSchema(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, planSchema())
}
