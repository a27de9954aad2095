package jsoncfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"adstory/internal/domain"
)

// PlanOptions is the caller-facing contract for a storyboard request.
type PlanOptions struct {
	Style        string `json:"style" validate:"required"`
	Language     string `json:"language" validate:"required,bcp47_language_tag|eq=ar-XA"`
	AspectRatio  string `json:"aspect_ratio" validate:"required,oneof=1:1 9:16 16:9"`
	Voice        string `json:"voice" validate:"required"`
	PreserveFace bool   `json:"preserve_face"`
}

// SettingsPatch changes per-project settings after the plan exists.
type SettingsPatch struct {
	Voice       *string `json:"voice" validate:"omitempty"`
	AspectRatio *string `json:"aspect_ratio" validate:"omitempty,oneof=1:1 9:16 16:9"`
}

const (
	// MaxProductImages caps the number of product photos sent to the planner.
	MaxProductImages = 3
	// MinScenes and MaxScenes bound the storyboard length requested from the planner.
	MinScenes = 3
	MaxScenes = 5
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize applies defaults. preferredLanguage comes from the request locale.
func (o *PlanOptions) Normalize(preferredLanguage string) {
	if o == nil {
		return
	}
	o.Style = strings.ToLower(strings.TrimSpace(o.Style))
	if o.Style == "" {
		o.Style = domain.DefaultStyleKey
	}
	o.Language = strings.TrimSpace(o.Language)
	if o.Language == "" {
		if preferredLanguage != "" {
			o.Language = preferredLanguage
		} else {
			o.Language = domain.DefaultLanguage
		}
	}
	o.AspectRatio = strings.TrimSpace(o.AspectRatio)
	if o.AspectRatio == "" {
		o.AspectRatio = domain.DefaultAspectRatio
	}
	o.Voice = strings.TrimSpace(o.Voice)
	if o.Voice == "" {
		o.Voice = string(domain.DefaultVoice)
	}
}

// Validate checks the options against the struct rules and the catalog.
func (o PlanOptions) Validate(catalog *domain.Catalog) error {
	if err := validate.Struct(o); err != nil {
		return describe(err)
	}
	if catalog == nil {
		return nil
	}
	if !catalog.HasStyle(o.Style) {
		return fmt.Errorf("style %q is not supported", o.Style)
	}
	if !catalog.HasVoice(o.Voice) {
		return fmt.Errorf("voice %q is not supported", o.Voice)
	}
	return nil
}

// Validate checks a settings patch.
func (p SettingsPatch) Validate(catalog *domain.Catalog) error {
	if err := validate.Struct(p); err != nil {
		return describe(err)
	}
	if p.Voice != nil && catalog != nil && !catalog.HasVoice(*p.Voice) {
		return fmt.Errorf("voice %q is not supported", *p.Voice)
	}
	return nil
}

// ValidatePlan checks a storyboard returned by the planner.
func ValidatePlan(plan *domain.Plan) error {
	if plan == nil {
		return fmt.Errorf("%w: empty plan", domain.ErrInvalidPlan)
	}
	if err := validate.Struct(plan); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPlan, describe(err))
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
