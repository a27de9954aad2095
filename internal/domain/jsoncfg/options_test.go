package jsoncfg

import (
	"errors"
	"testing"

	"adstory/internal/domain"
)

func TestPlanOptionsNormalizeDefaults(t *testing.T) {
	o := &PlanOptions{}
	o.Normalize("")

	if o.Style != domain.DefaultStyleKey {
		t.Fatalf("Style = %q, want %q", o.Style, domain.DefaultStyleKey)
	}
	if o.Language != domain.DefaultLanguage {
		t.Fatalf("Language = %q, want %q", o.Language, domain.DefaultLanguage)
	}
	if o.AspectRatio != domain.DefaultAspectRatio {
		t.Fatalf("AspectRatio = %q, want %q", o.AspectRatio, domain.DefaultAspectRatio)
	}
	if o.Voice != string(domain.DefaultVoice) {
		t.Fatalf("Voice = %q, want %q", o.Voice, domain.DefaultVoice)
	}
}

func TestPlanOptionsNormalizePreferredLanguage(t *testing.T) {
	o := &PlanOptions{AspectRatio: "9:16", Style: " UGC "}
	o.Normalize("th-TH")

	if o.Language != "th-TH" {
		t.Fatalf("Language = %q, want %q", o.Language, "th-TH")
	}
	if o.AspectRatio != "9:16" {
		t.Fatalf("AspectRatio should keep explicit value, got %q", o.AspectRatio)
	}
	if o.Style != "ugc" {
		t.Fatalf("Style = %q, want %q", o.Style, "ugc")
	}
}

func TestPlanOptionsValidate(t *testing.T) {
	catalog := domain.DefaultCatalog()
	cases := []struct {
		name    string
		opts    PlanOptions
		wantErr bool
	}{
		{"defaults", PlanOptions{Style: "cinematic", Language: "id-ID", AspectRatio: "1:1", Voice: "Zephyr"}, false},
		{"arabic pseudo region", PlanOptions{Style: "faceless", Language: "ar-XA", AspectRatio: "16:9", Voice: "Kore"}, false},
		{"bad ratio", PlanOptions{Style: "cinematic", Language: "en-US", AspectRatio: "4:3", Voice: "Puck"}, true},
		{"bad style", PlanOptions{Style: "noir", Language: "en-US", AspectRatio: "1:1", Voice: "Puck"}, true},
		{"bad voice", PlanOptions{Style: "ugc", Language: "en-US", AspectRatio: "1:1", Voice: "Nobody"}, true},
		{"missing language", PlanOptions{Style: "ugc", AspectRatio: "1:1", Voice: "Puck"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate(catalog)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidatePlan(t *testing.T) {
	valid := &domain.Plan{
		ContentTitle: "Kopi Pagi",
		Scenes: []domain.Scene{
			{ImagePrompt: "cup on table", VideoPrompt: "steam rises", AudioScript: "Mulai harimu"},
		},
	}
	if err := ValidatePlan(valid); err != nil {
		t.Fatalf("ValidatePlan(valid) = %v", err)
	}

	empty := &domain.Plan{ContentTitle: "x"}
	if err := ValidatePlan(empty); !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("ValidatePlan(no scenes) = %v, want ErrInvalidPlan", err)
	}

	missingPrompt := &domain.Plan{
		ContentTitle: "x",
		Scenes:       []domain.Scene{{VideoPrompt: "v", AudioScript: "a"}},
	}
	if err := ValidatePlan(missingPrompt); !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("ValidatePlan(missing prompt) = %v, want ErrInvalidPlan", err)
	}
}
