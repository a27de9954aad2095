package domain

// Scene is one beat of the storyboard. It is immutable once the plan is accepted
// and identified by its position.
type Scene struct {
	Index       int    `json:"index"`
	Number      int    `json:"no" jsonschema:"description=Scene number as written by the planner"`
	VisualScene string `json:"visualScene" jsonschema:"description=What the viewer sees"`
	ImagePrompt string `json:"imagePrompt" validate:"required" jsonschema:"description=Prompt for the still image"`
	VideoPrompt string `json:"videoPrompt" validate:"required" jsonschema:"description=Motion prompt used to animate the still image"`
	AudioScript string `json:"audioScript" validate:"required" jsonschema:"description=Voice-over narration in the target language"`
	TextOverlay string `json:"textOverlay" jsonschema:"description=On-screen caption"`
}

// Plan is a storyboard produced by the planner.
type Plan struct {
	ID                 string  `json:"id" jsonschema:"-"`
	ContentTitle       string  `json:"contentTitle" validate:"required" jsonschema:"description=Viral title of the content"`
	KillerHook         string  `json:"killerHook" jsonschema:"description=Opening line that stops the scroll"`
	ProductDescription string  `json:"productDescription" jsonschema:"description=Persuasive product description"`
	Scenes             []Scene `json:"scenes" validate:"required,min=1,dive" jsonschema:"minItems=1"`
}

// Scene returns the scene at index.
func (p *Plan) Scene(index int) (Scene, bool) {
	if p == nil || index < 0 || index >= len(p.Scenes) {
		return Scene{}, false
	}
	return p.Scenes[index], true
}

// Reindex assigns positional indices to the scenes.
func (p *Plan) Reindex() {
	for i := range p.Scenes {
		p.Scenes[i].Index = i
		if p.Scenes[i].Number == 0 {
			p.Scenes[i].Number = i + 1
		}
	}
}

// ReferenceImage is an uploaded photo passed to the provider as context.
type ReferenceImage struct {
	Filename string
	MIME     string
	Data     []byte
}

// PlanRequest carries everything the planner needs to draft a storyboard.
type PlanRequest struct {
	ProductImages []ReferenceImage
	ModelImage    *ReferenceImage
	Style         Style
	Language      Language
}
