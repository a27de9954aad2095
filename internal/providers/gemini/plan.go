package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"adstory/internal/domain"
	"adstory/internal/domain/jsoncfg"
)

// planSchema mirrors domain.Plan for structured output.
var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"contentTitle":       {Type: genai.TypeString},
		"killerHook":         {Type: genai.TypeString},
		"productDescription": {Type: genai.TypeString},
		"scenes": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"no":          {Type: genai.TypeInteger},
					"visualScene": {Type: genai.TypeString},
					"imagePrompt": {Type: genai.TypeString},
					"videoPrompt": {Type: genai.TypeString},
					"audioScript": {Type: genai.TypeString},
					"textOverlay": {Type: genai.TypeString},
				},
				Required: []string{"no", "visualScene", "imagePrompt", "videoPrompt", "audioScript", "textOverlay"},
			},
		},
	},
	Required: []string{"contentTitle", "killerHook", "productDescription", "scenes"},
}

// GeneratePlan drafts a storyboard from the product photos.
func (p *Provider) GeneratePlan(ctx context.Context, req domain.PlanRequest) (*domain.Plan, error) {
	if len(req.ProductImages) == 0 {
		return nil, fmt.Errorf("%w: at least one product image is required", domain.ErrInvalidPlan)
	}
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(req.ProductImages)+2)
	for i, img := range req.ProductImages {
		if i == jsoncfg.MaxProductImages {
			break
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, firstNonEmpty(img.MIME, "image/jpeg")))
	}
	if req.ModelImage != nil && len(req.ModelImage.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.ModelImage.Data, firstNonEmpty(req.ModelImage.MIME, "image/jpeg")))
	}
	parts = append(parts, genai.NewPartFromText(buildPlanPrompt(req)))

	p.logger.Debug().
		Str("model", p.planModel).
		Int("images", len(parts)-1).
		Str("language", req.Language.Code).
		Msg("gemini: generating storyboard")

	resp, err := client.Models.GenerateContent(ctx, p.planModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   planSchema,
		})
	if err != nil {
		return nil, classify("generate plan", err)
	}
	plan, err := parsePlan(resp.Text())
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func buildPlanPrompt(req domain.PlanRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are a world-class Creative Director for short-form video ads. Analyze the attached product photos")
	if req.ModelImage != nil {
		sb.WriteString(" and the attached model photo (keep the model's face and identity consistent)")
	}
	fmt.Fprintf(sb, ".\nContent style: %s.\n", firstNonEmpty(req.Style.Descriptor, req.Style.Label))
	fmt.Fprintf(sb, "Write every audioScript, textOverlay, contentTitle, killerHook and productDescription in %s (%s).\n",
		firstNonEmpty(req.Language.Label, req.Language.Code), req.Language.Code)
	fmt.Fprintf(sb, "Create %d to %d scenes. Scene 1 must open with the killer hook; the last scene ends with a universal call to action (no platform-specific wording).\n",
		jsoncfg.MinScenes, jsoncfg.MaxScenes)
	sb.WriteString("imagePrompt: English, photorealistic commercial photography, product clearly visible, correct human anatomy, no text or watermarks.\n")
	sb.WriteString("videoPrompt: English, a single camera or subject motion that animates the still image.\n")
	sb.WriteString("Respond strictly with JSON matching the provided schema.")
	return sb.String()
}

func parsePlan(raw string) (*domain.Plan, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty storyboard response", domain.ErrProviderRequestFailed)
	}
	var plan domain.Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("%w: decode storyboard: %v", domain.ErrProviderRequestFailed, err)
	}
	plan.ID = ""
	plan.Reindex()
	if err := jsoncfg.ValidatePlan(&plan); err != nil {
		if errors.Is(err, domain.ErrInvalidPlan) {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderRequestFailed, err)
		}
		return nil, err
	}
	return &plan, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
