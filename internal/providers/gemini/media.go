package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"adstory/internal/domain"
)

const (
	videoSuffix    = ". High quality, cinematic motion, realistic textures, NO watermarks."
	negativePrompt = "blurry, low quality, distorted product, extra fingers, deformed hands, watermark, text artifacts, logo overlays"
	inlinePrefix   = "inline:"
)

// GenerateImage renders one still from the prompt and up to two references.
func (p *Provider) GenerateImage(ctx context.Context, req domain.ImageRequest) (*domain.Media, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	parts := make([]*genai.Part, 0, len(req.References)+1)
	for i, ref := range req.References {
		if i == 2 {
			break
		}
		if len(ref.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(ref.Data, firstNonEmpty(ref.MIME, "image/jpeg")))
	}
	parts = append(parts, genai.NewPartFromText(buildImagePrompt(req)))

	cfg := &genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	if ratio := strings.TrimSpace(req.AspectRatio); ratio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: ratio}
	}
	resp, err := client.Models.GenerateContent(ctx, p.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, classify("generate image", err)
	}
	blob := firstInlineBlob(resp)
	if blob == nil {
		return nil, domain.RequestFailed("no image returned")
	}

	p.logger.Debug().
		Str("model", p.imageModel).
		Str("aspect_ratio", req.AspectRatio).
		Int("bytes", len(blob.Data)).
		Msg("gemini: generated image")

	return &domain.Media{Data: blob.Data, MIME: firstNonEmpty(blob.MIMEType, "image/png")}, nil
}

// GenerateSpeech narrates text and returns raw PCM16 at 24 kHz.
func (p *Provider) GenerateSpeech(ctx context.Context, req domain.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, domain.RequestFailed("empty narration script")
	}
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	voice := string(req.Voice)
	if voice == "" {
		voice = string(domain.DefaultVoice)
	}
	resp, err := client.Models.GenerateContent(ctx, p.speechModel,
		[]*genai.Content{genai.NewContentFromText(req.Text, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		})
	if err != nil {
		return nil, classify("generate speech", err)
	}
	blob := firstInlineBlob(resp)
	if blob == nil {
		return nil, domain.RequestFailed("no audio returned")
	}
	return blob.Data, nil
}

// StartVideoJob submits an image-to-video job and returns its handle.
func (p *Provider) StartVideoJob(ctx context.Context, req domain.VideoRequest) (domain.VideoJobHandle, error) {
	if len(req.Source.Data) == 0 {
		return domain.VideoJobHandle{}, fmt.Errorf("%w: source image is empty", domain.ErrPreconditionNotMet)
	}
	client, err := p.client(ctx)
	if err != nil {
		return domain.VideoJobHandle{}, err
	}
	aspect := req.AspectRatio
	if aspect != "9:16" {
		aspect = "16:9"
	}
	op, err := client.Models.GenerateVideos(ctx, p.videoModel, buildVideoPrompt(req.Prompt),
		&genai.Image{ImageBytes: req.Source.Data, MIMEType: firstNonEmpty(req.Source.MIME, "image/png")},
		&genai.GenerateVideosConfig{
			AspectRatio:    aspect,
			Resolution:     p.videoResolution,
			NumberOfVideos: 1,
		})
	if err != nil {
		return domain.VideoJobHandle{}, classify("start video", err)
	}

	p.logger.Info().
		Str("model", p.videoModel).
		Str("operation", op.Name).
		Str("aspect_ratio", aspect).
		Msg("gemini: video job started")

	return domain.VideoJobHandle{Name: op.Name, Ref: op}, nil
}

// PollVideoJob refreshes the operation once.
func (p *Provider) PollVideoJob(ctx context.Context, handle domain.VideoJobHandle) (domain.VideoJobStatus, error) {
	op, ok := handle.Ref.(*genai.GenerateVideosOperation)
	if !ok || op == nil {
		return domain.VideoJobStatus{}, fmt.Errorf("%w: unknown video job %q", domain.ErrResourceNotFound, handle.Name)
	}
	client, err := p.client(ctx)
	if err != nil {
		return domain.VideoJobStatus{}, err
	}
	next, err := client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return domain.VideoJobStatus{}, classify("poll video", err)
	}
	status := domain.VideoJobStatus{
		Handle: domain.VideoJobHandle{Name: next.Name, Ref: next},
		Done:   next.Done,
	}
	if !next.Done {
		return status, nil
	}
	if len(next.Error) > 0 {
		raw, _ := json.Marshal(next.Error)
		return status, classify("video job", fmt.Errorf("%s", raw))
	}
	if next.Response == nil || len(next.Response.GeneratedVideos) == 0 || next.Response.GeneratedVideos[0].Video == nil {
		if next.Response != nil && next.Response.RAIMediaFilteredCount > 0 {
			return status, domain.RequestFailed("video blocked by safety filters: %s",
				strings.Join(next.Response.RAIMediaFilteredReasons, ", "))
		}
		return status, nil
	}
	video := next.Response.GeneratedVideos[0].Video
	switch {
	case video.URI != "":
		status.MediaURI = video.URI
	case len(video.VideoBytes) > 0:
		status.MediaURI = inlinePrefix + next.Name
		p.mu.Lock()
		p.inline[status.MediaURI] = video.VideoBytes
		p.mu.Unlock()
	}
	return status, nil
}

// FetchMedia downloads a finished video.
func (p *Provider) FetchMedia(ctx context.Context, uri string) (*domain.Media, error) {
	if strings.HasPrefix(uri, inlinePrefix) {
		p.mu.Lock()
		data, ok := p.inline[uri]
		delete(p.inline, uri)
		p.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, uri)
		}
		return &domain.Media{Data: data, MIME: "video/mp4", URI: uri}, nil
	}
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	data, err := client.Files.Download(ctx, genai.NewDownloadURIFromVideo(&genai.Video{URI: uri}), nil)
	if err != nil {
		return nil, classify("download video", err)
	}
	if len(data) == 0 {
		return nil, domain.RequestFailed("downloaded video is empty")
	}
	return &domain.Media{Data: data, MIME: "video/mp4", URI: uri}, nil
}

func buildImagePrompt(req domain.ImageRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Professional high-end commercial advertising photography: %s.", strings.TrimSpace(req.Prompt))
	if d := firstNonEmpty(req.Style.Descriptor, req.Style.Label); d != "" {
		fmt.Fprintf(sb, " Style: %s.", d)
	}
	sb.WriteString(" Use the reference product exactly as shown, keep its shape, colors and label.")
	if req.PreserveFace && len(req.References) > 1 {
		sb.WriteString(" Keep the reference model's face and identity unchanged.")
	}
	if req.AspectRatio != "" {
		fmt.Fprintf(sb, " Aspect ratio: %s.", req.AspectRatio)
	}
	fmt.Fprintf(sb, " Negative prompt: %s.", negativePrompt)
	return sb.String()
}

func buildVideoPrompt(prompt string) string {
	return strings.TrimRight(strings.TrimSpace(prompt), ".") + videoSuffix
}

func firstInlineBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}
