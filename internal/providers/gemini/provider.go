// Package gemini implements domain.GenerationProvider on top of the Gen AI SDK:
// storyboard planning and image generation on Gemini, narration on the
// Gemini TTS model, and image-to-video on Veo.
package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"adstory/internal/domain"
	"adstory/internal/infra"
)

const (
	DefaultPlanModel       = "gemini-3-flash-preview"
	DefaultImageModel      = "gemini-2.5-flash-image"
	DefaultVideoModel      = "veo-3.1-fast-generate-preview"
	DefaultSpeechModel     = "gemini-2.5-flash-preview-tts"
	DefaultVideoResolution = "720p"

	// maxClients bounds the per-key client cache; the oldest entry goes first.
	maxClients = 32
)

// KeyFunc resolves the API key for the caller carried by ctx.
type KeyFunc func(ctx context.Context) (string, error)

// Options controls how the provider is configured.
type Options struct {
	Keys            KeyFunc
	BaseURL         string
	PlanModel       string
	ImageModel      string
	VideoModel      string
	SpeechModel     string
	VideoResolution string
	HTTPClient      *http.Client
	Logger          *infra.Logger
}

// Provider talks to the Gemini API. SDK clients are cached per API key.
type Provider struct {
	keys            KeyFunc
	baseURL         string
	planModel       string
	imageModel      string
	videoModel      string
	speechModel     string
	videoResolution string
	httpClient      *http.Client
	logger          *infra.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
	order   []string
	inline  map[string][]byte
}

var _ domain.GenerationProvider = (*Provider)(nil)

// NewProvider constructs a provider with sane defaults. Callers may provide a
// nil HTTP client; one with a generous timeout is created.
func NewProvider(opts Options) (*Provider, error) {
	if opts.Keys == nil {
		return nil, fmt.Errorf("gemini: key resolver is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Provider{
		keys:            opts.Keys,
		baseURL:         strings.TrimSpace(opts.BaseURL),
		planModel:       firstNonEmpty(opts.PlanModel, DefaultPlanModel),
		imageModel:      firstNonEmpty(opts.ImageModel, DefaultImageModel),
		videoModel:      firstNonEmpty(opts.VideoModel, DefaultVideoModel),
		speechModel:     firstNonEmpty(opts.SpeechModel, DefaultSpeechModel),
		videoResolution: firstNonEmpty(opts.VideoResolution, DefaultVideoResolution),
		httpClient:      client,
		logger:          logger,
		clients:         make(map[string]*genai.Client),
		inline:          make(map[string][]byte),
	}, nil
}

// client resolves the caller's key and returns a cached SDK client for it.
// No network call happens when the key is missing.
func (p *Provider) client(ctx context.Context) (*genai.Client, error) {
	key, err := p.keys(ctx)
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: no API key configured", domain.ErrProviderUnavailable)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", domain.ErrProviderUnavailable, err)
	}
	if len(p.order) >= maxClients {
		delete(p.clients, p.order[0])
		p.order = p.order[1:]
	}
	p.clients[key] = c
	p.order = append(p.order, key)
	return c, nil
}

// Forget drops the cached client for key, typically after a device replaced
// or cleared it.
func (p *Provider) Forget(key string) {
	key = strings.TrimSpace(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.clients[key]; !ok {
		return
	}
	delete(p.clients, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
