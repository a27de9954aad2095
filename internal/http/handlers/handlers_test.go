package handlers_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adstory/internal/domain"
	"adstory/internal/http/handlers"
	"adstory/internal/http/httpapi"
	"adstory/internal/infra"
	"adstory/internal/infra/credentials"
	"adstory/internal/jobs"
	"adstory/internal/providers/synthetic"
	"adstory/internal/storyboard"
)

const device = "device-test-1"

type testEnv struct {
	handler  http.Handler
	projects *storyboard.Registry
}

func newEnv(t *testing.T, provider domain.GenerationProvider) *testEnv {
	t.Helper()
	if provider == nil {
		provider = synthetic.NewProvider(synthetic.Options{PollsUntilDone: 1})
	}
	projects := storyboard.NewRegistry(storyboard.RegistryOptions{
		Provider:   provider,
		Logger:     zerolog.Nop(),
		SampleRate: 24000,
		Jobs: jobs.Options{
			Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		},
	})
	keys := credentials.NewMemoryStore("")
	app := &handlers.App{
		Config:   &infra.Config{AudioSampleRate: 24000, MaxUploadBytes: 4 << 20},
		Logger:   zerolog.Nop(),
		Provider: provider,
		Projects: projects,
		Keys:     keys,
		Resolver: &credentials.Resolver{Store: keys},
		Catalog:  domain.DefaultCatalog(),
		Now:      func() time.Time { return time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC) },
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		CORSAllowedOrigins: []string{"*"},
		DefaultLanguage:    domain.DefaultLanguage,
	})
	return &testEnv{handler: router, projects: projects}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("X-Device-ID", device)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func planForm(t *testing.T, products int, fields map[string]string) ([]byte, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	data := pngBytes(t)
	for i := 0; i < products; i++ {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="product"; filename="kopi.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return body.Bytes(), mw.FormDataContentType()
}

type projectBody struct {
	ID       string `json:"id"`
	Settings struct {
		Voice       string          `json:"voice"`
		AspectRatio string          `json:"aspect_ratio"`
		Language    domain.Language `json:"language"`
	} `json:"settings"`
	Scenes []struct {
		Index  int `json:"index"`
		Assets map[string]struct {
			State     string `json:"state"`
			ErrorCode string `json:"error_code"`
			Download  string `json:"download"`
		} `json:"assets"`
	} `json:"scenes"`
}

type errorResponse struct {
	Error struct {
		Code           string `json:"code"`
		Message        string `json:"message"`
		ReauthRequired bool   `json:"reauth_required"`
	} `json:"error"`
}

func (e *testEnv) createProject(t *testing.T, fields map[string]string) projectBody {
	t.Helper()
	body, contentType := planForm(t, 1, fields)
	rr := e.do(t, http.MethodPost, "/v1/plans", body, map[string]string{"Content-Type": contentType})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create plan: status %d body %s", rr.Code, rr.Body.String())
	}
	var p projectBody
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	project, err := e.projects.Get(p.ID, device)
	if err != nil {
		t.Fatalf("registry lookup: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := project.Orchestrator.Wait(ctx); err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	return p
}

func TestHealthAndCatalog(t *testing.T) {
	env := newEnv(t, nil)

	if rr := env.do(t, http.MethodGet, "/v1/healthz", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/v1/catalog", nil, map[string]string{"Accept-Language": "th-TH,en;q=0.5"})
	if rr.Code != http.StatusOK {
		t.Fatalf("catalog status %d", rr.Code)
	}
	var payload struct {
		Languages []domain.Language `json:"languages"`
		Voices    []string          `json:"voices"`
		Preferred domain.Language   `json:"preferred_language"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(payload.Languages) != 11 || len(payload.Voices) != 5 {
		t.Fatalf("catalog sizes: %d languages, %d voices", len(payload.Languages), len(payload.Voices))
	}
	if payload.Preferred.Code != "th-TH" {
		t.Fatalf("preferred language = %q", payload.Preferred.Code)
	}
}

func TestPlanSchema(t *testing.T) {
	env := newEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/v1/schema/plan", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&schema); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if _, ok := schema.Properties["scenes"]; !ok {
		t.Fatalf("schema properties = %v", schema.Properties)
	}
	if _, ok := schema.Properties["id"]; ok {
		t.Fatal("server-assigned id leaked into the schema")
	}
}

func TestDeviceKeyFlow(t *testing.T) {
	env := newEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/keys/device", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing device: status %d", rr.Code)
	}

	status := func() map[string]any {
		rr := env.do(t, http.MethodGet, "/v1/keys/device", nil, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status %d", rr.Code)
		}
		var out map[string]any
		_ = json.NewDecoder(rr.Body).Decode(&out)
		return out
	}
	if got := status(); got["configured"] != false || got["source"] != "none" {
		t.Fatalf("initial status = %v", got)
	}

	if rr := env.do(t, http.MethodPut, "/v1/keys/device", []byte(`{"api_key":""}`), nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty key: status %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPut, "/v1/keys/device", []byte(`{"api_key":"AIza-test-abcd"}`), nil); rr.Code != http.StatusOK {
		t.Fatalf("put key: status %d", rr.Code)
	}
	got := status()
	if got["configured"] != true || got["source"] != "device" || got["hint"] != "…abcd" {
		t.Fatalf("after put = %v", got)
	}
	if strings.Contains(env.do(t, http.MethodGet, "/v1/keys/device", nil, nil).Body.String(), "AIza") {
		t.Fatal("key leaked in status response")
	}

	if rr := env.do(t, http.MethodDelete, "/v1/keys/device", nil, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete key: status %d", rr.Code)
	}
	if got := status(); got["configured"] != false {
		t.Fatalf("after delete = %v", got)
	}
}

type forgetfulProvider struct {
	*synthetic.Provider

	mu        sync.Mutex
	forgotten []string
}

func (p *forgetfulProvider) Forget(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgotten = append(p.forgotten, key)
}

func TestDeviceKeyRotationEvictsCachedClient(t *testing.T) {
	provider := &forgetfulProvider{Provider: synthetic.NewProvider(synthetic.Options{})}
	env := newEnv(t, provider)

	for _, key := range []string{"AIza-first", "AIza-first", "AIza-second"} {
		if rr := env.do(t, http.MethodPut, "/v1/keys/device", []byte(`{"api_key":"`+key+`"}`), nil); rr.Code != http.StatusOK {
			t.Fatalf("put %s: status %d", key, rr.Code)
		}
	}
	if rr := env.do(t, http.MethodDelete, "/v1/keys/device", nil, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete key: status %d", rr.Code)
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	want := []string{"AIza-first", "AIza-second"}
	if strings.Join(provider.forgotten, ",") != strings.Join(want, ",") {
		t.Fatalf("forgotten = %v, want %v", provider.forgotten, want)
	}
}

func TestPlanValidation(t *testing.T) {
	env := newEnv(t, nil)
	tests := []struct {
		name     string
		products int
		fields   map[string]string
	}{
		{name: "no product", products: 0},
		{name: "too many products", products: 4},
		{name: "bad aspect", products: 1, fields: map[string]string{"aspect_ratio": "4:3"}},
		{name: "unknown voice", products: 1, fields: map[string]string{"voice": "Nope"}},
		{name: "unknown style", products: 1, fields: map[string]string{"style": "anime"}},
		{name: "bad preserve_face", products: 1, fields: map[string]string{"preserve_face": "maybe"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := planForm(t, tc.products, tc.fields)
			rr := env.do(t, http.MethodPost, "/v1/plans", body, map[string]string{"Content-Type": ct})
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
			}
		})
	}
	if env.projects.Len() != 0 {
		t.Fatalf("projects created: %d", env.projects.Len())
	}
}

func TestStoryboardFlow(t *testing.T) {
	env := newEnv(t, nil)
	p := env.createProject(t, map[string]string{"aspect_ratio": "9:16", "language": "ms-MY"})

	if len(p.Scenes) != 3 {
		t.Fatalf("scenes = %d", len(p.Scenes))
	}
	if p.Settings.AspectRatio != "9:16" || p.Settings.Voice != "Zephyr" || p.Settings.Language.Code != "ms-MY" {
		t.Fatalf("settings = %+v", p.Settings)
	}

	rr := env.do(t, http.MethodGet, "/v1/projects/"+p.ID, nil, nil)
	var view projectBody
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	for _, s := range view.Scenes {
		img := s.Assets["image"]
		if img.State != "ready" || img.Download == "" {
			t.Fatalf("scene %d image = %+v", s.Index, img)
		}
		if s.Assets["video"].State != "idle" {
			t.Fatalf("scene %d video = %+v", s.Index, s.Assets["video"])
		}
	}

	base := "/v1/projects/" + p.ID + "/scenes/0/"
	if rr := env.do(t, http.MethodGet, base+"audio", nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("download before narrate: status %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, base+"audio?wait=true", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("narrate: status %d body %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, base+"audio", nil, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "audio/wav" {
		t.Fatalf("audio download: status %d type %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "adstory_vo_1.wav") || !bytes.HasPrefix(rr.Body.Bytes(), []byte("RIFF")) {
		t.Fatalf("audio download headers %v", rr.Header())
	}

	if rr := env.do(t, http.MethodPost, base+"video?wait=true", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("animate: status %d body %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, base+"video", nil, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "video/mp4" {
		t.Fatalf("video download: status %d type %q", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = env.do(t, http.MethodGet, "/v1/projects/"+p.ID+"/export.zip", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export: status %d", rr.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"storyboard.json", "adstory_image_1.png", "adstory_image_3.png", "adstory_vo_1.wav", "adstory_video_1.mp4"} {
		if !names[want] {
			t.Fatalf("zip missing %s: %v", want, names)
		}
	}

	if rr := env.do(t, http.MethodDelete, "/v1/projects/"+p.ID, nil, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/v1/projects/"+p.ID, nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", rr.Code)
	}
}

func TestProjectScopedToDevice(t *testing.T) {
	env := newEnv(t, nil)
	p := env.createProject(t, nil)
	rr := env.do(t, http.MethodGet, "/v1/projects/"+p.ID, nil, map[string]string{"X-Device-ID": "someone-else"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign device: status %d", rr.Code)
	}
}

func TestTriggerBadTarget(t *testing.T) {
	env := newEnv(t, nil)
	p := env.createProject(t, nil)
	tests := []struct {
		path string
		want int
	}{
		{"/scenes/9/image", http.StatusNotFound},
		{"/scenes/-1/image", http.StatusBadRequest},
		{"/scenes/x/image", http.StatusBadRequest},
		{"/scenes/0/gif", http.StatusBadRequest},
	}
	for _, tc := range tests {
		rr := env.do(t, http.MethodPost, "/v1/projects/"+p.ID+tc.path, nil, nil)
		if rr.Code != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.path, rr.Code, tc.want)
		}
	}
}

type failingImages struct {
	*synthetic.Provider
}

func (failingImages) GenerateImage(context.Context, domain.ImageRequest) (*domain.Media, error) {
	return nil, domain.RequestFailed("safety filter")
}

func TestAnimateWithoutImage(t *testing.T) {
	env := newEnv(t, failingImages{synthetic.NewProvider(synthetic.Options{})})
	p := env.createProject(t, nil)

	rr := env.do(t, http.MethodGet, "/v1/projects/"+p.ID, nil, nil)
	var view projectBody
	_ = json.NewDecoder(rr.Body).Decode(&view)
	if got := view.Scenes[1].Assets["image"]; got.State != "failed" || got.ErrorCode != domain.CodeProviderRequestFailed {
		t.Fatalf("image = %+v", got)
	}

	rr = env.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/1/video", nil, nil)
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("status %d, want 412", rr.Code)
	}
	var e errorResponse
	_ = json.NewDecoder(rr.Body).Decode(&e)
	if e.Error.Code != domain.CodePreconditionNotMet {
		t.Fatalf("code = %q", e.Error.Code)
	}

	rr = env.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/1/image?wait=true", nil, nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("redraw: status %d, want 502", rr.Code)
	}
}

type unavailable struct {
	*synthetic.Provider
	err error
}

func (u unavailable) GenerateSpeech(context.Context, domain.SpeechRequest) ([]byte, error) {
	return nil, u.err
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
		reauth bool
	}{
		{fmt.Errorf("%w: no key", domain.ErrProviderUnavailable), http.StatusUnauthorized, domain.CodeProviderUnavailable, true},
		{fmt.Errorf("%w: Requested entity was not found", domain.ErrResourceNotFound), http.StatusNotFound, domain.CodeResourceNotFound, true},
		{domain.RequestFailed("quota"), http.StatusBadGateway, domain.CodeProviderRequestFailed, false},
		{fmt.Errorf("%w: slow", domain.ErrTimeout), http.StatusGatewayTimeout, domain.CodeTimeout, false},
		{fmt.Errorf("%w: scene 0", domain.ErrSuperseded), http.StatusConflict, domain.CodeSuperseded, false},
		{errors.New("boom"), http.StatusInternalServerError, domain.CodeInternal, false},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			env := newEnv(t, unavailable{Provider: synthetic.NewProvider(synthetic.Options{}), err: tc.err})
			rr := env.do(t, http.MethodPost, "/v1/voices/preview", []byte(`{"voice":"Kore"}`), nil)
			if rr.Code != tc.status {
				t.Fatalf("status %d, want %d", rr.Code, tc.status)
			}
			var e errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if e.Error.Code != tc.code || e.Error.ReauthRequired != tc.reauth {
				t.Fatalf("error = %+v", e.Error)
			}
		})
	}
}

func TestVoicePreview(t *testing.T) {
	env := newEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/v1/voices/preview", []byte(`{"voice":"Puck","language":"th-TH"}`), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "audio/wav" || rr.Header().Get("X-Voice") != "Puck" {
		t.Fatalf("headers = %v", rr.Header())
	}
	if rr.Header().Get("Content-Language") != "th-TH" || !bytes.HasPrefix(rr.Body.Bytes(), []byte("RIFF")) {
		t.Fatalf("language %q", rr.Header().Get("Content-Language"))
	}

	if rr := env.do(t, http.MethodPost, "/v1/voices/preview", []byte(`{"voice":"Nope"}`), nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown voice: status %d", rr.Code)
	}
}

func TestPatchSettings(t *testing.T) {
	env := newEnv(t, nil)
	p := env.createProject(t, nil)
	path := "/v1/projects/" + p.ID + "/settings"

	rr := env.do(t, http.MethodPatch, path, []byte(`{"voice":"kore","aspect_ratio":"16:9"}`), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var s struct {
		Voice       string `json:"voice"`
		AspectRatio string `json:"aspect_ratio"`
	}
	_ = json.NewDecoder(rr.Body).Decode(&s)
	if s.Voice != "Kore" || s.AspectRatio != "16:9" {
		t.Fatalf("settings = %+v", s)
	}

	if rr := env.do(t, http.MethodPatch, path, []byte(`{"aspect_ratio":"4:3"}`), nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad aspect: status %d", rr.Code)
	}
}
