package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"adstory/internal/domain"
	"adstory/internal/domain/jsoncfg"
	"adstory/internal/storyboard"
	"adstory/pkg/zip"
)

type assetView struct {
	State        domain.AssetState `json:"state"`
	MIME         string            `json:"mime,omitempty"`
	Bytes        int               `json:"bytes,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"`
	Progress     string            `json:"progress,omitempty"`
	Download     string            `json:"download,omitempty"`
}

type sceneView struct {
	domain.Scene
	Assets map[domain.AssetKind]assetView `json:"assets"`
}

type settingsView struct {
	Style        string          `json:"style"`
	Language     domain.Language `json:"language"`
	AspectRatio  string          `json:"aspect_ratio"`
	Voice        domain.Voice    `json:"voice"`
	PreserveFace bool            `json:"preserve_face"`
}

type projectResponse struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Plan      *domain.Plan `json:"plan"`
	Settings  settingsView `json:"settings"`
	Scenes    []sceneView  `json:"scenes"`
}

func projectView(p *storyboard.Project) projectResponse {
	v := p.Orchestrator.Snapshot()
	out := projectResponse{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		Plan:      v.Plan,
		Settings:  toSettingsView(v.Settings),
		Scenes:    make([]sceneView, 0, len(v.Scenes)),
	}
	for _, sv := range v.Scenes {
		scene := sceneView{Scene: sv.Scene, Assets: make(map[domain.AssetKind]assetView, len(domain.AssetKinds))}
		for _, kind := range domain.AssetKinds {
			asset := sv.Assets[kind]
			av := assetView{
				State:        asset.State,
				ErrorCode:    asset.ErrorCode,
				ErrorMessage: asset.ErrorMessage,
			}
			if av.State == "" {
				av.State = domain.AssetStateIdle
			}
			if !asset.UpdatedAt.IsZero() {
				t := asset.UpdatedAt
				av.UpdatedAt = &t
			}
			if asset.Ready() {
				av.MIME = asset.MIME
				av.Bytes = len(asset.Data)
				av.Download = fmt.Sprintf("/v1/projects/%s/scenes/%d/%s", p.ID, sv.Scene.Index, kind)
			}
			if kind == domain.AssetKindVideo && asset.Pending() {
				av.Progress = sv.Progress
			}
			scene.Assets[kind] = av
		}
		out.Scenes = append(out.Scenes, scene)
	}
	return out
}

func toSettingsView(s storyboard.Settings) settingsView {
	return settingsView{
		Style:        s.Style.Key,
		Language:     s.Language,
		AspectRatio:  s.AspectRatio,
		Voice:        s.Voice,
		PreserveFace: s.PreserveFace,
	}
}

func (a *App) project(w http.ResponseWriter, r *http.Request) (*storyboard.Project, bool) {
	deviceID, ok := a.device(w, r)
	if !ok {
		return nil, false
	}
	p, err := a.Projects.Get(chi.URLParam(r, "id"), deviceID)
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return p, true
}

// sceneTarget parses {index} and {kind}.
func (a *App) sceneTarget(w http.ResponseWriter, r *http.Request) (int, domain.AssetKind, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "scene index must be a non-negative integer")
		return 0, "", false
	}
	kind, err := domain.ParseAssetKind(chi.URLParam(r, "kind"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return 0, "", false
	}
	return index, kind, true
}

func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.project(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, projectView(p))
}

// DeleteProject starts over: running jobs are orphaned and every asset dropped.
func (a *App) DeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.project(w, r)
	if !ok {
		return
	}
	if err := a.Projects.Delete(r.Context(), p.ID, p.DeviceID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) PatchSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := a.project(w, r)
	if !ok {
		return
	}
	var patch jsoncfg.SettingsPatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&patch); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := patch.Validate(a.Catalog); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var voice *domain.Voice
	if patch.Voice != nil {
		v := a.Catalog.Voice(*patch.Voice)
		voice = &v
	}
	settings := p.Orchestrator.UpdateSettings(voice, patch.AspectRatio)
	a.json(w, http.StatusOK, toSettingsView(settings))
}

// TriggerScene redraws, animates or narrates one scene. By default the job
// runs in the background and the current cell is returned with 202; with
// ?wait=true the request blocks until the job settles.
func (a *App) TriggerScene(w http.ResponseWriter, r *http.Request) {
	p, ok := a.project(w, r)
	if !ok {
		return
	}
	index, kind, ok := a.sceneTarget(w, r)
	if !ok {
		return
	}
	o := p.Orchestrator
	current, err := o.Asset(index, kind)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if kind == domain.AssetKindVideo {
		if image, _ := o.Asset(index, domain.AssetKindImage); !image.Ready() {
			a.fail(w, r, fmt.Errorf("%w: scene %d has no ready image", domain.ErrPreconditionNotMet, index))
			return
		}
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		asset, err := o.Trigger(r.Context(), index, kind)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusOK, a.assetResponse(p, index, kind, asset))
		return
	}

	if current.Pending() {
		a.json(w, http.StatusAccepted, a.assetResponse(p, index, kind, current))
		return
	}
	log := zerolog.Ctx(r.Context()).With().Str("project_id", p.ID).Int("scene", index).Str("kind", string(kind)).Logger()
	jobCtx, cancel := o.Detach(r.Context())
	go func(ctx context.Context) {
		defer cancel()
		if _, err := o.Trigger(ctx, index, kind); err != nil {
			log.Debug().Err(err).Msg("handlers: background job ended with error")
		}
	}(jobCtx)
	pending := current
	pending.State = domain.AssetStatePending
	a.json(w, http.StatusAccepted, a.assetResponse(p, index, kind, pending))
}

func (a *App) assetResponse(p *storyboard.Project, index int, kind domain.AssetKind, asset domain.Asset) map[string]any {
	av := assetView{State: asset.State, ErrorCode: asset.ErrorCode, ErrorMessage: asset.ErrorMessage}
	if asset.Ready() {
		av.MIME = asset.MIME
		av.Bytes = len(asset.Data)
		av.Download = fmt.Sprintf("/v1/projects/%s/scenes/%d/%s", p.ID, index, kind)
	}
	return map[string]any{"scene": index, "kind": kind, "asset": av}
}

// DownloadScene streams a ready asset. Speech is exported as WAV.
func (a *App) DownloadScene(w http.ResponseWriter, r *http.Request) {
	p, ok := a.project(w, r)
	if !ok {
		return
	}
	index, kind, ok := a.sceneTarget(w, r)
	if !ok {
		return
	}
	asset, err := p.Orchestrator.Asset(index, kind)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := storyboard.Render(asset, index, a.sampleRate())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", d.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", d.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Data)
}

// ExportProject bundles every ready asset plus the plan into one zip.
func (a *App) ExportProject(w http.ResponseWriter, r *http.Request) {
	p, ok := a.project(w, r)
	if !ok {
		return
	}
	v := p.Orchestrator.Snapshot()
	bundle := storyboard.Bundle(v, a.sampleRate())
	if len(bundle) == 0 {
		a.fail(w, r, fmt.Errorf("%w: no ready assets", domain.ErrNotFound))
		return
	}
	var buf bytes.Buffer
	if err := zip.Write(&buf, bundle, v.Plan, a.now()); err != nil {
		a.fail(w, r, err)
		return
	}
	name := "adstory"
	if v.Plan != nil && strings.TrimSpace(v.Plan.ContentTitle) != "" {
		name = slug(v.Plan.ContentTitle)
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "adstory"
	}
	if len(out) > 48 {
		out = strings.TrimSuffix(out[:48], "-")
	}
	return out
}

