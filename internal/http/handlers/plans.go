package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"adstory/internal/domain"
	"adstory/internal/domain/jsoncfg"
	"adstory/internal/middleware"
	"adstory/internal/storyboard"
)

const defaultMaxUpload = 20 << 20

// CreatePlan drafts a storyboard from the uploaded photos and starts the
// initial image for every scene. With project_id the existing project is
// replaced; jobs still running for its old plan are discarded.
func (a *App) CreatePlan(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := a.device(w, r)
	if !ok {
		return
	}
	limit := int64(defaultMaxUpload)
	if a.Config != nil && a.Config.MaxUploadBytes > 0 {
		limit = a.Config.MaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	products, err := readImages(r.MultipartForm.File["product"])
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(products) == 0 || len(products) > jsoncfg.MaxProductImages {
		a.error(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("between 1 and %d product images required", jsoncfg.MaxProductImages))
		return
	}
	var model *domain.ReferenceImage
	if files := r.MultipartForm.File["model"]; len(files) > 0 {
		images, err := readImages(files[:1])
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		model = &images[0]
	}

	opts := jsoncfg.PlanOptions{
		Style:       r.FormValue("style"),
		Language:    r.FormValue("language"),
		AspectRatio: r.FormValue("aspect_ratio"),
		Voice:       r.FormValue("voice"),
	}
	if raw := strings.TrimSpace(r.FormValue("preserve_face")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "preserve_face must be a boolean")
			return
		}
		opts.PreserveFace = v
	}
	opts.Normalize(middleware.LanguageFromContext(r.Context()).Code)
	if err := opts.Validate(a.Catalog); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	projectID := strings.TrimSpace(r.FormValue("project_id"))
	if projectID != "" {
		if _, err := a.Projects.Get(projectID, deviceID); err != nil {
			a.fail(w, r, err)
			return
		}
	}

	settings := storyboard.Settings{
		Style:        a.Catalog.Style(opts.Style),
		Language:     a.Catalog.MatchLanguage(opts.Language),
		AspectRatio:  opts.AspectRatio,
		Voice:        a.Catalog.Voice(opts.Voice),
		PreserveFace: opts.PreserveFace,
		ProductImage: &products[0],
		ModelImage:   model,
	}
	plan, err := a.Provider.GeneratePlan(r.Context(), domain.PlanRequest{
		ProductImages: products,
		ModelImage:    model,
		Style:         settings.Style,
		Language:      settings.Language,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := jsoncfg.ValidatePlan(plan); err != nil {
		a.fail(w, r, err)
		return
	}

	var project *storyboard.Project
	status := http.StatusCreated
	if projectID != "" {
		project, err = a.Projects.Resubmit(r.Context(), projectID, deviceID, plan, settings)
		status = http.StatusOK
	} else {
		project, err = a.Projects.Create(r.Context(), deviceID, plan, settings)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, status, projectView(project))
}

func readImages(headers []*multipart.FileHeader) ([]domain.ReferenceImage, error) {
	out := make([]domain.ReferenceImage, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%s is empty", fh.Filename)
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("%s is not an image", fh.Filename)
		}
		out = append(out, domain.ReferenceImage{Filename: fh.Filename, MIME: mime, Data: data})
	}
	return out, nil
}
