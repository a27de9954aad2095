// Package handlers implements the storyboard HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"adstory/internal/domain"
	"adstory/internal/infra"
	"adstory/internal/infra/credentials"
	"adstory/internal/storyboard"
)

// App carries the dependencies shared by all handlers.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Provider domain.GenerationProvider
	Projects *storyboard.Registry
	Keys     credentials.KeyStore
	Resolver *credentials.Resolver
	Catalog  *domain.Catalog
	Now      func() time.Time
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	ReauthRequired bool   `json:"reauth_required,omitempty"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// fail maps err onto a status code and the stable error code.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{
		Code:           domain.ErrorCode(err),
		Message:        err.Error(),
		ReauthRequired: domain.RequiresReauth(err),
	}
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", body.Code).Msg("handlers: request failed")
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	a.json(w, status, map[string]errorBody{"error": body})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPreconditionNotMet):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrProviderRequestFailed), errors.Is(err, domain.ErrInvalidPlan):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// device returns the caller's device ID, writing a 400 when it is missing.
func (a *App) device(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := credentials.DeviceFromContext(r.Context())
	if id == "" {
		a.error(w, http.StatusBadRequest, "device_required", "X-Device-ID header required")
		return "", false
	}
	return id, true
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) sampleRate() int {
	if a.Config != nil && a.Config.AudioSampleRate > 0 {
		return a.Config.AudioSampleRate
	}
	return 24000
}
