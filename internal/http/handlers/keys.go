package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"adstory/internal/infra/credentials"
)

type deviceKeyRequest struct {
	APIKey string `json:"api_key"`
}

// DeviceKeyStatus reports which key requests from this device will use.
// The key itself is never returned.
func (a *App) DeviceKeyStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.device(w, r); !ok {
		return
	}
	key, source, err := a.Resolver.Lookup(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"configured": key != "",
		"source":     source,
		"hint":       maskKey(key),
	})
}

// PutDeviceKey stores the caller's own provider key.
func (a *App) PutDeviceKey(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := a.device(w, r)
	if !ok {
		return
	}
	var req deviceKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		a.error(w, http.StatusBadRequest, "bad_request", credentials.ErrEmptyKey.Error())
		return
	}
	previous, _ := a.Keys.DeviceKey(r.Context(), deviceID)
	if err := a.Keys.SetDeviceKey(r.Context(), deviceID, key); err != nil {
		a.fail(w, r, err)
		return
	}
	if previous != key {
		a.forgetKey(previous)
	}
	a.json(w, http.StatusOK, map[string]any{
		"configured": true,
		"source":     credentials.SourceDevice,
		"hint":       maskKey(key),
	})
}

// DeleteDeviceKey forgets the caller's key; later requests fall back to the default.
func (a *App) DeleteDeviceKey(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := a.device(w, r)
	if !ok {
		return
	}
	previous, _ := a.Keys.DeviceKey(r.Context(), deviceID)
	if err := a.Keys.ClearDeviceKey(r.Context(), deviceID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.forgetKey(previous)
	w.WriteHeader(http.StatusNoContent)
}

// keyForgetter is implemented by providers that cache a client per API key.
type keyForgetter interface {
	Forget(key string)
}

func (a *App) forgetKey(key string) {
	if key == "" {
		return
	}
	if f, ok := a.Provider.(keyForgetter); ok {
		f.Forget(key)
	}
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return ""
	}
	return "…" + key[len(key)-4:]
}
