package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"adstory/internal/audio"
	"adstory/internal/domain"
	"adstory/internal/middleware"
)

type voicePreviewRequest struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

// PreviewVoice speaks a short greeting in the requested voice and language.
func (a *App) PreviewVoice(w http.ResponseWriter, r *http.Request) {
	var req voicePreviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	voice := domain.DefaultVoice
	if v := strings.TrimSpace(req.Voice); v != "" {
		if !a.Catalog.HasVoice(v) {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("voice %q is not supported", v))
			return
		}
		voice = a.Catalog.Voice(v)
	}
	lang := middleware.LanguageFromContext(r.Context())
	if code := strings.TrimSpace(req.Language); code != "" || lang.Code == "" {
		lang = a.Catalog.MatchLanguage(code)
	}

	pcm, err := a.Provider.GenerateSpeech(r.Context(), domain.SpeechRequest{
		Text:  domain.Greeting(lang),
		Voice: voice,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(pcm) == 0 {
		a.fail(w, r, domain.RequestFailed("no audio returned"))
		return
	}
	wav := audio.EncodeWAV(pcm, a.sampleRate())
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("X-Voice", string(voice))
	w.Header().Set("Content-Language", lang.Code)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}
