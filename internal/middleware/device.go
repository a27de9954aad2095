package middleware

import (
	"net/http"
	"strings"

	"adstory/internal/infra/credentials"
)

// DeviceHeader identifies the calling device. Keys and projects are scoped to it.
const DeviceHeader = "X-Device-ID"

const maxDeviceIDLen = 128

// Device copies a well-formed X-Device-ID onto the request context.
// Malformed identifiers are ignored.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if validDeviceID(id) {
			r = r.WithContext(credentials.WithDevice(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func validDeviceID(id string) bool {
	if id == "" || len(id) > maxDeviceIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
