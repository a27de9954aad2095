package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adstory/internal/domain"
)

var ErrNoDevice = errors.New("device id is required")

type deviceKey struct{}

// WithDevice attaches the caller's device identifier to ctx.
func WithDevice(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceKey{}, strings.TrimSpace(deviceID))
}

// DeviceFromContext returns the device identifier attached by WithDevice.
func DeviceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(deviceKey{}).(string); ok {
		return v
	}
	return ""
}

// Source tells where a resolved key came from.
type Source string

const (
	SourceDevice  Source = "device"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Resolver picks the key for a request: the device's stored key first, then
// the configured default, then the store's default row.
type Resolver struct {
	Store      KeyStore
	DefaultKey string
}

// Resolve returns the key for the device on ctx, or ErrProviderUnavailable.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	key, _, err := r.Lookup(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%w: no API key for this device", domain.ErrProviderUnavailable)
	}
	return key, nil
}

// Lookup is Resolve without the missing-key error.
func (r *Resolver) Lookup(ctx context.Context) (string, Source, error) {
	if r.Store != nil {
		if device := DeviceFromContext(ctx); device != "" {
			key, err := r.Store.DeviceKey(ctx, device)
			if err != nil {
				return "", SourceNone, fmt.Errorf("load device key: %w", err)
			}
			if key = strings.TrimSpace(key); key != "" {
				return key, SourceDevice, nil
			}
		}
	}
	if key := strings.TrimSpace(r.DefaultKey); key != "" {
		return key, SourceDefault, nil
	}
	if r.Store != nil {
		key, err := r.Store.DefaultKey(ctx)
		if err != nil {
			return "", SourceNone, fmt.Errorf("load default key: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, SourceDefault, nil
		}
	}
	return "", SourceNone, nil
}
