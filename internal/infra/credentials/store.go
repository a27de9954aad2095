// Package credentials stores provider API keys and resolves which key a
// request should use.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"adstory/internal/infra"
	"adstory/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

var ErrEmptyKey = errors.New("api key is required")

// KeyStore persists per-device keys and the deployment default.
type KeyStore interface {
	DeviceKey(ctx context.Context, deviceID string) (string, error)
	SetDeviceKey(ctx context.Context, deviceID, key string) error
	ClearDeviceKey(ctx context.Context, deviceID string) error
	DefaultKey(ctx context.Context) (string, error)
}

// Store keeps keys in Postgres.
type Store struct {
	sql      infra.SQLExecutor
	provider string
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, provider: ProviderGemini}
}

// EnsureSchema creates the key tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QEnsureCredentialTables)
	return err
}

func (s *Store) DeviceKey(ctx context.Context, deviceID string) (string, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", nil
	}
	return s.scanKey(s.sql.QueryRow(ctx, sqlinline.QSelectDeviceKey, deviceID, s.provider))
}

func (s *Store) SetDeviceKey(ctx context.Context, deviceID, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if strings.TrimSpace(deviceID) == "" {
		return ErrNoDevice
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertDeviceKey, deviceID, s.provider, key)
	return err
}

func (s *Store) ClearDeviceKey(ctx context.Context, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return ErrNoDevice
	}
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteDeviceKey, deviceID, s.provider)
	return err
}

// DefaultKey reads the deployment-wide token row.
func (s *Store) DefaultKey(ctx context.Context) (string, error) {
	return s.scanKey(s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, s.provider))
}

// SetDefaultKey replaces the deployment-wide token.
func (s *Store) SetDefaultKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(map[string]any{"source": "cli"})
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, s.provider, key, raw)
	return err
}

func (s *Store) scanKey(row interface{ Scan(...any) error }) (string, error) {
	var key string
	if err := row.Scan(&key); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(key), nil
}

var _ KeyStore = (*Store)(nil)
