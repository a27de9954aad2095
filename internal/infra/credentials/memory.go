package credentials

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps keys in process memory. It backs deployments without a
// database; keys are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]string
	def     string
}

func NewMemoryStore(defaultKey string) *MemoryStore {
	return &MemoryStore{devices: make(map[string]string), def: strings.TrimSpace(defaultKey)}
}

func (m *MemoryStore) DeviceKey(_ context.Context, deviceID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[deviceID], nil
}

func (m *MemoryStore) SetDeviceKey(_ context.Context, deviceID, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if strings.TrimSpace(deviceID) == "" {
		return ErrNoDevice
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[deviceID] = key
	return nil
}

func (m *MemoryStore) ClearDeviceKey(_ context.Context, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return ErrNoDevice
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, deviceID)
	return nil
}

func (m *MemoryStore) DefaultKey(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def, nil
}

var _ KeyStore = (*MemoryStore)(nil)
