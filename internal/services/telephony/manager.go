package telephony

import (
	"sync"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

// SettingsSource supplies the current provider credentials
type SettingsSource interface {
	Get() (*models.ProviderSettings, error)
}

// Manager hands out a Client built from the stored provider credentials.
// The client is cached and rebuilt only when the credentials change, so
// every worker tick does not reconstruct an HTTP client.
type Manager struct {
	settings SettingsSource

	mu       sync.Mutex
	client   Client
	cacheKey string
	callback string
}

func NewManager(settings SettingsSource) *Manager {
	return &Manager{settings: settings}
}

// Client returns the cached provider client and the base callback URL,
// or ErrNotConfigured when no credentials are stored
func (m *Manager) Client() (Client, string, error) {
	settings, err := m.settings.Get()
	if err != nil {
		return nil, "", err
	}
	if settings == nil {
		return nil, "", ErrNotConfigured
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := settings.CacheKey()
	if m.client == nil || m.cacheKey != key {
		m.client = NewTwilioClient(settings.AccountSID, settings.AuthToken)
		m.cacheKey = key
		m.callback = settings.BaseCallbackURL
	}
	return m.client, m.callback, nil
}

// Invalidate drops the cached client; the next Client call rebuilds it
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = nil
	m.cacheKey = ""
	m.callback = ""
}
