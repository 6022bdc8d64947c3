// internal/session/preferences.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const prefsPrefix = keyPrefix + "prefs:"

// Preferences are the checkout form fields remembered between visits.
type Preferences struct {
	SavedPhone    string `json:"savedPhone"`
	SavedLocation string `json:"savedLocation"`
}

type PreferenceStore struct {
	kv     KeyValueStore
	key    string
	logger *logrus.Entry

	mu    sync.RWMutex
	prefs Preferences
}

func NewPreferenceStore(kv KeyValueStore, deviceID string, logger *logrus.Entry) *PreferenceStore {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PreferenceStore{kv: kv, key: prefsPrefix + deviceID, logger: logger}
}

// Load reads the stored preferences. A corrupt value counts as empty.
func (p *PreferenceStore) Load(ctx context.Context) error {
	if p.kv == nil {
		return nil
	}
	raw, ok, err := p.kv.Get(ctx, p.key)
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}

	var prefs Preferences
	if ok {
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			p.logger.WithError(err).Warn("Discarding unreadable preferences")
			prefs = Preferences{}
		}
	}

	p.mu.Lock()
	p.prefs = prefs
	p.mu.Unlock()
	return nil
}

func (p *PreferenceStore) Get() Preferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs
}

func (p *PreferenceStore) Save(ctx context.Context, phone, location string) error {
	prefs := Preferences{SavedPhone: phone, SavedLocation: location}

	p.mu.Lock()
	p.prefs = prefs
	p.mu.Unlock()

	if p.kv == nil {
		return nil
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := p.kv.Set(ctx, p.key, string(data)); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

func (p *PreferenceStore) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.prefs = Preferences{}
	p.mu.Unlock()

	if p.kv == nil {
		return nil
	}
	if err := p.kv.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	return nil
}
