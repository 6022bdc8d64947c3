// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/config"
	"github.com/javajoker/duka-backend/internal/navigation"
)

var ErrNotFound = errors.New("session not found")

// Dependencies are the backends every session is built from.
type Dependencies struct {
	Products ProductSource
	KV       KeyValueStore
	Codes    CodeGenerator
	Orders   OrderRecorder
	Events   Publisher

	Session    config.SessionConfig
	Currency   string
	OrderTopic string
	Logger     *logrus.Entry
}

type OpenRequest struct {
	DeviceID string
	URL      string
	UserID   *string
}

// Manager owns the live sessions and expires idle ones.
type Manager struct {
	deps Dependencies
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open starts a session. The address in req.URL is resolved before the
// catalog load begins, so a shared link opens straight into checkout mode.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	id := uuid.New()
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	logger := m.deps.Logger.WithFields(logrus.Fields{
		"session_id": id,
		"device_id":  deviceID,
	})

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		DeviceID:  deviceID,
		UserID:    req.UserID,
		CreatedAt: m.now(),
		Bridge:    navigation.NewBridge(),
		host:      &sessionHost{url: req.URL},
		ctx:       sctx,
		cancel:    cancel,
		ready:     make(chan struct{}),
		lastSeen:  m.now(),
	}

	s.Catalog = NewCatalogStore(m.deps.Products, m.deps.Session.CatalogTimeout, logger)
	s.Cart = NewCartStore(m.deps.KV, deviceID, logger)
	s.Prefs = NewPreferenceStore(m.deps.KV, deviceID, logger)

	if err := s.Prefs.Load(ctx); err != nil {
		logger.WithError(err).Warn("Failed to restore preferences")
	}
	if err := s.Cart.Restore(ctx); err != nil {
		logger.WithError(err).Warn("Failed to restore cart")
	}

	s.Machine = navigation.NewMachine(s.host, s.Catalog, logger)
	s.Checkout = NewOrchestrator(CheckoutConfig{
		Currency:   m.deps.Currency,
		Timeout:    m.deps.Session.CheckoutTimeout,
		OrderTopic: m.deps.OrderTopic,
		SessionID:  id,
		DeviceID:   deviceID,
	}, s.Cart, s.Prefs, s.Machine, m.deps.Codes, m.deps.Orders, m.deps.Events, s, logger)

	s.subs = append(s.subs,
		s.Catalog.Subscribe(func() {
			s.runIfOpen(func() { s.Machine.Reconcile() })
		}),
		s.Machine.Attach(s.Bridge),
	)

	s.Machine.Start()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	go func() {
		defer close(s.ready)
		s.Catalog.Load(s.ctx)
	}()

	logger.WithField("url", req.URL).Info("Session opened")
	return s, nil
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Closed() {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	m.deps.Logger.WithField("session_id", id).Info("Session closed")
	return s.Close()
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL and returns
// how many were closed.
func (m *Manager) Sweep(now time.Time) int {
	ttl := m.deps.Session.IdleTTL
	if ttl <= 0 {
		return 0
	}

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.deps.Logger.WithField("count", len(expired)).Info("Expired idle sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.deps.Session.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
