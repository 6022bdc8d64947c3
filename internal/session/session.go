// internal/session/session.go
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/navigation"
)

// sessionHost stands in for the native container of one app instance. The
// address and exit requests are reported back to the client.
type sessionHost struct {
	mu    sync.Mutex
	url   string
	exits int
}

func (h *sessionHost) CurrentURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

func (h *sessionHost) ReplaceURL(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.url = path
}

func (h *sessionHost) ExitApp() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exits++
}

func (h *sessionHost) setURL(url string) {
	h.ReplaceURL(url)
}

func (h *sessionHost) exitCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exits
}

// Session is one running app instance: its catalog, cart, preferences and
// navigation state. Nothing in it is shared with other sessions.
type Session struct {
	ID        uuid.UUID
	DeviceID  string
	UserID    *string
	CreatedAt time.Time

	Catalog  *CatalogStore
	Cart     *CartStore
	Prefs    *PreferenceStore
	Machine  *navigation.Machine
	Checkout *Orchestrator
	Bridge   *navigation.Bridge

	host *sessionHost
	subs []io.Closer

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}

	mu       sync.RWMutex
	closed   bool
	lastSeen time.Time
}

// Snapshot is what a client renders from.
type Snapshot struct {
	ID             uuid.UUID        `json:"id"`
	DeviceID       string           `json:"device_id"`
	URL            string           `json:"url"`
	ExitRequested  bool             `json:"exit_requested"`
	CatalogLoading bool             `json:"catalog_loading"`
	State          navigation.State `json:"state"`
	CartItems      int              `json:"cart_items"`
	CartTotal      int64            `json:"cart_total"`
}

// Feed is the product subset the feed should render.
type Feed struct {
	Products []models.Product `json:"products"`
	// Pending is set while a checkout product is still expected from a
	// loading catalog.
	Pending bool `json:"pending"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:             s.ID,
		DeviceID:       s.DeviceID,
		URL:            s.host.CurrentURL(),
		ExitRequested:  s.host.exitCount() > 0,
		CatalogLoading: s.Catalog.Loading(),
		State:          s.Machine.State(),
		CartItems:      s.Cart.ItemCount(),
		CartTotal:      s.Cart.Total(),
	}
}

// Feed selects products for the current state. In checkout mode only the
// linked product is shown; the shop tab may be narrowed to one seller.
func (s *Session) Feed() Feed {
	st := s.Machine.State()

	if st.CheckoutMode {
		if p, ok := s.Catalog.Lookup(models.ProductID(st.CheckoutProductID)); ok {
			return Feed{Products: []models.Product{p}}
		}
		return Feed{Products: []models.Product{}, Pending: s.Catalog.Loading()}
	}

	if st.FeedTab == navigation.TabShop && st.ShopSeller != "" {
		products := s.Catalog.BySeller(st.ShopSeller)
		if products == nil {
			products = []models.Product{}
		}
		return Feed{Products: products, Pending: s.Catalog.Loading()}
	}
	return Feed{Products: s.Catalog.Products(), Pending: s.Catalog.Loading()}
}

// DeepLink delivers a native app-open event carrying rawURL.
func (s *Session) DeepLink(rawURL string) navigation.State {
	s.host.setURL(rawURL)
	s.Bridge.Emit(navigation.Event{Kind: navigation.EventDeepLink, URL: rawURL})
	return s.Machine.State()
}

// History delivers a browser back/forward navigation to rawURL.
func (s *Session) History(rawURL string) navigation.State {
	s.host.setURL(rawURL)
	s.Bridge.Emit(navigation.Event{Kind: navigation.EventHistory, URL: rawURL})
	return s.Machine.State()
}

// PressBack delivers a hardware back press and reports whether the app was
// asked to exit.
func (s *Session) PressBack() (navigation.State, bool) {
	before := s.host.exitCount()
	s.Bridge.Emit(navigation.Event{Kind: navigation.EventBackButton})
	return s.Machine.State(), s.host.exitCount() > before
}

// Ready is closed once the first catalog load settles.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) runIfOpen(fn func()) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close releases every subscription and cancels outstanding work. Results
// arriving afterwards are dropped.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Close()
	}
	s.cancel()
	return nil
}
