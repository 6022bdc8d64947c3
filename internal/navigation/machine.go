// internal/navigation/machine.go
package navigation

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/models"
)

var (
	// ErrSuppressed is returned for feed actions while checkout mode hides
	// the navigation chrome.
	ErrSuppressed = errors.New("navigation suppressed in checkout mode")
	// ErrInvalidTransition is returned for views that cannot be selected
	// directly.
	ErrInvalidTransition = errors.New("invalid view transition")
)

// RootPath is where the address is reset when checkout mode ends.
const RootPath = "/"

// BackResult reports which rule handled a back press.
type BackResult int

const (
	BackDismissedSuccess BackResult = iota
	BackClosedSearch
	BackExitedCheckout
	BackReturnedToFeed
	BackExitApp
)

func (r BackResult) String() string {
	switch r {
	case BackDismissedSuccess:
		return "dismissed-success"
	case BackClosedSearch:
		return "closed-search"
	case BackExitedCheckout:
		return "exited-checkout"
	case BackReturnedToFeed:
		return "returned-to-feed"
	case BackExitApp:
		return "exit-app"
	}
	return fmt.Sprintf("BackResult(%d)", int(r))
}

func (r BackResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Presentation is how a completed checkout is shown.
type Presentation int

const (
	// PresentModal overlays the success UI on the checkout feed.
	PresentModal Presentation = iota
	// PresentView switches to the success view.
	PresentView
)

func (p Presentation) String() string {
	if p == PresentModal {
		return "modal"
	}
	return "view"
}

func (p Presentation) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a point-in-time copy of the machine.
type State struct {
	View              View           `json:"view"`
	RenderedView      View           `json:"rendered_view"`
	CheckoutMode      bool           `json:"checkout_mode"`
	CheckoutProductID string         `json:"checkout_product_id,omitempty"`
	SuccessModal      bool           `json:"success_modal"`
	SearchOpen        bool           `json:"search_open"`
	CurrentSeller     *models.Seller `json:"current_seller,omitempty"`
	FeedTab           FeedTab        `json:"feed_tab"`
	ShopSeller        string         `json:"shop_seller,omitempty"`
	Online            bool           `json:"online"`
	Advisory          bool           `json:"advisory"`
	ReleaseCode       string         `json:"release_code,omitempty"`
}

// ChromeVisible reports whether feed actions (cart, profile, search,
// create-post) are offered.
func (s State) ChromeVisible() bool {
	return !s.CheckoutMode
}

// Machine owns the view state of one app instance. Every method is one
// atomic event.
type Machine struct {
	mu      sync.Mutex
	host    Host
	catalog Catalog
	logger  *logrus.Entry

	view              View
	checkoutMode      bool
	checkoutProductID string
	successModal      bool
	searchOpen        bool
	seller            *models.Seller
	tab               FeedTab
	shopSeller        string
	online            bool
	advisory          bool
	releaseCode       string
}

func NewMachine(host Host, catalog Catalog, logger *logrus.Entry) *Machine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Machine{
		host:    host,
		catalog: catalog,
		logger:  logger,
		view:    ViewFeed,
		tab:     TabForYou,
		online:  true,
	}
}

// Attach subscribes the machine to the container's deep-link, history and
// back-button events. Closing the result unsubscribes all three.
func (m *Machine) Attach(b *Bridge) io.Closer {
	return Subscriptions{
		b.Subscribe(EventDeepLink, func(ev Event) { m.HandleURL(ev.URL) }),
		b.Subscribe(EventHistory, func(ev Event) { m.HandleURL(ev.URL) }),
		b.Subscribe(EventBackButton, func(Event) { m.Back() }),
	}
}

// Start applies the container's current address, as on app launch.
func (m *Machine) Start() State {
	return m.HandleURL(m.host.CurrentURL())
}

// HandleURL runs the deep-link resolver over rawURL. A match enters checkout
// mode for that product; no match leaves checkout mode if it was on. The
// active view is never touched.
func (m *Machine) HandleURL(rawURL string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := Match(rawURL, m.catalog)
	if ok {
		if !m.checkoutMode || m.checkoutProductID != id {
			m.logger.WithFields(logrus.Fields{"product_id": id}).Info("Entering checkout mode")
		}
		m.checkoutMode = true
		m.checkoutProductID = id
		return m.snapshotLocked()
	}

	if m.checkoutMode {
		m.logger.WithField("product_id", m.checkoutProductID).Info("Deep link no longer matches, leaving checkout mode")
		m.checkoutMode = false
		m.checkoutProductID = ""
	}
	// A product link the settled catalog cannot serve is dead; drop it from
	// the address bar as Reconcile does.
	if dead, linked := ResolveProductID(rawURL); linked {
		m.logger.WithField("product_id", dead).Warn("Shared product not in catalog, resetting address")
		m.host.ReplaceURL(RootPath)
	}
	return m.snapshotLocked()
}

// Reconcile re-checks a pending checkout product once the catalog has
// settled. A product that never arrived ends checkout mode instead of
// leaving an empty checkout on screen.
func (m *Machine) Reconcile() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.checkoutMode || m.catalog == nil || m.catalog.Loading() {
		return m.snapshotLocked()
	}
	if _, found := m.catalog.Lookup(models.ProductID(m.checkoutProductID)); !found {
		m.logger.WithField("product_id", m.checkoutProductID).Warn("Checkout product not in catalog, leaving checkout mode")
		m.exitCheckoutLocked()
	}
	return m.snapshotLocked()
}

// Navigate handles a feed action selecting v.
func (m *Machine) Navigate(v View) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !v.directlyNavigable() {
		return m.snapshotLocked(), fmt.Errorf("%w: %s", ErrInvalidTransition, v)
	}
	if m.checkoutMode {
		return m.snapshotLocked(), ErrSuppressed
	}
	m.setViewLocked(v)
	return m.snapshotLocked(), nil
}

func (m *Machine) OpenSearch() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checkoutMode {
		return m.snapshotLocked(), ErrSuppressed
	}
	m.searchOpen = true
	return m.snapshotLocked(), nil
}

func (m *Machine) CloseSearch() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searchOpen = false
	return m.snapshotLocked()
}

// SelectSeller opens a seller's profile from the feed.
func (m *Machine) SelectSeller(seller models.Seller) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checkoutMode {
		return m.snapshotLocked(), ErrSuppressed
	}
	m.seller = &seller
	m.setViewLocked(ViewSellerProfile)
	return m.snapshotLocked(), nil
}

// LeaveSellerProfile returns from the seller profile to the feed.
func (m *Machine) LeaveSellerProfile() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view == ViewSellerProfile {
		m.view = ViewFeed
	}
	m.seller = nil
	return m.snapshotLocked()
}

// SelectSellerPost picks post from the open seller's grid: the feed switches
// to the shop tab filtered to that seller. Posts by anyone else are rejected.
func (m *Machine) SelectSellerPost(post models.Product) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view != ViewSellerProfile || m.seller == nil {
		return m.snapshotLocked(), fmt.Errorf("%w: no seller profile open", ErrInvalidTransition)
	}
	if post.SellerHandle != m.seller.Handle {
		return m.snapshotLocked(), fmt.Errorf("%w: post %s is not by @%s", ErrInvalidTransition, post.ID, m.seller.Handle)
	}
	m.tab = TabShop
	m.shopSeller = m.seller.Handle
	m.view = ViewFeed
	return m.snapshotLocked(), nil
}

// SetFeedTab switches feed tabs. Leaving the shop tab drops its seller filter.
func (m *Machine) SetFeedTab(tab FeedTab) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checkoutMode {
		return m.snapshotLocked(), ErrSuppressed
	}
	m.tab = tab
	if tab != TabShop {
		m.shopSeller = ""
	}
	return m.snapshotLocked(), nil
}

// CompleteCheckout shows the success UI for code. The branch is taken on
// the checkout mode at the time of the call, not when checkout started.
func (m *Machine) CompleteCheckout(code string) (Presentation, State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseCode = code
	if m.checkoutMode {
		m.successModal = true
		return PresentModal, m.snapshotLocked()
	}
	m.view = ViewSuccess
	return PresentView, m.snapshotLocked()
}

// DismissSuccess closes whichever success UI is showing. Repeating it is a
// no-op.
func (m *Machine) DismissSuccess() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dismissSuccessLocked()
	return m.snapshotLocked()
}

func (m *Machine) dismissSuccessLocked() bool {
	switch {
	case m.successModal:
		m.successModal = false
		m.releaseCode = ""
		m.exitCheckoutLocked()
		return true
	case m.view == ViewSuccess:
		m.view = ViewFeed
		m.releaseCode = ""
		return true
	}
	return false
}

// Back handles a hardware back press. Rules are checked in a fixed order and
// the first that applies wins.
func (m *Machine) Back() (BackResult, State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.successModal:
		m.dismissSuccessLocked()
		return BackDismissedSuccess, m.snapshotLocked()
	case m.searchOpen:
		m.searchOpen = false
		return BackClosedSearch, m.snapshotLocked()
	case m.checkoutMode:
		m.exitCheckoutLocked()
		return BackExitedCheckout, m.snapshotLocked()
	case m.view != ViewFeed:
		m.setViewLocked(ViewFeed)
		m.seller = nil
		return BackReturnedToFeed, m.snapshotLocked()
	default:
		m.host.ExitApp()
		return BackExitApp, m.snapshotLocked()
	}
}

// SetConnectivity records a connectivity change. Every drop raises the
// offline advisory again.
func (m *Machine) SetConnectivity(online bool) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online && !online {
		m.advisory = true
	}
	if online {
		m.advisory = false
	}
	m.online = online
	return m.snapshotLocked()
}

func (m *Machine) DismissAdvisory() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.advisory = false
	return m.snapshotLocked()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// setViewLocked switches the active view. Leaving the success view drops
// the release code it was showing.
func (m *Machine) setViewLocked(v View) {
	if m.view == ViewSuccess && v != ViewSuccess && !m.successModal {
		m.releaseCode = ""
	}
	m.view = v
}

func (m *Machine) exitCheckoutLocked() {
	m.checkoutMode = false
	m.checkoutProductID = ""
	m.host.ReplaceURL(RootPath)
}

func (m *Machine) snapshotLocked() State {
	s := State{
		View:              m.view,
		RenderedView:      m.view,
		CheckoutMode:      m.checkoutMode,
		CheckoutProductID: m.checkoutProductID,
		SuccessModal:      m.successModal,
		SearchOpen:        m.searchOpen,
		FeedTab:           m.tab,
		ShopSeller:        m.shopSeller,
		Online:            m.online,
		Advisory:          m.advisory,
		ReleaseCode:       m.releaseCode,
	}
	if m.seller != nil {
		seller := *m.seller
		s.CurrentSeller = &seller
	}
	if s.RenderedView == ViewSellerProfile && s.CurrentSeller == nil {
		s.RenderedView = ViewFeed
	}
	return s
}
