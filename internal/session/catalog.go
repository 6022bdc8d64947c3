// internal/session/catalog.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/navigation"
)

// ProductSource is the catalog backend.
type ProductSource interface {
	ListActive(ctx context.Context) ([]models.Product, error)
}

// CatalogStore holds the products one session browses. It starts in the
// loading state and settles after each Load.
type CatalogStore struct {
	source  ProductSource
	timeout time.Duration
	logger  *logrus.Entry

	mu       sync.RWMutex
	products []models.Product
	index    map[models.ProductID]int
	loading  bool

	subMu sync.Mutex
	next  int
	subs  map[int]func()
}

func NewCatalogStore(source ProductSource, timeout time.Duration, logger *logrus.Entry) *CatalogStore {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CatalogStore{
		source:  source,
		timeout: timeout,
		logger:  logger,
		index:   make(map[models.ProductID]int),
		loading: true,
		subs:    make(map[int]func()),
	}
}

// Load fetches the catalog. On failure the previous products are kept.
// Subscribers are told the catalog settled either way.
func (c *CatalogStore) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var products []models.Product
	var err error
	if c.source != nil {
		products, err = c.source.ListActive(ctx)
	}

	c.mu.Lock()
	if err == nil {
		c.products = products
		c.index = make(map[models.ProductID]int, len(products))
		for i, p := range products {
			c.index[p.ID] = i
		}
	}
	c.loading = false
	count := len(c.products)
	c.mu.Unlock()

	if err != nil {
		c.logger.WithError(err).Warn("Catalog fetch failed")
	} else {
		c.logger.WithFields(logrus.Fields{
			"products": count,
			"duration": time.Since(start).Milliseconds(),
		}).Debug("Catalog loaded")
	}

	c.notify()

	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return nil
}

func (c *CatalogStore) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *CatalogStore) Lookup(id models.ProductID) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return models.Product{}, false
	}
	return c.products[i], true
}

func (c *CatalogStore) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *CatalogStore) BySeller(handle string) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Product
	for _, p := range c.products {
		if p.SellerHandle == handle {
			out = append(out, p)
		}
	}
	return out
}

// Subscribe registers fn to run after every Load.
func (c *CatalogStore) Subscribe(fn func()) *navigation.Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.next
	c.next++
	c.subs[id] = fn
	return navigation.NewSubscription(func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	})
}

func (c *CatalogStore) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
