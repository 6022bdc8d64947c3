// internal/session/cart.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/models"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("cart line not found")
)

// KeyValueStore is the small persistence backend for carts and preferences.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

const (
	keyPrefix  = "duka:"
	cartPrefix = keyPrefix + "cart:"
	kvTimeout  = 2 * time.Second
)

type CartLine struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (l CartLine) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

// CartStore keeps one line per product. Quantities are always >= 1; a line
// that would drop to zero is removed. Totals are computed on read.
type CartStore struct {
	kv     KeyValueStore
	key    string
	logger *logrus.Entry

	mu    sync.Mutex
	lines []CartLine
}

func NewCartStore(kv KeyValueStore, deviceID string, logger *logrus.Entry) *CartStore {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CartStore{kv: kv, key: cartPrefix + deviceID, logger: logger}
}

// Restore loads the persisted cart, dropping any line that breaks the
// quantity or uniqueness rules.
func (c *CartStore) Restore(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return fmt.Errorf("read cart: %w", err)
	}
	if !ok {
		return nil
	}

	var stored []CartLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.WithError(err).Warn("Discarding unreadable cart snapshot")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = c.lines[:0]
	for _, l := range stored {
		if l.Quantity <= 0 || c.indexLocked(l.Product.ID) >= 0 {
			continue
		}
		c.lines = append(c.lines, l)
	}
	return nil
}

// AddItem adds qty units of product, merging into an existing line.
func (c *CartStore) AddItem(product models.Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(product.ID); i >= 0 {
		c.lines[i].Quantity += qty
	} else {
		c.lines = append(c.lines, CartLine{Product: product, Quantity: qty})
	}
	c.persistLocked()
	return nil
}

func (c *CartStore) RemoveItem(id models.ProductID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.persistLocked()
	return nil
}

// Decrement removes one unit; the last unit removes the line.
func (c *CartStore) Decrement(id models.ProductID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrLineNotFound
	}
	if c.lines[i].Quantity <= 1 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity--
	}
	c.persistLocked()
	return nil
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (c *CartStore) UpdateQuantity(id models.ProductID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = qty
	}
	c.persistLocked()
	return nil
}

func (c *CartStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.persistLocked()
}

func (c *CartStore) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *CartStore) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *CartStore) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

func (c *CartStore) indexLocked(id models.ProductID) int {
	for i, l := range c.lines {
		if l.Product.ID == id {
			return i
		}
	}
	return -1
}

func (c *CartStore) persistLocked() {
	if c.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()

	var err error
	if len(c.lines) == 0 {
		err = c.kv.Delete(ctx, c.key)
	} else {
		var data []byte
		data, err = json.Marshal(c.lines)
		if err == nil {
			err = c.kv.Set(ctx, c.key, string(data))
		}
	}
	if err != nil {
		c.logger.WithError(err).Warn("Failed to persist cart")
	}
}
