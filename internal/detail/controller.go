// Package detail drives a single product's detail view: metadata load, image
// resolution, quantity selection, and the authorization-gated cart and
// favorite mutations.
package detail

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/macieszak/confectionery-storefront/internal/domain/product"
	"github.com/macieszak/confectionery-storefront/internal/event"
	"github.com/macieszak/confectionery-storefront/internal/imageloader"
	"github.com/macieszak/confectionery-storefront/internal/session"
)

// StoreAPI is the slice of the store client the controller needs.
type StoreAPI interface {
	ProductByID(ctx context.Context, id int64) (*product.Product, error)
	AddToCart(ctx context.Context, userID, productID int64, quantity int) error
	AddFavorite(ctx context.Context, userID, productID int64) error
}

// State is the controller's lifecycle for the current product.
type State int

const (
	// StateIdle means no product has been loaded yet.
	StateIdle State = iota
	// StateLoading means the metadata fetch is in flight.
	StateLoading
	// StateReady means metadata is loaded; the view is usable even while the
	// image is still resolving.
	StateReady
	// StateError is terminal for the current product; only loading a
	// different product leaves it.
	StateError
)

var (
	// ErrActionPending is returned when a cart or favorite mutation is
	// invoked while the same action is already in flight for this product.
	ErrActionPending = errors.New("action already in flight")
	// ErrNotReady is returned for mutations before a product is loaded.
	ErrNotReady = errors.New("product not loaded")
)

type action int

const (
	actionCart action = iota
	actionFavorite
)

type pendingKey struct {
	productID int64
	act       action
}

// Options tune a Controller.
type Options struct {
	// MaxQuantity caps the quantity selector. Defaults to 99.
	MaxQuantity int
}

// Controller owns the detail view state for one product at a time. All state
// transitions are keyed by the product ID current at completion time, so a
// stale fetch finishing after navigation is ignored rather than applied.
type Controller struct {
	api    StoreAPI
	images *imageloader.Loader
	gate   session.Gate
	cart   *event.Stream[event.CartChange]
	maxQty int

	mu        sync.Mutex
	productID int64
	state     State
	product   *product.Product
	image     *imageloader.Resource
	quantity  int
	loadErr   error
	pending   map[pendingKey]bool
}

// NewController wires a Controller. The cart stream receives one CartChange
// per successful add-to-cart.
func NewController(api StoreAPI, images *imageloader.Loader, gate session.Gate, cart *event.Stream[event.CartChange], opts Options) *Controller {
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = 99
	}
	return &Controller{
		api:      api,
		images:   images,
		gate:     gate,
		cart:     cart,
		maxQty:   opts.MaxQuantity,
		quantity: 1,
		pending:  make(map[pendingKey]bool),
	}
}

// Load fetches the product's metadata and, on success, starts resolving its
// image in the background. It resets quantity to 1 and releases the previous
// product's image handle. The returned error mirrors the Error state.
func (c *Controller) Load(ctx context.Context, productID int64) error {
	c.mu.Lock()
	c.productID = productID
	c.state = StateLoading
	c.product = nil
	c.loadErr = nil
	c.quantity = 1
	old := c.image
	c.image = nil
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}

	p, err := c.api.ProductByID(ctx, productID)

	c.mu.Lock()
	if c.productID != productID {
		// Navigated away while fetching; the result belongs to nobody.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.state = StateError
		c.loadErr = err
		c.mu.Unlock()
		zctx.From(ctx).Warn("product load failed",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return err
	}
	c.state = StateReady
	c.product = p
	c.mu.Unlock()

	go c.loadImage(ctx, productID, p.ImageName)
	return nil
}

// loadImage resolves the product image without blocking the detail view.
func (c *Controller) loadImage(ctx context.Context, productID int64, name string) {
	res := c.images.Resolve(ctx, name)

	c.mu.Lock()
	if c.productID != productID || c.state != StateReady {
		c.mu.Unlock()
		res.Release()
		return
	}
	old := c.image
	c.image = res
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// Close releases the current image handle. Call when the view unmounts.
func (c *Controller) Close() {
	c.mu.Lock()
	old := c.image
	c.image = nil
	c.productID = 0
	c.state = StateIdle
	c.product = nil
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the metadata load error, if the controller is in StateError.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Product returns the loaded product, or nil before Ready.
func (c *Controller) Product() *product.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.product
}

// Image returns the current image handle, or nil while it resolves. Ownership
// stays with the controller; callers must not release it.
func (c *Controller) Image() *imageloader.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// Quantity returns the selected quantity.
func (c *Controller) Quantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quantity
}

// IncrementQuantity raises the quantity by one, capped at MaxQuantity.
func (c *Controller) IncrementQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantity < c.maxQty {
		c.quantity++
	}
	return c.quantity
}

// DecrementQuantity lowers the quantity by one, clamped at 1.
func (c *Controller) DecrementQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantity > 1 {
		c.quantity--
	}
	return c.quantity
}

// AddToCart adds the current quantity of the loaded product to the signed-in
// user's cart. Without an identity it reports session.ErrSignInRequired and
// performs no network call. Exactly one CartChange is published per success.
func (c *Controller) AddToCart(ctx context.Context) error {
	identity, ok := c.gate.Identity()
	if !ok {
		return session.ErrSignInRequired
	}

	c.mu.Lock()
	if c.state != StateReady || c.product == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	productID := c.product.ID
	quantity := c.quantity
	key := pendingKey{productID: productID, act: actionCart}
	if c.pending[key] {
		c.mu.Unlock()
		return ErrActionPending
	}
	c.pending[key] = true
	c.mu.Unlock()

	defer c.clearPending(key)

	if err := c.api.AddToCart(ctx, identity.UserID, productID, quantity); err != nil {
		return errors.Wrap(err, "add to cart")
	}

	c.cart.Publish(event.CartChange{
		UserID:    identity.UserID,
		ProductID: productID,
		Quantity:  quantity,
	})
	zctx.From(ctx).Info("added to cart",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return nil
}

// AddToFavorite adds the loaded product to the signed-in user's favorites.
// Same authorization gate as AddToCart; cart state is untouched.
func (c *Controller) AddToFavorite(ctx context.Context) error {
	identity, ok := c.gate.Identity()
	if !ok {
		return session.ErrSignInRequired
	}

	c.mu.Lock()
	if c.state != StateReady || c.product == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	productID := c.product.ID
	key := pendingKey{productID: productID, act: actionFavorite}
	if c.pending[key] {
		c.mu.Unlock()
		return ErrActionPending
	}
	c.pending[key] = true
	c.mu.Unlock()

	defer c.clearPending(key)

	if err := c.api.AddFavorite(ctx, identity.UserID, productID); err != nil {
		return errors.Wrap(err, "add favorite")
	}
	zctx.From(ctx).Info("added to favorites", zap.Int64("product_id", productID))
	return nil
}

func (c *Controller) clearPending(key pendingKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}
