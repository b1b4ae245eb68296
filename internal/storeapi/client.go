// Package storeapi is the typed client for the confectionery shop's REST API.
// It does request construction and response decoding only: no retries, no
// caching, no resolution policy. Every failure surfaces as an *Error.
package storeapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/macieszak/confectionery-storefront/internal/domain/catalog"
	"github.com/macieszak/confectionery-storefront/internal/domain/product"
)

// Client talks to the store backend. The caller owns the http.Client and is
// expected to install the httpclient middleware chain (bearer credential,
// request IDs, gzip, logging) on its transport.
type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
}

// NewClient creates a Client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api". A nil httpClient falls back to a plain client;
// timeouts come from the caller's context either way.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		validate: validator.New(),
	}
}

// CartMutation is the add-to-cart request. Validated before any network call.
type CartMutation struct {
	UserID    int64 `validate:"required,min=1"`
	ProductID int64 `validate:"required,min=1"`
	Quantity  int   `validate:"required,min=1"`
}

// FavoriteMutation is the add-to-favorites request.
type FavoriteMutation struct {
	UserID    int64 `validate:"required,min=1"`
	ProductID int64 `validate:"required,min=1"`
}

// Products fetches the whole catalog.
func (c *Client) Products(ctx context.Context) ([]product.Product, error) {
	return c.fetchList(ctx, "list products", "/products", nil)
}

// FilterProducts fetches products matching a category and/or price range.
// Nil bounds and an empty category leave the corresponding parameter off the
// request.
func (c *Client) FilterProducts(ctx context.Context, category string, minPrice, maxPrice *decimal.Decimal) ([]product.Product, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	if minPrice != nil {
		params.Set("minPrice", minPrice.String())
	}
	if maxPrice != nil {
		params.Set("maxPrice", maxPrice.String())
	}
	return c.fetchList(ctx, "filter products", "/products/filter", params)
}

// SortedProducts fetches the catalog pre-sorted by the server.
func (c *Client) SortedProducts(ctx context.Context, sort catalog.SortOrder) ([]product.Product, error) {
	params := url.Values{}
	params.Set("sort", string(sort))
	return c.fetchList(ctx, "sorted products", "/products/sorted", params)
}

// SearchProducts fetches products matching a free-text query.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]product.Product, error) {
	params := url.Values{}
	params.Set("query", query)
	return c.fetchList(ctx, "search products", "/products/search", params)
}

// ProductByID fetches a single product. A 404 maps to product.ErrNotFound.
func (c *Client) ProductByID(ctx context.Context, id int64) (*product.Product, error) {
	const op = "get product"
	data, err := c.getBytes(ctx, op, fmt.Sprintf("/products/%d", id), nil, product.ErrNotFound)
	if err != nil {
		return nil, err
	}
	p, err := decodeOneProduct(data)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindDecode, Err: err}
	}
	return &p, nil
}

// ProductImage fetches the raw image bytes for an image name.
func (c *Client) ProductImage(ctx context.Context, name string) ([]byte, error) {
	return c.getBytes(ctx, "get product image", "/products/img/"+url.PathEscape(name), nil, nil)
}

// AddToCart adds quantity units of a product to the user's cart. The backend
// takes all three values as path segments.
func (c *Client) AddToCart(ctx context.Context, userID, productID int64, quantity int) error {
	const op = "add to cart"
	m := CartMutation{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := c.validate.Struct(m); err != nil {
		return &Error{Op: op, Kind: KindClient, Err: err}
	}
	path := fmt.Sprintf("/users/%d/products/%d/%d", userID, productID, quantity)
	return c.post(ctx, op, path, "", nil)
}

// AddFavorite adds a product to the user's favorites. The backend expects a
// form-encoded body with the product ID in favoriteProductId.
func (c *Client) AddFavorite(ctx context.Context, userID, productID int64) error {
	const op = "add favorite"
	m := FavoriteMutation{UserID: userID, ProductID: productID}
	if err := c.validate.Struct(m); err != nil {
		return &Error{Op: op, Kind: KindClient, Err: err}
	}
	form := url.Values{}
	form.Set("favoriteProductId", strconv.FormatInt(productID, 10))
	path := fmt.Sprintf("/users/%d/favorites", userID)
	return c.post(ctx, op, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// fetchList GETs a product array endpoint and decodes it.
func (c *Client) fetchList(ctx context.Context, op, path string, params url.Values) ([]product.Product, error) {
	data, err := c.getBytes(ctx, op, path, params, nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeProducts(data)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindDecode, Err: err}
	}
	return list, nil
}

// getBytes GETs a URL and returns the response body. When notFound is non-nil
// it is returned verbatim for a 404; otherwise status codes are classified
// into the error taxonomy.
func (c *Client) getBytes(ctx context.Context, op, path string, params url.Values, notFound error) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindClient, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		return nil, notFound
	}
	if e := c.statusError(op, resp.StatusCode); e != nil {
		return nil, e
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Err: errors.Wrap(err, "read body")}
	}
	return data, nil
}

// post issues a POST and checks only the status; mutation endpoints return no
// body the client cares about.
func (c *Client) post(ctx context.Context, op, path, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Kind: KindClient, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return c.statusError(op, resp.StatusCode)
}

// statusError maps a non-2xx status to an *Error, or nil for success.
func (c *Client) statusError(op string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Op: op, Kind: KindClient, StatusCode: status, Err: ErrUnauthorized}
	case status >= 400 && status < 500:
		return &Error{Op: op, Kind: KindClient, StatusCode: status, Err: errors.Errorf("unexpected status %d", status)}
	default:
		return &Error{Op: op, Kind: KindServer, StatusCode: status, Err: errors.Errorf("unexpected status %d", status)}
	}
}
