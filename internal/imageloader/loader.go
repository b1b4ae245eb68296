// Package imageloader fetches product image bytes and hands them out as
// releasable resources. Concurrent requests for one image share a single
// fetch, and bytes stay cached only while at least one handle is alive.
package imageloader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves raw image bytes by image name.
type Fetcher interface {
	ProductImage(ctx context.Context, name string) ([]byte, error)
}

// Loader deduplicates and refcounts image fetches.
type Loader struct {
	fetch Fetcher
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*entry
}

type entry struct {
	data []byte
	refs int
}

// New creates a Loader over the given fetcher.
func New(fetch Fetcher) *Loader {
	return &Loader{
		fetch: fetch,
		cache: make(map[string]*entry),
	}
}

// Resource is one caller's handle on an image. Handles are never shared:
// every Resolve returns a fresh Resource, and each owner releases its own.
type Resource struct {
	name        string
	data        []byte
	placeholder bool

	loader   *Loader
	released atomic.Bool
}

// Name returns the image identifier this resource was resolved for.
func (r *Resource) Name() string { return r.name }

// Bytes returns the image payload, or nil after Release or for a placeholder.
func (r *Resource) Bytes() []byte {
	if r.released.Load() {
		return nil
	}
	return r.data
}

// Placeholder reports whether this resource stands in for a failed fetch.
// The caller may retry by resolving again.
func (r *Resource) Placeholder() bool { return r.placeholder }

// Release revokes the handle. When the last handle for an image is released
// the cached bytes are dropped, so a later Resolve re-validates against the
// backend instead of serving a dangling reference. Safe to call twice.
func (r *Resource) Release() {
	if r.released.Swap(true) {
		return
	}
	if r.placeholder || r.loader == nil {
		return
	}
	r.loader.release(r.name)
}

// Resolve returns a displayable resource for the image name. Failures degrade
// to a placeholder resource rather than an error; image trouble must never
// block the view that asked for it.
//
// Two concurrent Resolve calls for the same name issue one underlying fetch.
// Followers share the winner's fetch, including its failure.
func (l *Loader) Resolve(ctx context.Context, name string) *Resource {
	if name == "" {
		return &Resource{placeholder: true}
	}

	// A live entry means some view still holds the image; reuse its bytes.
	l.mu.Lock()
	if e, ok := l.cache[name]; ok {
		e.refs++
		l.mu.Unlock()
		return &Resource{name: name, data: e.data, loader: l}
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(name, func() (any, error) {
		return l.fetch.ProductImage(ctx, name)
	})
	if err != nil {
		zctx.From(ctx).Warn("image fetch failed",
			zap.String("image", name),
			zap.Error(err),
		)
		return &Resource{name: name, placeholder: true}
	}
	data := v.([]byte)

	l.mu.Lock()
	e, ok := l.cache[name]
	if !ok {
		e = &entry{data: data}
		l.cache[name] = e
	}
	e.refs++
	data = e.data
	l.mu.Unlock()

	return &Resource{name: name, data: data, loader: l}
}

func (l *Loader) release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.cache[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(l.cache, name)
	}
}
