package catalog_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macieszak/confectionery-storefront/internal/domain/catalog"
	"github.com/macieszak/confectionery-storefront/internal/domain/product"
	"github.com/macieszak/confectionery-storefront/internal/fakestore"
	"github.com/macieszak/confectionery-storefront/internal/storeapi"
)

// --- Blocking source: every call parks until the test releases it, so tests
// control completion order precisely. ---

type callResult struct {
	list []product.Product
	err  error
}

type sourceCall struct {
	endpoint string
	category string
	search   string
	sort     catalog.SortOrder
	done     chan callResult
}

func (c *sourceCall) release(list []product.Product, err error) {
	c.done <- callResult{list: list, err: err}
}

type blockingSource struct {
	mu    sync.Mutex
	calls []*sourceCall
}

func (s *blockingSource) run(c *sourceCall) ([]product.Product, error) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	res := <-c.done
	return res.list, res.err
}

func (s *blockingSource) Products(_ context.Context) ([]product.Product, error) {
	return s.run(&sourceCall{endpoint: "list", done: make(chan callResult, 1)})
}

func (s *blockingSource) FilterProducts(_ context.Context, category string, _, _ *decimal.Decimal) ([]product.Product, error) {
	return s.run(&sourceCall{endpoint: "filter", category: category, done: make(chan callResult, 1)})
}

func (s *blockingSource) SortedProducts(_ context.Context, sort catalog.SortOrder) ([]product.Product, error) {
	return s.run(&sourceCall{endpoint: "sorted", sort: sort, done: make(chan callResult, 1)})
}

func (s *blockingSource) SearchProducts(_ context.Context, query string) ([]product.Product, error) {
	return s.run(&sourceCall{endpoint: "search", search: query, done: make(chan callResult, 1)})
}

// waitCalls blocks until at least n calls are in flight or were released.
func (s *blockingSource) waitCalls(t *testing.T, n int) []*sourceCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.calls) >= n {
			out := append([]*sourceCall(nil), s.calls...)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d source calls", n)
	return nil
}

func testProduct(id int64, name string, cat product.Category, price string) product.Product {
	return product.Product{
		ID:        id,
		Name:      name,
		Category:  cat,
		Price:     decimal.RequireFromString(price),
		ImageName: name + ".png",
	}
}

func waitSnapshot(t *testing.T, ch <-chan catalog.Snapshot) catalog.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return catalog.Snapshot{}
	}
}

// --- Tests ---

func TestLastResponseWins(t *testing.T) {
	src := &blockingSource{}
	engine := catalog.NewEngine(src, catalog.EngineOptions{})
	updates, cancel := engine.Updates()
	defer cancel()

	ctx := context.Background()
	engine.SetCategory(ctx, catalog.CategoryCakes) // seq 1
	src.waitCalls(t, 1)
	engine.SetSearchText(ctx, "tart") // seq 2
	calls := src.waitCalls(t, 2)

	older := testProduct(1, "Old Cake", product.CategoryCakes, "20.00")
	// Combined mode keeps the cakes filter active on the search result, so
	// the surviving product must itself be a cake.
	newer := testProduct(2, "Raspberry Tart", product.CategoryCakes, "18.00")

	// The newer request completes first.
	calls[1].release([]product.Product{newer}, nil)
	snap := waitSnapshot(t, updates)
	assert.Equal(t, uint64(2), snap.Seq)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, int64(2), snap.Products[0].ID)

	// The older request straggles in afterwards and must be discarded.
	calls[0].release([]product.Product{older}, nil)
	select {
	case snap := <-updates:
		t.Fatalf("stale response applied: seq %d", snap.Seq)
	case <-time.After(100 * time.Millisecond):
	}

	list := engine.CurrentList()
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestFilterPersistsAcrossSearch(t *testing.T) {
	src := &blockingSource{}
	engine := catalog.NewEngine(src, catalog.EngineOptions{})
	updates, cancel := engine.Updates()
	defer cancel()

	ctx := context.Background()
	engine.SetCategory(ctx, catalog.CategoryCakes)
	src.waitCalls(t, 1)[0].release(nil, nil)
	waitSnapshot(t, updates)

	engine.SetSearchText(ctx, "honey")
	src.waitCalls(t, 2)[1].release(nil, nil)
	waitSnapshot(t, updates)

	// Clearing the search drops back to the filtered view, not to "all".
	engine.SetSearchText(ctx, "")
	calls := src.waitCalls(t, 3)
	assert.Equal(t, "filter", calls[2].endpoint)
	assert.Equal(t, "cakes", calls[2].category)

	calls[2].release(nil, nil)
	snap := waitSnapshot(t, updates)
	assert.Equal(t, catalog.CategoryCakes, snap.Query.Category)
	assert.Empty(t, snap.Query.Search)
}

func TestFailureKeepsPreviousList(t *testing.T) {
	src := &blockingSource{}
	engine := catalog.NewEngine(src, catalog.EngineOptions{})
	updates, cancelUpdates := engine.Updates()
	defer cancelUpdates()
	failures, cancelFailures := engine.Failures()
	defer cancelFailures()

	ctx := context.Background()
	engine.Refresh(ctx)
	good := testProduct(1, "Macaron Box", product.CategoryOther, "28.00")
	src.waitCalls(t, 1)[0].release([]product.Product{good}, nil)
	waitSnapshot(t, updates)

	engine.SetSortOrder(ctx, catalog.SortCheapest)
	src.waitCalls(t, 2)[1].release(nil, errors.New("backend down"))

	select {
	case fail := <-failures:
		assert.Equal(t, uint64(2), fail.Seq)
		assert.Error(t, fail.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure event")
	}

	list := engine.CurrentList()
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}

func TestSearchExclusiveIgnoresFilters(t *testing.T) {
	src := &blockingSource{}
	engine := catalog.NewEngine(src, catalog.EngineOptions{Mode: catalog.SearchExclusive})
	updates, cancel := engine.Updates()
	defer cancel()

	ctx := context.Background()
	engine.SetCategory(ctx, catalog.CategoryCookies)
	src.waitCalls(t, 1)[0].release(nil, nil)
	waitSnapshot(t, updates)

	engine.SetSearchText(ctx, "cake")
	calls := src.waitCalls(t, 2)
	assert.Equal(t, "search", calls[1].endpoint)

	// A cake matches even though the cookies filter is still set on the axis.
	match := testProduct(1, "Raspberry Dream Cake", product.CategoryCakes, "45.00")
	calls[1].release([]product.Product{match}, nil)
	snap := waitSnapshot(t, updates)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, int64(1), snap.Products[0].ID)
}

func TestEndToEndCookiesUnderFifteenCheapest(t *testing.T) {
	store := fakestore.New()
	server := httptest.NewServer(store.Handler())
	defer server.Close()

	api := storeapi.NewClient(server.URL+"/api", nil)
	engine := catalog.NewEngine(api, catalog.EngineOptions{})
	updates, cancel := engine.Updates()
	defer cancel()

	ctx := context.Background()
	engine.SetCategory(ctx, catalog.CategoryCookies)
	engine.SetPriceBand(ctx, catalog.BandLow)
	engine.SetSortOrder(ctx, catalog.SortCheapest)

	var snap catalog.Snapshot
	for snap.Seq < 3 {
		snap = waitSnapshot(t, updates)
	}

	require.Len(t, snap.Products, 3)
	assert.Equal(t, "Chocolate Chip Cookies", snap.Products[0].Name)
	assert.Equal(t, "Vanilla Crescent Cookies", snap.Products[1].Name)
	assert.Equal(t, "Gingerbread Hearts", snap.Products[2].Name)
	for i := 1; i < len(snap.Products); i++ {
		assert.True(t, snap.Products[i-1].Price.LessThanOrEqual(snap.Products[i].Price))
	}
}
