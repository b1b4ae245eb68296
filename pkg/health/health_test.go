package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func probe(t *testing.T, endpoint http.HandlerFunc) int {
	t.Helper()
	rec := httptest.NewRecorder()
	endpoint(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec.Code
}

func TestReadyOnlyAfterSetReady(t *testing.T) {
	h := New()

	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h.ReadyEndpoint))
	h.SetReady(true)
	assert.Equal(t, http.StatusOK, probe(t, h.ReadyEndpoint))
	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h.ReadyEndpoint))
}

func TestCheckFlipsAfterConsecutiveFailures(t *testing.T) {
	h := New()
	c := &check{name: "backend", timeout: time.Second, fn: func(context.Context) error {
		return errors.New("down")
	}}
	c.healthy.Store(true)
	h.checks = append(h.checks, c)

	ctx := context.Background()
	c.run(ctx)
	c.run(ctx)
	assert.Equal(t, http.StatusOK, probe(t, h.LiveEndpoint), "two failures must not flip the check")

	c.run(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, h.LiveEndpoint))

	// A single success recovers.
	c.fn = func(context.Context) error { return nil }
	c.run(ctx)
	assert.Equal(t, http.StatusOK, probe(t, h.LiveEndpoint))
}
