package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() (string, bool) { return string(s), s != "" }

func get(t *testing.T, rt http.RoundTripper, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRequestIDStampsHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	}))
	defer server.Close()

	rt := Wrap(http.DefaultTransport, RequestID())
	get(t, rt, server.URL)

	_, err := uuid.Parse(got)
	assert.NoError(t, err, "X-Request-ID %q is not a UUID", got)
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "caller-chosen")

	resp, err := Wrap(http.DefaultTransport, RequestID()).RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "caller-chosen", got)
}

func TestBearerAttachesCredential(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	rt := Wrap(http.DefaultTransport, Bearer(staticToken("token-123")))
	get(t, rt, server.URL)
	assert.Equal(t, "Bearer token-123", got)
}

func TestBearerSkipsWhenSignedOut(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	rt := Wrap(http.DefaultTransport, Bearer(staticToken("")))
	get(t, rt, server.URL)
	assert.Empty(t, got)
}

func TestGzipDecompressesResponse(t *testing.T) {
	const payload = `[{"id":1,"name":"Macaron Box"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		zw := pgzip.NewWriter(w)
		_, _ = io.WriteString(zw, payload)
		_ = zw.Close()
	}))
	defer server.Close()

	// The server handler sets Content-Encoding itself, so the stock transport
	// must not decompress on our behalf.
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DisableCompression = true

	resp := get(t, Wrap(base, Gzip()), server.URL)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, payload, string(body))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	assert.True(t, resp.Uncompressed)
}

func TestGzipPassesIdentityThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain-bytes")
	}))
	defer server.Close()

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DisableCompression = true

	resp := get(t, Wrap(base, Gzip()), server.URL)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "plain-bytes", string(body))
}

func TestWrapOrdersOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	get(t, Wrap(http.DefaultTransport, tag("outer"), tag("inner")), server.URL)
	assert.Equal(t, []string{"outer", "inner"}, order)
}
