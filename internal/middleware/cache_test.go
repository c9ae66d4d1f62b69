package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `[]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok, "header length beyond payload")
}

func TestCacheKeyStrategies(t *testing.T) {
	e := echo.New()
	keyFor := func(strategy, target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/movies/")
		return cacheKeyFrom(config.CacheConfig{Prefix: "cache", KeyStrategy: strategy}, c)
	}
	assert.NotEqual(t, keyFor("route_query", "/api/movies/?a=1"), keyFor("route_query", "/api/movies/?a=2"))
	assert.Equal(t, keyFor("route", "/api/movies/?a=1"), keyFor("route", "/api/movies/?a=2"))
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, keyFor("", "/api/movies/"))
}

func TestResponseCacheWithoutRedisPassesThrough(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil, nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/movies/", nil), rec)

	err := rc.Middleware()(func(c echo.Context) error { return c.String(http.StatusOK, "x") })(c)
	require.NoError(t, err)
	assert.Equal(t, "x", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, rc.Invalidate(context.Background()))

	var nilCache *ResponseCache
	assert.NoError(t, nilCache.Invalidate(context.Background()))
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(7), cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}
