package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) Idem {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}
}

func doIdemRequest(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/redirect", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyBlocksDuplicate(t *testing.T) {
	calls := 0
	handler := newIdem(t).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, doIdemRequest(handler, "key-1").Code)
	require.Equal(t, http.StatusConflict, doIdemRequest(handler, "key-1").Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyDistinctKeys(t *testing.T) {
	handler := newIdem(t).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, doIdemRequest(handler, "key-1").Code)
	require.Equal(t, http.StatusOK, doIdemRequest(handler, "key-2").Code)
}

func TestIdempotencyNoHeaderPassesThrough(t *testing.T) {
	calls := 0
	handler := newIdem(t).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, doIdemRequest(handler, "").Code)
	require.Equal(t, http.StatusOK, doIdemRequest(handler, "").Code)
	require.Equal(t, 2, calls)
}
