package solrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3-fighter/sidewallet-analytics/internal/obslog"
	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
)

const validAddr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.Endpoint = srv.URL
	http := resty.New().SetBaseURL(srv.URL)
	return New(http, cfg, obslog.Noop())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestHealthReturnsResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": "ok"})
	}, Config{MinInterval: time.Millisecond, MaxRetries: 2})

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
}

func TestGetAccountInfoRejectsInvalidAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an invalid address")
	}, Config{MinInterval: time.Millisecond, MaxRetries: 2})

	_, err := c.GetAccountInfo(context.Background(), "too-short")
	require.Error(t, err)
	kind, ok := sidewallet.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, sidewallet.KindInvalidAddress, kind)
}

func TestGetAccountInfoNotFoundWhenValueNull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}})
	}, Config{MinInterval: time.Millisecond, MaxRetries: 2})

	_, err := c.GetAccountInfo(context.Background(), validAddr)
	require.Error(t, err)
	kind, ok := sidewallet.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, sidewallet.KindNotFound, kind)
}

func TestCallRetriesOnRateLimitedRPCCode(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			writeJSON(w, map[string]interface{}{
				"jsonrpc": "2.0", "id": 1,
				"error": map[string]interface{}{"code": 429, "message": "rate limited"},
			})
			return
		}
		writeJSON(w, map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": "ok"})
	}, Config{MinInterval: time.Millisecond, MaxRetries: 5})

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCallGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]interface{}{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]interface{}{"code": 429, "message": "rate limited"},
		})
	}, Config{MinInterval: time.Millisecond, MaxRetries: 3})

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetTransactionNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": nil})
	}, Config{MinInterval: time.Millisecond, MaxRetries: 2})

	_, err := c.GetTransaction(context.Background(), "somesignature")
	require.Error(t, err)
	kind, ok := sidewallet.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, sidewallet.KindNotFound, kind)
}
