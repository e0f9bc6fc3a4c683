// Package solrpc is the RPC Client layer: JSON-RPC calls against a Solana
// node under rate-limit and retry discipline.
package solrpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	nethttp "net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/web3-fighter/sidewallet-analytics/internal/obslog"
	"github.com/web3-fighter/sidewallet-analytics/internal/ratelimit"
	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
	"github.com/web3-fighter/sidewallet-analytics/internal/solrpc/rpctypes"
)

var errHTTPError = errors.New("rpc http error")

const (
	connectTimeout = 8 * time.Second
	totalTimeout   = 25 * time.Second

	backoffBase = 250 * time.Millisecond
	backoffCap  = 3 * time.Second

	rpcErrCodeRateLimited = 429
)

// Config controls retry and spacing behavior; zero values take the
// documented defaults.
type Config struct {
	Endpoint       string
	MinInterval    time.Duration
	MaxRetries     int
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = 120 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.MaxRetries > 15 {
		c.MaxRetries = 15
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	return c
}

// Client is the RPC Client contract: health, account lookup, signature
// listing and transaction fetch, all under the shared token bucket.
type Client interface {
	Health(ctx context.Context) (string, error)
	GetAccountInfo(ctx context.Context, address string) (*rpctypes.AccountInfo, error)
	ListSignatures(ctx context.Context, address string, limit uint64, before string) ([]*rpctypes.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*rpctypes.TransactionResult, error)
}

type client struct {
	http    *resty.Client
	bucket  *ratelimit.Bucket
	cfg     Config
	log     *obslog.Logger
}

// New builds a Client against a resty.Client already pointed at the
// configured endpoint (connect/total timeouts are applied here).
func New(http *resty.Client, cfg Config, log *obslog.Logger) Client {
	cfg = cfg.withDefaults()
	http.SetTimeout(totalTimeout)
	if t, ok := http.GetClient().Transport.(*nethttp.Transport); ok {
		t.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	}
	return &client{http: http, bucket: ratelimit.New(cfg.MinInterval), cfg: cfg, log: log}
}

func (c *client) Health(ctx context.Context) (string, error) {
	var resp rpctypes.GetHealthResponse
	if err := c.call(ctx, "getHealth", []interface{}{}, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		if resp.Error.Code == -32005 {
			return "behind", nil
		}
		return "", sidewallet.RPCError("rpc error", fmt.Errorf("code=%d message=%s", resp.Error.Code, resp.Error.Message))
	}
	return resp.Result, nil
}

func (c *client) GetAccountInfo(ctx context.Context, address string) (*rpctypes.AccountInfo, error) {
	if !sidewallet.ValidAddress(address) {
		return nil, sidewallet.InvalidAddress(fmt.Sprintf("address length %d not in [32,44]", len(address)))
	}
	var resp rpctypes.GetAccountInfoResponse
	params := []interface{}{address, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, sidewallet.RPCError("rpc error", fmt.Errorf("code=%d message=%s", resp.Error.Code, resp.Error.Message))
	}
	if resp.Result.Value == nil {
		return nil, sidewallet.NotFound("account not found")
	}
	return resp.Result.Value, nil
}

func (c *client) ListSignatures(ctx context.Context, address string, limit uint64, before string) ([]*rpctypes.SignatureInfo, error) {
	if !sidewallet.ValidAddress(address) {
		return nil, sidewallet.InvalidAddress(fmt.Sprintf("address length %d not in [32,44]", len(address)))
	}
	req := rpctypes.GetSignaturesRequest{Commitment: "confirmed", Limit: limit, Before: before}
	var resp rpctypes.GetSignaturesResponse
	if err := c.call(ctx, "getSignaturesForAddress", []interface{}{address, req}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, sidewallet.RPCError("rpc error", fmt.Errorf("code=%d message=%s", resp.Error.Code, resp.Error.Message))
	}
	return resp.Result, nil
}

func (c *client) GetTransaction(ctx context.Context, signature string) (*rpctypes.TransactionResult, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, sidewallet.InvalidAddress("empty signature")
	}
	config := map[string]interface{}{
		"encoding":                       "jsonParsed",
		"commitment":                     "confirmed",
		"maxSupportedTransactionVersion": 0,
	}
	var resp rpctypes.GetTransactionResponse
	if err := c.call(ctx, "getTransaction", []interface{}{signature, config}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, sidewallet.RPCError("rpc error", fmt.Errorf("code=%d message=%s", resp.Error.Code, resp.Error.Message))
	}
	if resp.Result == nil {
		return nil, sidewallet.NotFound(fmt.Sprintf("transaction not found: %s", signature))
	}
	return resp.Result, nil
}

// call performs one JSON-RPC round trip with rate limiting and retry on
// network failure, HTTP 429 and JSON-RPC code 429.
func (c *client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	// result is decoded into fresh on every attempt: encoding/json only
	// overwrites fields present in the response body, so reusing one
	// destination across retries would let a prior attempt's rpc error
	// survive into a later, genuinely successful decode.
	resultType := reflect.ValueOf(result).Elem().Type()

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.bucket.Acquire(ctx); err != nil {
			return sidewallet.RPCError("rate limiter wait", err)
		}

		fresh := reflect.New(resultType).Interface()
		httpResp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(fresh).Post("/")
		if err == nil {
			reflect.ValueOf(result).Elem().Set(reflect.ValueOf(fresh).Elem())
		}
		if err == nil && !httpResp.IsError() {
			if retryable, code := rpcErrorCode(result); retryable {
				lastErr = fmt.Errorf("rpc code %d rate-limited", code)
				c.sleepBackoff(ctx, attempt)
				continue
			}
			return nil
		}

		if err != nil {
			lastErr = err
		} else if httpResp.StatusCode() == 429 {
			lastErr = fmt.Errorf("%w: http 429", errHTTPError)
		} else {
			return sidewallet.RPCError(method, fmt.Errorf("%w: status=%d", errHTTPError, httpResp.StatusCode()))
		}

		if attempt+1 < c.cfg.MaxRetries {
			c.log.Warnw("rpc call retrying", "method", method, "attempt", attempt, "err", lastErr)
			c.sleepBackoff(ctx, attempt)
			continue
		}
	}
	return sidewallet.RPCError(method, lastErr)
}

func (c *client) sleepBackoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if d > backoffCap {
		d = backoffCap
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// rpcErrorCode extracts a JSON-RPC error code from any of the typed
// response structs that embed *rpctypes.RPCError as "Error", reporting
// whether it should be retried as a rate-limit signal.
func rpcErrorCode(result interface{}) (bool, int) {
	switch r := result.(type) {
	case *rpctypes.GetHealthResponse:
		return errCode(r.Error)
	case *rpctypes.GetAccountInfoResponse:
		return errCode(r.Error)
	case *rpctypes.GetSignaturesResponse:
		return errCode(r.Error)
	case *rpctypes.GetTransactionResponse:
		return errCode(r.Error)
	default:
		return false, 0
	}
}

func errCode(e *rpctypes.RPCError) (bool, int) {
	if e == nil {
		return false, 0
	}
	if e.Code == rpcErrCodeRateLimited {
		return true, e.Code
	}
	return false, e.Code
}
