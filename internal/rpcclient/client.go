// Package rpcclient provides a JSON-RPC 2.0 client for klingnet nodes and
// the ledger view the purse builds on top of it.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingnet-purse/internal/log"
	"github.com/Klingon-tech/klingnet-purse/pkg/types"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// codeInvalidParams is the JSON-RPC 2.0 "invalid params" error code.
const codeInvalidParams = -32602

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
}

// Options tunes the HTTP transport.
type Options struct {
	Timeout time.Duration
	// MaxConnsPerHost caps concurrent connections to the node; it should
	// match the number of lookup workers. Zero means unlimited.
	MaxConnsPerHost int
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithOptions(endpoint, Options{})
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	return NewWithOptions(endpoint, Options{Timeout: timeout})
}

// NewWithOptions creates a new RPC client with a tuned transport.
func NewWithOptions(endpoint string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		MaxIdleConnsPerHost: opts.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
}

// Endpoint returns the URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TransientError marks a failure that may succeed when retried: the node
// was unreachable, answered with an HTTP error, or sent an unreadable reply.
type TransientError struct {
	Method string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
//
// Transport and decoding failures are returned as *TransientError. An
// "invalid params" reply becomes a *types.ValidationError; any other server
// error is an *RPCError.
func (c *Client) Call(method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return &TransientError{Method: method, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}
	log.Client.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("RPC call")

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &TransientError{Method: method, Err: fmt.Errorf("http status %s", resp.Status)}
		}
		return &TransientError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}

	if rpcResp.Error != nil {
		rerr := &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
		if rerr.Code == codeInvalidParams {
			return &types.ValidationError{Op: method, Err: rerr}
		}
		return rerr
	}
	if resp.StatusCode != http.StatusOK {
		return &TransientError{Method: method, Err: fmt.Errorf("http status %s", resp.Status)}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return &TransientError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
		}
	}

	return nil
}
