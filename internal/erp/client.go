package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	config "github.com/ristomat/socialcast/configs"
)

var (
	// ErrUnauthorized means the ERP session is missing or expired.
	ErrUnauthorized = errors.New("erp: session expired or not authenticated")
	ErrNotFound     = errors.New("erp: record not found")
)

const sessionExpiredCode = 100

// Client speaks the ERP's JSON-RPC web gateway. A single authenticated
// session (cookie) is shared by all calls; Authenticate may be called again
// at any time to refresh it.
type Client struct {
	baseURL  string
	database string
	login    string
	password string

	http *http.Client
}

func NewClient(cfg config.ERP) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL:  cfg.BaseURL,
		database: cfg.Database,
		login:    cfg.Login,
		password: cfg.Password,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Jar:     jar,
		},
	}
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int64          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (e *rpcError) String() string {
	if e.Data.Message != "" {
		return e.Data.Message
	}
	return e.Message
}

// Authenticate opens (or refreshes) the ERP session. The session cookie is
// kept in the client's jar and reused by every subsequent call.
func (c *Client) Authenticate(ctx context.Context) error {
	params := map[string]any{
		"db":       c.database,
		"login":    c.login,
		"password": c.password,
	}

	raw, err := c.rpc(ctx, "/web/session/authenticate", params)
	if err != nil {
		return fmt.Errorf("erp authenticate: %w", err)
	}

	var session struct {
		UID int64 `json:"uid"`
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("erp authenticate: parse response: %w", err)
	}
	if session.UID == 0 {
		return ErrUnauthorized
	}

	slog.Info("erp session established", "uid", session.UID)
	return nil
}

// Call invokes model.method on the ERP through the generic call_kw endpoint.
func (c *Client) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	params := map[string]any{
		"model":  model,
		"method": method,
		"args":   args,
		"kwargs": kwargs,
	}

	endpoint := fmt.Sprintf("/web/dataset/call_kw/%s/%s", model, method)
	raw, err := c.rpc(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("erp call %s.%s: %w", model, method, err)
	}
	return raw, nil
}

func (c *Client) rpc(ctx context.Context, endpoint string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      time.Now().UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from ERP: %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	if rpcResp.Error != nil {
		if rpcResp.Error.Code == sessionExpiredCode {
			return nil, ErrUnauthorized
		}
		slog.Info("erp rpc error", "endpoint", endpoint, "message", rpcResp.Error.String())
		return nil, fmt.Errorf("erp error: %s", rpcResp.Error.String())
	}

	return rpcResp.Result, nil
}
