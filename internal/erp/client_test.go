package erp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	config "github.com/ristomat/socialcast/configs"
)

func newTestClient(server *httptest.Server) *Client {
	client := NewClient(config.ERP{
		BaseURL:  server.URL,
		Database: "prod",
		Login:    "bot@example.com",
		Password: "secret",
	})
	client.http = server.Client()
	return client
}

func rpcResult(w http.ResponseWriter, result any) {
	json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result})
}

func TestAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/web/session/authenticate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Params map[string]any `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Params["db"] != "prod" || req.Params["login"] != "bot@example.com" {
			t.Errorf("unexpected credentials: %v", req.Params)
		}

		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "abc123"})
		rpcResult(w, map[string]any{"uid": 7})
	}))
	defer server.Close()

	client := newTestClient(server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The ERP answers uid=false for bad credentials.
		rpcResult(w, map[string]any{"uid": nil})
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.Authenticate(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestCallSendsModelAndMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/web/dataset/call_kw/social.post/create" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Params struct {
				Model  string `json:"model"`
				Method string `json:"method"`
				Args   []any  `json:"args"`
			} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Params.Model != "social.post" || req.Params.Method != "create" {
			t.Errorf("unexpected call: %+v", req.Params)
		}

		rpcResult(w, 42)
	}))
	defer server.Close()

	client := newTestClient(server)
	raw, err := client.Call(context.Background(), "social.post", "create", []any{map[string]any{"message": "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var id int64
	json.Unmarshal(raw, &id)
	if id != 42 {
		t.Errorf("result = %d, want 42", id)
	}
}

func TestCallSessionExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": 100, "message": "Session Expired"},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Call(context.Background(), "social.post", "create", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestCallERPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"error": map[string]any{
				"code":    200,
				"message": "Odoo Server Error",
				"data":    map[string]any{"message": "ValidationError: message is required"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Call(context.Background(), "social.post", "create", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("a server error is not an auth failure")
	}
	if got := err.Error(); !strings.Contains(got, "ValidationError") {
		t.Errorf("error should carry the server detail, got %q", got)
	}
}
