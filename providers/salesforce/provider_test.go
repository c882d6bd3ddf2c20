package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-sdkcore/credential"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client, err := New(Config{
		InstanceURL: server.URL,
		Credential:  credential.NewStatic("00D-access-token"),
		HTTP:        server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client, server
}

func TestClient_Query_ParsesLimitHeader(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "SELECT Id FROM Account" {
			t.Fatalf("unexpected query param: %q", got)
		}
		w.Header().Set("Sforce-Limit-Info", "api-usage=12345/50000")
		_ = json.NewEncoder(w).Encode(QueryResult{
			TotalSize: 1, Done: true,
			Records: []map[string]any{{"Id": "001xx", "Name": "Acme"}},
		})
	})
	defer server.Close()

	result, limits, err := client.Query(context.Background(), "SELECT Id FROM Account")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalSize != 1 || !result.Done {
		t.Fatalf("got %+v", result)
	}
	if limits.Used != 12345 || limits.Remaining != 50000-12345 {
		t.Fatalf("got %+v", limits)
	}
}

func TestClient_Query_RejectsEmptySOQL(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an invalid request")
	})
	defer server.Close()

	if _, _, err := client.Query(context.Background(), "  "); err == nil {
		t.Fatal("expected validation error for empty query")
	}
}

func TestClient_CreateSObject(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v60.0/sobjects/Account" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer 00D-access-token" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(UpsertResult{ID: "001xx", Success: true})
	})
	defer server.Close()

	result, err := client.CreateSObject(context.Background(), "Account", map[string]any{"Name": "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.ID != "001xx" {
		t.Fatalf("got %+v", result)
	}
}

func TestResolveConfig_RuntimeOverridesEnvOverridesDefaults(t *testing.T) {
	cfg, err := ResolveConfig(
		map[string]any{"instance_url": "https://env.my.salesforce.com"},
		map[string]any{"api_version": "v61.0"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.InstanceURL != "https://env.my.salesforce.com" {
		t.Fatalf("expected env layer's instance url, got %q", cfg.InstanceURL)
	}
	if cfg.APIVersion != "v61.0" {
		t.Fatalf("expected runtime layer's api version, got %q", cfg.APIVersion)
	}
}

func TestResolveConfig_FailsFastWhenInstanceURLNeverSupplied(t *testing.T) {
	if _, err := ResolveConfig(nil, nil); err == nil {
		t.Fatal("expected a configuration error when no layer supplies instance_url")
	}
}

func TestClient_UpdateSObject_RejectsMissingID(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an invalid request")
	})
	defer server.Close()

	if err := client.UpdateSObject(context.Background(), "Account", "", map[string]any{"Name": "x"}); err == nil {
		t.Fatal("expected validation error for missing id")
	}
}
