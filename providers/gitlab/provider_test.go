package gitlab

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
		BaseURL:    server.URL,
		Credential: credential.NewStatic("glpat-test-token"),
		HTTP:       server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client, server
}

func TestClient_GetProject(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer glpat-test-token" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		if r.URL.Path != "/projects/42" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Project{ID: 42, Name: "widgets", PathWithNamespace: "acme/widgets"})
	})
	defer server.Close()

	project, err := client.GetProject(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if project.Name != "widgets" {
		t.Fatalf("got %+v", project)
	}
}

func TestClient_ListIssues_ParsesPaginationHeaders(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total", "2")
		w.Header().Set("X-Next-Page", "2")
		_ = json.NewEncoder(w).Encode([]Issue{{IID: 1, Title: "a"}, {IID: 2, Title: "b"}})
	})
	defer server.Close()

	page, err := client.ListIssues(context.Background(), 42, ListOptions{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 || page.TotalItems != 2 || page.NextPage != 2 {
		t.Fatalf("got %+v", page)
	}
}

func TestClient_CreateIssue_RejectsEmptyTitle(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an invalid request")
	})
	defer server.Close()

	if _, err := client.CreateIssue(context.Background(), 1, CreateIssueRequest{}); err == nil {
		t.Fatal("expected validation error for empty title")
	}
}

func TestClient_CreateIssue_PostsJSONBody(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var got CreateIssueRequest
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("unexpected error decoding body: %v", err)
		}
		if got.Title != "bug report" {
			t.Fatalf("got %+v", got)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Issue{IID: 7, Title: got.Title, State: "opened"})
	})
	defer server.Close()

	issue, err := client.CreateIssue(context.Background(), 1, CreateIssueRequest{Title: "bug report"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue.IID != 7 || issue.State != "opened" {
		t.Fatalf("got %+v", issue)
	}
}
