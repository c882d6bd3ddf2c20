package cohere

import (
	"context"
	"encoding/json"
	"fmt"
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
		Credential: credential.NewStatic("co-api-key"),
		HTTP:       server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client, server
}

func TestClient_Chat(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer co-api-key" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Model != "command-r" {
			t.Fatalf("got %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			ID:           "resp-1",
			Message:      Message{Role: "assistant", Content: "hi there"},
			FinishReason: "COMPLETE",
		})
	})
	defer server.Close()

	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:    "command-r",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message.Content != "hi there" || resp.FinishReason != "COMPLETE" {
		t.Fatalf("got %+v", resp)
	}
}

func TestClient_Chat_RejectsEmptyMessages(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an invalid request")
	})
	defer server.Close()

	if _, err := client.Chat(context.Background(), ChatRequest{Model: "command-r"}); err == nil {
		t.Fatal("expected validation error for empty messages")
	}
}

func TestClient_ChatStream_ParsesIncrementalEvents(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		writeEvent := func(event ChatStreamEvent) {
			payload, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if flusher != nil {
				flusher.Flush()
			}
		}
		first := ChatStreamEvent{Type: "content-delta"}
		first.Delta.Message = Message{Role: "assistant", Content: "hel"}
		writeEvent(first)
		second := ChatStreamEvent{Type: "content-delta"}
		second.Delta.Message = Message{Role: "assistant", Content: "lo"}
		writeEvent(second)
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	defer server.Close()

	stream, err := client.ChatStream(context.Background(), ChatRequest{
		Model:    "command-r",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	var chunks []string
	for stream.Next() {
		chunks = append(chunks, stream.Event().Delta.Message.Content)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "hel" || chunks[1] != "lo" {
		t.Fatalf("got %v", chunks)
	}
}

func TestClient_Embed(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(EmbedResponse{
			ID:         "embed-1",
			Embeddings: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		})
	})
	defer server.Close()

	resp, err := client.Embed(context.Background(), EmbedRequest{
		Model: "embed-english-v3.0",
		Texts: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Embeddings) != 2 {
		t.Fatalf("got %+v", resp)
	}
}

func TestClient_Embed_RejectsEmptyTexts(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for an invalid request")
	})
	defer server.Close()

	if _, err := client.Embed(context.Background(), EmbedRequest{Model: "embed-english-v3.0"}); err == nil {
		t.Fatal("expected validation error for empty texts")
	}
}
