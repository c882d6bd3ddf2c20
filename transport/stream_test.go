package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_StreamParsesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		w.Write([]byte("id: 1\nevent: message\ndata: hello\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
		w.Write([]byte("id: 2\nevent: message\ndata: world\n\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "test-agent")
	stream, err := c.Stream(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	var events []Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Data != "hello" || events[1].Data != "world" {
		t.Fatalf("got events %+v", events)
	}
}

func TestClient_StreamRejectsNonEventStreamContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "test-agent")
	_, err := c.Stream(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err == nil {
		t.Fatal("expected protocol error for non event-stream content type")
	}
}

func TestClient_StreamClassifiesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "test-agent")
	_, err := c.Stream(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err == nil {
		t.Fatal("expected an error for a 401 stream response")
	}
}
