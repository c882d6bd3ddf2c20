package transport

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

// Event is a single parsed server-sent event.
type Event struct {
	ID    string
	Event string
	Data  string
}

// EventStream is a finite, pull-based iterator over a server-sent-events
// response body. Call Next until it returns false, then check Err.
type EventStream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *bufio.Reader
	event  Event
	err    error
	closed bool
}

// Stream opens a GET/POST request expecting text/event-stream and returns a
// pull-based iterator over its events. The caller must call Close when done.
func (c *Client) Stream(ctx context.Context, req Request) (*EventStream, error) {
	if c == nil || c.Doer == nil {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "transport client requires an http doer")
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[headerAccept] = "text/event-stream"

	httpReq, cancel, err := c.build(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	httpRes, err := c.Doer.Do(httpReq)
	if err != nil {
		cancel()
		if ctxErr := sdkerr.FromContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, sdkerr.ClassifyNetworkError(err)
	}

	if httpRes.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(httpRes.Body, defaultResponseBodyLimit))
		httpRes.Body.Close()
		cancel()
		return nil, sdkerr.Classify(httpRes.StatusCode, body, httpRes.Header)
	}

	contentType := httpRes.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/event-stream") {
		httpRes.Body.Close()
		cancel()
		return nil, sdkerr.New(sdkerr.KindProtocol, "response is not a server-sent-events stream").
			WithMetadata(map[string]any{"content_type": contentType})
	}

	return &EventStream{ctx: ctx, body: httpRes.Body, reader: bufio.NewReader(httpRes.Body)}, nil
}

// Next advances the stream, returning false when the stream has ended
// (EOF) or failed (check Err) or the context was cancelled.
func (s *EventStream) Next() bool {
	if s == nil || s.closed {
		return false
	}
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			s.err = sdkerr.FromContext(s.ctx)
			return false
		}
	}

	var id, eventType strings.Builder
	var data strings.Builder
	sawData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && sawData {
				break
			}
			if err == io.EOF {
				s.err = nil
				return false
			}
			s.err = sdkerr.Wrap(sdkerr.KindStream, "reading event stream", err)
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if sawData {
				goto done
			}
			continue
		case strings.HasPrefix(line, "id:"):
			id.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "id:")))
		case strings.HasPrefix(line, "event:"):
			eventType.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		case strings.HasPrefix(line, "data:"):
			if sawData {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line, "data:"))
			sawData = true
		case strings.HasPrefix(line, ":"):
			// comment / keepalive line, ignored
		}
	}

done:
	s.event = Event{ID: id.String(), Event: eventType.String(), Data: strings.TrimSpace(data.String())}
	return true
}

// Event returns the event most recently parsed by Next.
func (s *EventStream) Event() Event {
	if s == nil {
		return Event{}
	}
	return s.event
}

// Err returns the error that stopped the stream, if any.
func (s *EventStream) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Close releases the underlying HTTP response body.
func (s *EventStream) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
