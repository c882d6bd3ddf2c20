package sdkerr

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Classify maps a raw HTTP response (status, body, headers) onto the closed
// Kind taxonomy and produces a populated *Error, honoring a Retry-After
// header when the server supplied one.
func Classify(status int, body []byte, headers http.Header) *Error {
	kind := kindForStatus(status)
	message := classifyMessage(kind, status, body)

	err := build(kind, message, nil, status, nil)
	err.WithStatus(status)

	if ra := parseRetryAfter(headers); ra != nil {
		err.WithRetryAfter(*ra)
	}
	if len(body) > 0 {
		trimmed := body
		const maxEcho = 2048
		if len(trimmed) > maxEcho {
			trimmed = trimmed[:maxEcho]
		}
		err.WithMetadata(map[string]any{"response_body": string(trimmed)})
	}
	return err
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return KindValidation
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindProtocol
	}
}

func classifyMessage(kind Kind, status int, body []byte) string {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	if snippet == "" {
		return "request failed with status " + strconv.Itoa(status)
	}
	return "request failed with status " + strconv.Itoa(status) + ": " + snippet
}

// parseRetryAfter reads the Retry-After header in either delta-seconds or
// HTTP-date form, per RFC 7231 §7.1.3.
func parseRetryAfter(headers http.Header) *time.Duration {
	if headers == nil {
		return nil
	}
	raw := strings.TrimSpace(headers.Get("Retry-After"))
	if raw == "" {
		return nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			secs = 0
		}
		d := time.Duration(secs) * time.Second
		return &d
	}
	if when, err := http.ParseTime(raw); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}

// ClassifyNetworkError wraps a transport-level failure (dial/EOF/etc.) that
// never produced an HTTP response.
func ClassifyNetworkError(cause error) *Error {
	return Wrap(KindNetwork, "network error contacting upstream", cause)
}
