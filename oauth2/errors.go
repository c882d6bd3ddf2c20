package oauth2

import (
	"encoding/json"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

// tokenErrorBody is the RFC 6749 §5.2 error response shape returned by a
// token endpoint.
type tokenErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri"`
}

// mapTokenError classifies an RFC 6749 §5.2 token-endpoint error response
// into the shared error taxonomy.
func mapTokenError(status int, body []byte) *sdkerr.Error {
	var parsed tokenErrorBody
	_ = json.Unmarshal(body, &parsed)

	kind := sdkerr.KindAuthentication
	switch parsed.Error {
	case "invalid_request", "invalid_scope", "unsupported_grant_type":
		kind = sdkerr.KindValidation
	case "invalid_client", "invalid_grant", "unauthorized_client", "access_denied":
		kind = sdkerr.KindAuthentication
	case "slow_down", "authorization_pending":
		kind = sdkerr.KindRateLimit
	case "expired_token":
		kind = sdkerr.KindAuthentication
	default:
		if status >= 500 {
			kind = sdkerr.KindServer
		}
	}

	message := parsed.ErrorDescription
	if message == "" {
		message = parsed.Error
	}
	if message == "" {
		message = "oauth2 token request failed"
	}

	err := sdkerr.New(kind, message).WithStatus(status)
	if parsed.Error != "" {
		err.WithMetadata(map[string]any{"oauth2_error": parsed.Error, "oauth2_error_uri": parsed.ErrorURI})
	}
	return err
}
