package oauth2

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/token"
	"github.com/goliatone/go-sdkcore/transport"
)

// DeviceFlow implements the device-authorization grant (RFC 8628).
type DeviceFlow struct {
	Config        ClientConfig
	DeviceAuthURL string
	HTTP          *transport.Client
}

// NewDeviceFlow builds a DeviceFlow.
func NewDeviceFlow(cfg ClientConfig, deviceAuthURL string, httpClient *transport.Client) *DeviceFlow {
	return &DeviceFlow{Config: cfg, DeviceAuthURL: deviceAuthURL, HTTP: httpClient}
}

// DeviceCode is the response of starting a device-authorization request,
// per RFC 8628 §3.2.
type DeviceCode struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresAt               time.Time
	Interval                time.Duration
}

type deviceAuthResponseBody struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// RequestDeviceCode starts a device-authorization flow, returning the code
// the user must enter at VerificationURI.
func (f *DeviceFlow) RequestDeviceCode(ctx context.Context, scopes []string) (DeviceCode, error) {
	if len(scopes) == 0 {
		scopes = f.Config.Scopes
	}
	form := url.Values{}
	form.Set("client_id", f.Config.ClientID)
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	res, err := f.HTTP.Send(ctx, transport.Request{
		Method:  "POST",
		URL:     f.DeviceAuthURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return DeviceCode{}, err
	}

	var parsed deviceAuthResponseBody
	if err := json.Unmarshal(res.Body, &parsed); err != nil {
		return DeviceCode{}, sdkerr.Wrap(sdkerr.KindSerialization, "decoding device authorization response", err)
	}
	if parsed.DeviceCode == "" {
		return DeviceCode{}, sdkerr.New(sdkerr.KindProtocol, "device authorization response missing device_code")
	}

	interval := time.Duration(parsed.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return DeviceCode{
		DeviceCode:              parsed.DeviceCode,
		UserCode:                parsed.UserCode,
		VerificationURI:         parsed.VerificationURI,
		VerificationURIComplete: parsed.VerificationURIComplete,
		ExpiresAt:               time.Now().UTC().Add(time.Duration(parsed.ExpiresIn) * time.Second),
		Interval:                interval,
	}, nil
}

// Poll performs a single device-token poll. Callers loop on this, sleeping
// Interval between attempts until the user authorizes or ExpiresAt passes.
// authorization_pending and slow_down both come back as rate_limit errors
// carrying the RFC 8628 code in their oauth2_error metadata; no RetryAfter
// is set on them.
func (f *DeviceFlow) Poll(ctx context.Context, deviceCode string) (token.Bundle, error) {
	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")
	form.Set("device_code", deviceCode)
	form.Set("client_id", f.Config.ClientID)
	return exchangeForm(ctx, f.HTTP, f.Config.TokenURL, form)
}
