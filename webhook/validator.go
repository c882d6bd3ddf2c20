// Package webhook validates and dispatches inbound webhook deliveries:
// payload-size capping, constant-time signature/token verification, an
// optional source-IP allowlist, and sequential registration-order handler
// dispatch keyed by event type.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/goliatone/go-sdkcore/sdkerr"
)

const defaultMaxPayloadBytes = 1 << 20 // 1 MiB

// Signature is the encoding a HMAC verifier's header value is carried in.
type Signature string

const (
	SignatureHex    Signature = "hex"
	SignatureBase64 Signature = "base64"
)

// Delivery is an inbound webhook request normalized for validation.
type Delivery struct {
	Headers    http.Header
	Body       []byte
	RemoteAddr string
}

// Verifier authenticates that a Delivery actually originated from the
// expected source.
type Verifier interface {
	Verify(d Delivery) error
}

// HMACVerifier checks a signature header against an HMAC-SHA256 of the raw
// body, using crypto/hmac's constant-time Equal to avoid timing side channels.
type HMACVerifier struct {
	Header   string
	Prefix   string
	Secret   string
	Encoding Signature
}

func (v HMACVerifier) Verify(d Delivery) error {
	header := strings.TrimSpace(d.Headers.Get(v.Header))
	if header == "" {
		return sdkerr.New(sdkerr.KindValidation, "missing webhook signature header").
			WithMetadata(map[string]any{"header": v.Header})
	}
	if v.Secret == "" {
		return sdkerr.New(sdkerr.KindConfiguration, "webhook signature secret is not configured")
	}

	signature := strings.TrimSpace(strings.TrimPrefix(header, v.Prefix))
	if signature == "" {
		return sdkerr.New(sdkerr.KindValidation, "empty webhook signature value")
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write(d.Body)
	expected := mac.Sum(nil)

	var decoded []byte
	var err error
	if v.Encoding == SignatureBase64 {
		decoded, err = base64.StdEncoding.DecodeString(signature)
	} else {
		decoded, err = hex.DecodeString(signature)
	}
	if err != nil {
		return sdkerr.Wrap(sdkerr.KindValidation, "decoding webhook signature", err)
	}
	if !hmac.Equal(decoded, expected) {
		return sdkerr.New(sdkerr.KindAuthentication, "webhook signature verification failed")
	}
	return nil
}

// TokenVerifier checks a static shared-secret header, supporting rotation by
// accepting either the current or previous secret.
type TokenVerifier struct {
	Header       string
	Token        string
	PreviousToken string
}

func (v TokenVerifier) Verify(d Delivery) error {
	actual := strings.TrimSpace(d.Headers.Get(v.Header))
	if actual == "" {
		return sdkerr.New(sdkerr.KindValidation, "missing webhook verification header").
			WithMetadata(map[string]any{"header": v.Header})
	}
	if subtle.ConstantTimeCompare([]byte(actual), []byte(v.Token)) == 1 {
		return nil
	}
	if v.PreviousToken != "" && subtle.ConstantTimeCompare([]byte(actual), []byte(v.PreviousToken)) == 1 {
		return nil
	}
	return sdkerr.New(sdkerr.KindAuthentication, "webhook verification token mismatch")
}

// Validator runs the full intake pipeline: size cap, signature/token
// verification, then an optional CIDR allowlist on the caller's address.
type Validator struct {
	MaxPayloadBytes int64
	Verifier        Verifier
	AllowedCIDRs    []*net.IPNet
}

// NewValidator builds a Validator; MaxPayloadBytes defaults to 1 MiB.
func NewValidator(verifier Verifier, allowedCIDRs []string) (*Validator, error) {
	nets := make([]*net.IPNet, 0, len(allowedCIDRs))
	for _, raw := range allowedCIDRs {
		_, ipnet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, sdkerr.Wrap(sdkerr.KindConfiguration, "invalid webhook allowlist CIDR", err)
		}
		nets = append(nets, ipnet)
	}
	return &Validator{MaxPayloadBytes: defaultMaxPayloadBytes, Verifier: verifier, AllowedCIDRs: nets}, nil
}

// Validate runs the full pipeline in order: size cap, then signature/token
// verification, then (if configured) the source-IP allowlist.
func (v *Validator) Validate(d Delivery) error {
	limit := v.MaxPayloadBytes
	if limit <= 0 {
		limit = defaultMaxPayloadBytes
	}
	if int64(len(d.Body)) > limit {
		return sdkerr.New(sdkerr.KindValidation, "webhook payload exceeds configured size limit").
			WithMetadata(map[string]any{"limit_bytes": limit})
	}

	if v.Verifier != nil {
		if err := v.Verifier.Verify(d); err != nil {
			return err
		}
	}

	if len(v.AllowedCIDRs) > 0 {
		host := d.RemoteAddr
		if h, _, err := net.SplitHostPort(d.RemoteAddr); err == nil {
			host = h
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return sdkerr.New(sdkerr.KindValidation, "could not parse remote address for allowlist check")
		}
		allowed := false
		for _, ipnet := range v.AllowedCIDRs {
			if ipnet.Contains(ip) {
				allowed = true
				break
			}
		}
		if !allowed {
			return sdkerr.New(sdkerr.KindAuthentication, "remote address is not in the webhook allowlist")
		}
	}

	return nil
}
