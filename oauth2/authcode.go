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

// ClientConfig is the shared configuration for every grant type: the
// provider's endpoints and this client's registered identity.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
	IntrospectURL string
	RedirectURI  string
	Scopes       []string
}

// AuthorizationCodeFlow drives the authorization-code (+PKCE) grant: build
// the browser redirect URL, hold CSRF/PKCE state, and exchange the returned
// code for a token.Bundle.
type AuthorizationCodeFlow struct {
	Config ClientConfig
	States StateStore
	HTTP   *transport.Client
}

// NewAuthorizationCodeFlow builds an AuthorizationCodeFlow backed by the given
// state store and HTTP client.
func NewAuthorizationCodeFlow(cfg ClientConfig, states StateStore, httpClient *transport.Client) *AuthorizationCodeFlow {
	return &AuthorizationCodeFlow{Config: cfg, States: states, HTTP: httpClient}
}

// AuthorizationRequest is the result of BeginAuthorization: the URL to send
// the user's browser to, plus the state value the caller may want to log.
type AuthorizationRequest struct {
	URL   string
	State string
}

// BeginAuthorization generates state + a PKCE pair, persists them, and
// returns the authorization URL to redirect the user to.
func (f *AuthorizationCodeFlow) BeginAuthorization(ctx context.Context, extraParams map[string]string) (AuthorizationRequest, error) {
	if f == nil || f.States == nil {
		return AuthorizationRequest{}, sdkerr.New(sdkerr.KindConfiguration, "authorization code flow requires a state store")
	}

	state, err := GenerateState()
	if err != nil {
		return AuthorizationRequest{}, err
	}
	verifier, err := GenerateVerifier()
	if err != nil {
		return AuthorizationRequest{}, err
	}

	if err := f.States.Save(ctx, StateRecord{
		State:        state,
		PKCEVerifier: verifier,
		RedirectURI:  f.Config.RedirectURI,
		Scopes:       f.Config.Scopes,
	}); err != nil {
		return AuthorizationRequest{}, err
	}

	parsed, err := url.Parse(f.Config.AuthURL)
	if err != nil {
		return AuthorizationRequest{}, sdkerr.Wrap(sdkerr.KindConfiguration, "invalid authorization url", err)
	}
	q := parsed.Query()
	q.Set("response_type", "code")
	q.Set("client_id", f.Config.ClientID)
	q.Set("redirect_uri", f.Config.RedirectURI)
	q.Set("state", state)
	q.Set("code_challenge", Challenge(verifier, ChallengeS256))
	q.Set("code_challenge_method", string(ChallengeS256))
	if len(f.Config.Scopes) > 0 {
		q.Set("scope", strings.Join(f.Config.Scopes, " "))
	}
	for k, v := range extraParams {
		q.Set(k, v)
	}
	parsed.RawQuery = q.Encode()

	return AuthorizationRequest{URL: parsed.String(), State: state}, nil
}

// HandleCallback consumes the state record matching the callback's state
// parameter and exchanges the authorization code for a token.Bundle.
func (f *AuthorizationCodeFlow) HandleCallback(ctx context.Context, state, code string) (token.Bundle, error) {
	if f == nil || f.States == nil {
		return token.Bundle{}, sdkerr.New(sdkerr.KindConfiguration, "authorization code flow requires a state store")
	}
	record, err := f.States.Consume(ctx, state)
	if err != nil {
		return token.Bundle{}, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", record.RedirectURI)
	form.Set("client_id", f.Config.ClientID)
	if f.Config.ClientSecret != "" {
		form.Set("client_secret", f.Config.ClientSecret)
	}
	form.Set("code_verifier", record.PKCEVerifier)

	return exchangeForm(ctx, f.HTTP, f.Config.TokenURL, form)
}

// exchangeForm posts an application/x-www-form-urlencoded body to a token
// endpoint and decodes the resulting token.Bundle, mapping RFC 6749 §5.2
// errors through the shared taxonomy.
func exchangeForm(ctx context.Context, httpClient *transport.Client, tokenURL string, form url.Values) (token.Bundle, error) {
	if httpClient == nil {
		return token.Bundle{}, sdkerr.New(sdkerr.KindConfiguration, "oauth2 flow requires an http client")
	}

	res, err := httpClient.Send(ctx, transport.Request{
		Method:  "POST",
		URL:     tokenURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		var sdkErr *sdkerr.Error
		if sdkerr.As(err, &sdkErr) && sdkErr.Status != 0 {
			return token.Bundle{}, mapTokenError(sdkErr.Status, res.Body)
		}
		return token.Bundle{}, err
	}

	return decodeTokenResponse(res.Body)
}

type tokenResponseBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func decodeTokenResponse(body []byte) (token.Bundle, error) {
	var parsed tokenResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return token.Bundle{}, sdkerr.Wrap(sdkerr.KindSerialization, "decoding token response", err)
	}
	if parsed.AccessToken == "" {
		return token.Bundle{}, sdkerr.New(sdkerr.KindProtocol, "token response missing access_token")
	}

	bundle := token.Bundle{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		TokenType:    parsed.TokenType,
	}
	if parsed.ExpiresIn > 0 {
		bundle.ExpiresAt = time.Now().UTC().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	if parsed.Scope != "" {
		bundle.Scopes = strings.Fields(parsed.Scope)
	}
	return bundle, nil
}
