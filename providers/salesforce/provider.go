// Package salesforce is a thin, resilient client for the Salesforce REST
// API (SOQL queries, sObject CRUD), built on the shared transport,
// resilience, and credential substrate.
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-sdkcore/credential"
	"github.com/goliatone/go-sdkcore/resilience"
	"github.com/goliatone/go-sdkcore/sdkconfig"
	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/transport"
)

const (
	defaultAPIVersion = "v60.0"
	defaultUserAgent  = "go-sdkcore-salesforce/1"
)

// Config wires a Client's dependencies. InstanceURL is the org's My Domain
// URL (e.g. "https://acme.my.salesforce.com"), returned by the OAuth2 token
// response and supplied by the caller once known.
type Config struct {
	InstanceURL string
	APIVersion  string
	Credential  credential.Provider
	HTTP        transport.Doer
	Orchestrator *resilience.Orchestrator
	UserAgent   string
}

// Client is a Salesforce REST API client scoped to one org instance.
type Client struct {
	instanceURL  string
	apiVersion   string
	credential   credential.Provider
	transport    *transport.Client
	orchestrator *resilience.Orchestrator
}

// configValues is the decodable subset of Config: the fields that can come
// from env/file/runtime layers, as opposed to Credential/HTTP/Orchestrator
// which are always supplied literally by the caller.
type configValues struct {
	InstanceURL string `koanf:"instance_url" mapstructure:"instance_url"`
	APIVersion  string `koanf:"api_version" mapstructure:"api_version"`
}

func defaultConfigValues() configValues {
	return configValues{APIVersion: defaultAPIVersion}
}

// Validate fails fast when a required field never arrived from any layer,
// the same job the teacher's own Config.Validate does for GoOptionsResolver.
func (c *configValues) Validate() error {
	if strings.TrimSpace(c.InstanceURL) == "" {
		return sdkerr.New(sdkerr.KindConfiguration, "providers/salesforce: instance_url is required")
	}
	return nil
}

// ResolveConfig layers env-sourced values over compiled-in defaults and
// runtime overrides over both, the same defaults/env/runtime precedence the
// teacher resolves its own service Config through, then decodes and
// fail-fast validates the merged result via sdkconfig.ResolveInto before New
// ever sees it. Any layer may be nil.
func ResolveConfig(env, runtime map[string]any) (Config, error) {
	values, err := sdkconfig.ResolveInto(
		defaultConfigValues(),
		(*configValues).Validate,
		sdkconfig.Layer{Name: "defaults", Priority: 0, Values: map[string]any{
			"instance_url": "",
			"api_version":  defaultAPIVersion,
		}},
		sdkconfig.Layer{Name: "env", Priority: 10, Values: env},
		sdkconfig.Layer{Name: "runtime", Priority: 20, Values: runtime},
	)
	if err != nil {
		return Config{}, sdkerr.Wrap(sdkerr.KindConfiguration, "providers/salesforce: resolve config layers", err)
	}
	return Config{
		InstanceURL: values.InstanceURL,
		APIVersion:  values.APIVersion,
	}, nil
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Credential == nil {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "providers/salesforce: credential provider is required")
	}
	instanceURL := strings.TrimRight(strings.TrimSpace(cfg.InstanceURL), "/")
	if instanceURL == "" {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "providers/salesforce: instance URL is required")
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		instanceURL:  instanceURL,
		apiVersion:   apiVersion,
		credential:   cfg.Credential,
		transport:    transport.NewClient(cfg.HTTP, userAgent),
		orchestrator: cfg.Orchestrator,
	}, nil
}

// QueryResult is a SOQL query response page.
type QueryResult struct {
	TotalSize int              `json:"totalSize"`
	Done      bool             `json:"done"`
	NextURL   string           `json:"nextRecordsUrl"`
	Records   []map[string]any `json:"records"`
}

// UpsertResult is the response to an sObject create/update call.
type UpsertResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// LimitInfo carries the org's per-24h API call budget, scraped from
// Salesforce's Sforce-Limit-Info response header on every call.
type LimitInfo struct {
	Used      int
	Remaining int
}

func (c *Client) sobjectsPath(object string) string {
	return fmt.Sprintf("/services/data/%s/sobjects/%s", c.apiVersion, object)
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any) (transport.Response, LimitInfo, error) {
	cred, err := c.credential.Get(ctx)
	if err != nil {
		return transport.Response{}, LimitInfo{}, err
	}

	var encoded []byte
	headers := map[string]string{"Authorization": "Bearer " + cred.Value}
	if body != nil {
		encoded, err = json.Marshal(body)
		if err != nil {
			return transport.Response{}, LimitInfo{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/salesforce: encode request body", err)
		}
		headers["Content-Type"] = "application/json"
	}

	req := transport.Request{
		Method:  method,
		URL:     c.instanceURL + path,
		Query:   query,
		Headers: headers,
		Body:    encoded,
	}

	res, err := resilience.Do(ctx, c.orchestrator, func(ctx context.Context) (transport.Response, error) {
		return c.transport.Send(ctx, req)
	})
	if err != nil {
		return transport.Response{}, LimitInfo{}, err
	}
	c.orchestrator.ReconcileHeaders(res.Headers)
	return res, parseLimitInfo(res.Headers.Get("Sforce-Limit-Info")), nil
}

// Query runs a SOQL query and returns its first page of results.
func (c *Client) Query(ctx context.Context, soql string) (QueryResult, LimitInfo, error) {
	if strings.TrimSpace(soql) == "" {
		return QueryResult{}, LimitInfo{}, sdkerr.New(sdkerr.KindValidation, "providers/salesforce: query is required")
	}
	path := fmt.Sprintf("/services/data/%s/query", c.apiVersion)
	res, limits, err := c.do(ctx, "GET", path, map[string]string{"q": soql}, nil)
	if err != nil {
		return QueryResult{}, LimitInfo{}, err
	}
	var result QueryResult
	if err := json.Unmarshal(res.Body, &result); err != nil {
		return QueryResult{}, LimitInfo{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/salesforce: decode query result", err)
	}
	return result, limits, nil
}

// CreateSObject inserts a new record of the given sObject type.
func (c *Client) CreateSObject(ctx context.Context, object string, fields map[string]any) (UpsertResult, error) {
	if strings.TrimSpace(object) == "" {
		return UpsertResult{}, sdkerr.New(sdkerr.KindValidation, "providers/salesforce: sobject type is required")
	}
	res, _, err := c.do(ctx, "POST", c.sobjectsPath(object), nil, fields)
	if err != nil {
		return UpsertResult{}, err
	}
	var result UpsertResult
	if err := json.Unmarshal(res.Body, &result); err != nil {
		return UpsertResult{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/salesforce: decode create result", err)
	}
	return result, nil
}

// UpdateSObject patches an existing record's fields.
func (c *Client) UpdateSObject(ctx context.Context, object, id string, fields map[string]any) error {
	if strings.TrimSpace(object) == "" || strings.TrimSpace(id) == "" {
		return sdkerr.New(sdkerr.KindValidation, "providers/salesforce: sobject type and id are required")
	}
	_, _, err := c.do(ctx, "PATCH", c.sobjectsPath(object)+"/"+id, nil, fields)
	return err
}

func parseLimitInfo(header string) LimitInfo {
	// Format: "api-usage=12345/50000"
	header = strings.TrimSpace(header)
	const prefix = "api-usage="
	if !strings.HasPrefix(header, prefix) {
		return LimitInfo{}
	}
	parts := strings.SplitN(strings.TrimPrefix(header, prefix), "/", 2)
	if len(parts) != 2 {
		return LimitInfo{}
	}
	used, errUsed := strconv.Atoi(parts[0])
	total, errTotal := strconv.Atoi(parts[1])
	if errUsed != nil || errTotal != nil {
		return LimitInfo{}
	}
	return LimitInfo{Used: used, Remaining: total - used}
}
