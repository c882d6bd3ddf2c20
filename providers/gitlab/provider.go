// Package gitlab is a thin, resilient client for the GitLab REST v4 API
// (projects and issues), built on the shared transport,
// resilience, and credential substrate rather than hand-rolled retry/auth
// logic per endpoint.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-sdkcore/credential"
	"github.com/goliatone/go-sdkcore/resilience"
	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/transport"
)

const (
	// DefaultBaseURL is GitLab.com's API root. Self-managed instances pass
	// their own BaseURL in Config.
	DefaultBaseURL = "https://gitlab.com/api/v4"
	defaultUserAgent = "go-sdkcore-gitlab/1"
)

// Config wires a Client's dependencies. Only Credential is required: a nil
// HTTP uses the transport's default client, a nil Orchestrator sends without
// resilience, and BaseURL and UserAgent fall back to sane defaults.
type Config struct {
	BaseURL      string
	Credential   credential.Provider
	HTTP         transport.Doer
	Orchestrator *resilience.Orchestrator
	UserAgent    string
}

// Client is a GitLab API client scoped to one instance and credential.
type Client struct {
	baseURL      string
	credential   credential.Provider
	transport    *transport.Client
	orchestrator *resilience.Orchestrator
}

// New builds a Client. A nil Orchestrator falls back to transport.Client.Send
// with no rate limiting, breaker, or retry.
func New(cfg Config) (*Client, error) {
	if cfg.Credential == nil {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "providers/gitlab: credential provider is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:      baseURL,
		credential:   cfg.Credential,
		transport:    transport.NewClient(cfg.HTTP, userAgent),
		orchestrator: cfg.Orchestrator,
	}, nil
}

// Project is a subset of GitLab's project resource.
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
	Visibility        string `json:"visibility"`
	WebURL            string `json:"web_url"`
}

// Issue is a subset of GitLab's issue resource.
type Issue struct {
	IID         int      `json:"iid"`
	ProjectID   int      `json:"project_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	Labels      []string `json:"labels"`
	WebURL      string   `json:"web_url"`
}

// CreateIssueRequest is the body accepted by CreateIssue.
type CreateIssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	AssigneeIDs []int    `json:"assignee_ids,omitempty"`
}

// ListOptions paginates GitLab's list endpoints.
type ListOptions struct {
	Page    int
	PerPage int
}

// Page wraps a list response with the pagination GitLab reports via headers.
type Page[T any] struct {
	Items      []T
	TotalItems int
	NextPage   int
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any) (transport.Response, error) {
	cred, err := c.credential.Get(ctx)
	if err != nil {
		return transport.Response{}, err
	}

	var encoded []byte
	headers := map[string]string{
		"Authorization": "Bearer " + cred.Value,
	}
	if body != nil {
		encoded, err = json.Marshal(body)
		if err != nil {
			return transport.Response{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/gitlab: encode request body", err)
		}
		headers["Content-Type"] = "application/json"
	}

	req := transport.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Query:   query,
		Headers: headers,
		Body:    encoded,
	}

	res, err := resilience.Do(ctx, c.orchestrator, func(ctx context.Context) (transport.Response, error) {
		return c.transport.Send(ctx, req)
	})
	if err == nil {
		c.orchestrator.ReconcileHeaders(res.Headers)
	}
	return res, err
}

// GetProject fetches a single project by numeric ID or URL-encoded
// "namespace/path".
func (c *Client) GetProject(ctx context.Context, idOrPath string) (Project, error) {
	res, err := c.do(ctx, "GET", "/projects/"+url.PathEscape(idOrPath), nil, nil)
	if err != nil {
		return Project{}, err
	}
	var project Project
	if err := json.Unmarshal(res.Body, &project); err != nil {
		return Project{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/gitlab: decode project", err)
	}
	return project, nil
}

// ListProjects returns the caller's visible projects, one page at a time.
func (c *Client) ListProjects(ctx context.Context, opts ListOptions) (Page[Project], error) {
	res, err := c.do(ctx, "GET", "/projects", paginationQuery(opts), nil)
	if err != nil {
		return Page[Project]{}, err
	}
	var projects []Project
	if err := json.Unmarshal(res.Body, &projects); err != nil {
		return Page[Project]{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/gitlab: decode projects", err)
	}
	return newPage(projects, res), nil
}

// ListIssues returns a project's issues, one page at a time.
func (c *Client) ListIssues(ctx context.Context, projectID int, opts ListOptions) (Page[Issue], error) {
	path := fmt.Sprintf("/projects/%d/issues", projectID)
	res, err := c.do(ctx, "GET", path, paginationQuery(opts), nil)
	if err != nil {
		return Page[Issue]{}, err
	}
	var issues []Issue
	if err := json.Unmarshal(res.Body, &issues); err != nil {
		return Page[Issue]{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/gitlab: decode issues", err)
	}
	return newPage(issues, res), nil
}

// CreateIssue opens a new issue in the given project.
func (c *Client) CreateIssue(ctx context.Context, projectID int, req CreateIssueRequest) (Issue, error) {
	if strings.TrimSpace(req.Title) == "" {
		return Issue{}, sdkerr.New(sdkerr.KindValidation, "providers/gitlab: issue title is required")
	}
	path := fmt.Sprintf("/projects/%d/issues", projectID)
	res, err := c.do(ctx, "POST", path, nil, req)
	if err != nil {
		return Issue{}, err
	}
	var issue Issue
	if err := json.Unmarshal(res.Body, &issue); err != nil {
		return Issue{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/gitlab: decode created issue", err)
	}
	return issue, nil
}

func paginationQuery(opts ListOptions) map[string]string {
	query := map[string]string{}
	if opts.Page > 0 {
		query["page"] = strconv.Itoa(opts.Page)
	}
	if opts.PerPage > 0 {
		query["per_page"] = strconv.Itoa(opts.PerPage)
	}
	return query
}

func newPage[T any](items []T, res transport.Response) Page[T] {
	page := Page[T]{Items: items}
	if raw := res.Headers.Get("X-Total"); raw != "" {
		if total, err := strconv.Atoi(raw); err == nil {
			page.TotalItems = total
		}
	}
	if raw := res.Headers.Get("X-Next-Page"); raw != "" {
		if next, err := strconv.Atoi(raw); err == nil {
			page.NextPage = next
		}
	}
	return page
}
