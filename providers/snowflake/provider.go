// Package snowflake is a thin, resilient client for the Snowflake SQL API
// (statement submission, status polling, cancellation), built on the shared
// transport, resilience, and credential substrate.
package snowflake

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/go-sdkcore/credential"
	"github.com/goliatone/go-sdkcore/resilience"
	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/transport"
)

const defaultUserAgent = "go-sdkcore-snowflake/1"

// Config wires a Client's dependencies. AccountURL is the account's SQL API
// host (e.g. "https://acme-myorg.snowflakecomputing.com").
type Config struct {
	AccountURL   string
	Warehouse    string
	Database     string
	Schema       string
	Role         string
	Credential   credential.Provider
	HTTP         transport.Doer
	Orchestrator *resilience.Orchestrator
	UserAgent    string
}

// Client is a Snowflake SQL API client scoped to one account and session
// context (warehouse/database/schema/role).
type Client struct {
	accountURL   string
	warehouse    string
	database     string
	schema       string
	role         string
	credential   credential.Provider
	transport    *transport.Client
	orchestrator *resilience.Orchestrator
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Credential == nil {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "providers/snowflake: credential provider is required")
	}
	accountURL := strings.TrimRight(strings.TrimSpace(cfg.AccountURL), "/")
	if accountURL == "" {
		return nil, sdkerr.New(sdkerr.KindConfiguration, "providers/snowflake: account URL is required")
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		accountURL:   accountURL,
		warehouse:    cfg.Warehouse,
		database:     cfg.Database,
		schema:       cfg.Schema,
		role:         cfg.Role,
		credential:   cfg.Credential,
		transport:    transport.NewClient(cfg.HTTP, userAgent),
		orchestrator: cfg.Orchestrator,
	}, nil
}

// StatementStatus is the lifecycle state of a submitted SQL statement.
type StatementStatus string

const (
	StatementRunning StatementStatus = "RUNNING"
	StatementSuccess StatementStatus = "SUCCESS"
	StatementFailed  StatementStatus = "FAILED_WITH_ERROR"
	StatementAborted StatementStatus = "ABORTED"
)

// Terminal reports whether this status means polling should stop.
func (s StatementStatus) Terminal() bool {
	return s == StatementSuccess || s == StatementFailed || s == StatementAborted
}

// ResultSetMetaData describes the column shape of a statement's result set.
type ResultSetMetaData struct {
	NumRows int `json:"numRows"`
	RowType []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"rowType"`
}

// StatementResult is the response to submitting or polling a statement.
type StatementResult struct {
	StatementHandle string             `json:"statementHandle"`
	Status          StatementStatus    `json:"-"`
	Message         string             `json:"message"`
	Code            string             `json:"code"`
	ResultSetMeta   ResultSetMetaData  `json:"resultSetMetaData"`
	Data            [][]any            `json:"data"`
}

type statementWire struct {
	StatementHandle string            `json:"statementHandle"`
	Message         string            `json:"message"`
	Code            string            `json:"code"`
	SQLState        string            `json:"sqlState"`
	Statistics      struct {
		ReturnedRows int `json:"returnedRows"`
	} `json:"statementStatisticsPlaceholder"`
	ResultSetMeta ResultSetMetaData `json:"resultSetMetaData"`
	Data          [][]any           `json:"data"`
}

type submitStatementRequest struct {
	Statement  string            `json:"statement"`
	Timeout    int               `json:"timeout,omitempty"`
	Database   string            `json:"database,omitempty"`
	Schema     string            `json:"schema,omitempty"`
	Warehouse  string            `json:"warehouse,omitempty"`
	Role       string            `json:"role,omitempty"`
	Bindings   map[string]any    `json:"bindings,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (transport.Response, error) {
	cred, err := c.credential.Get(ctx)
	if err != nil {
		return transport.Response{}, err
	}

	var encoded []byte
	headers := map[string]string{
		"Authorization": `Bearer ` + cred.Value,
		"Accept":        "application/json",
	}
	if body != nil {
		encoded, err = json.Marshal(body)
		if err != nil {
			return transport.Response{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/snowflake: encode request body", err)
		}
		headers["Content-Type"] = "application/json"
	}

	req := transport.Request{
		Method:  method,
		URL:     c.accountURL + path,
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

// SubmitStatement executes a SQL statement asynchronously, returning a
// statement handle that ExecuteStatement polls via GetStatus.
func (c *Client) SubmitStatement(ctx context.Context, statement string, timeout time.Duration) (StatementResult, error) {
	if strings.TrimSpace(statement) == "" {
		return StatementResult{}, sdkerr.New(sdkerr.KindValidation, "providers/snowflake: statement is required")
	}
	body := submitStatementRequest{
		Statement: statement,
		Database:  c.database,
		Schema:    c.schema,
		Warehouse: c.warehouse,
		Role:      c.role,
	}
	if timeout > 0 {
		body.Timeout = int(timeout.Seconds())
	}
	res, err := c.do(ctx, "POST", "/api/v2/statements", body)
	if err != nil {
		return StatementResult{}, err
	}
	return decodeStatement(res)
}

// GetStatus polls a previously submitted statement handle for its current
// status and (once terminal) its result set.
func (c *Client) GetStatus(ctx context.Context, statementHandle string) (StatementResult, error) {
	if strings.TrimSpace(statementHandle) == "" {
		return StatementResult{}, sdkerr.New(sdkerr.KindValidation, "providers/snowflake: statement handle is required")
	}
	res, err := c.do(ctx, "GET", "/api/v2/statements/"+statementHandle, nil)
	if err != nil {
		return StatementResult{}, err
	}
	return decodeStatement(res)
}

// CancelStatement requests cancellation of a running statement.
func (c *Client) CancelStatement(ctx context.Context, statementHandle string) error {
	if strings.TrimSpace(statementHandle) == "" {
		return sdkerr.New(sdkerr.KindValidation, "providers/snowflake: statement handle is required")
	}
	_, err := c.do(ctx, "POST", "/api/v2/statements/"+statementHandle+"/cancel", nil)
	return err
}

// ExecuteStatement submits a statement and polls it until it reaches a
// terminal status or ctx is cancelled.
func (c *Client) ExecuteStatement(ctx context.Context, statement string, pollInterval time.Duration) (StatementResult, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	result, err := c.SubmitStatement(ctx, statement, 0)
	if err != nil {
		return StatementResult{}, err
	}
	for !result.Status.Terminal() {
		select {
		case <-ctx.Done():
			return StatementResult{}, sdkerr.Wrap(sdkerr.KindCancelled, "providers/snowflake: statement execution cancelled", ctx.Err())
		case <-time.After(pollInterval):
		}
		result, err = c.GetStatus(ctx, result.StatementHandle)
		if err != nil {
			return StatementResult{}, err
		}
	}
	if result.Status != StatementSuccess {
		return result, sdkerr.New(sdkerr.KindServer, "providers/snowflake: statement did not complete successfully").
			WithMetadata(map[string]any{"status": string(result.Status), "message": result.Message, "code": result.Code})
	}
	return result, nil
}

func decodeStatement(res transport.Response) (StatementResult, error) {
	var wire statementWire
	if err := json.Unmarshal(res.Body, &wire); err != nil {
		return StatementResult{}, sdkerr.Wrap(sdkerr.KindSerialization, "providers/snowflake: decode statement response", err)
	}
	status := StatementRunning
	switch res.StatusCode {
	case 200:
		status = StatementSuccess
	case 202:
		status = StatementRunning
	}
	if wire.Code != "" && wire.Code != "090001" {
		status = StatementFailed
	}
	return StatementResult{
		StatementHandle: wire.StatementHandle,
		Status:          status,
		Message:         wire.Message,
		Code:            wire.Code,
		ResultSetMeta:   wire.ResultSetMeta,
		Data:            wire.Data,
	}, nil
}
