package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/shaiso/Tripleo/internal/domain"
)

// Engine — операции движка workflows, которые использует CLI.
type Engine interface {
	// StartExecution запускает workflow и возвращает созданный execution.
	StartExecution(ctx context.Context, workflow string, input map[string]any) (*domain.Execution, error)

	// GetExecution возвращает текущее состояние execution.
	GetExecution(ctx context.Context, id string) (*domain.Execution, error)

	// RunAction выполняет action. sync=true — дождаться результата.
	RunAction(ctx context.Context, action string, input map[string]any, sync bool) (*domain.ActionResult, error)
}

// --- Wire types (input/output передаются движком как JSON-строки) ---

type executionRequest struct {
	WorkflowName string `json:"workflow_name"`
	Input        string `json:"input"`
}

type executionResponse struct {
	ID           string `json:"id"`
	WorkflowName string `json:"workflow_name"`
	State        string `json:"state"`
	StateInfo    string `json:"state_info"`
	Input        string `json:"input"`
	Output       string `json:"output"`
	CreatedAt    string `json:"created_at"`
}

type actionRequest struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Params string `json:"params"`
}

type actionParams struct {
	SaveResult bool `json:"save_result"`
	RunSync    bool `json:"run_sync"`
}

type actionResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Output string `json:"output"`
}

// createdAtLayout — формат времени в ответах движка.
const createdAtLayout = "2006-01-02 15:04:05"

// Client — HTTP-клиент движка workflows.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// URL — базовый URL API (включая /v2).
	URL string

	// Token — токен аутентификации (X-Auth-Token). Пустой — без аутентификации.
	Token string

	// Timeout — таймаут одного HTTP-запроса (default: 30s).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// NewClient создаёт клиент движка.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rc := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		rc.SetHeader("X-Auth-Token", cfg.Token)
	}

	return &Client{http: rc, logger: logger}
}

// StartExecution запускает workflow.
func (c *Client) StartExecution(ctx context.Context, workflow string, input map[string]any) (*domain.Execution, error) {
	inputJSON, err := encodeJSON(input)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow input: %w", err)
	}

	var resp executionResponse
	if err := c.do(ctx, resty.MethodPost, "/executions", executionRequest{
		WorkflowName: workflow,
		Input:        inputJSON,
	}, &resp); err != nil {
		return nil, fmt.Errorf("start workflow %s: %w", workflow, err)
	}

	return resp.toDomain()
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	var resp executionResponse
	if err := c.do(ctx, resty.MethodGet, "/executions/"+id, nil, &resp); err != nil {
		return nil, fmt.Errorf("get execution %s: %w", id, err)
	}
	return resp.toDomain()
}

// RunAction выполняет action (save_result всегда включён).
func (c *Client) RunAction(ctx context.Context, action string, input map[string]any, sync bool) (*domain.ActionResult, error) {
	inputJSON, err := encodeJSON(input)
	if err != nil {
		return nil, fmt.Errorf("marshal action input: %w", err)
	}
	paramsJSON, err := encodeJSON(actionParams{SaveResult: true, RunSync: sync})
	if err != nil {
		return nil, fmt.Errorf("marshal action params: %w", err)
	}

	var resp actionResponse
	if err := c.do(ctx, resty.MethodPost, "/action_executions", actionRequest{
		Name:   action,
		Input:  inputJSON,
		Params: paramsJSON,
	}, &resp); err != nil {
		return nil, fmt.Errorf("run action %s: %w", action, err)
	}

	result := &domain.ActionResult{
		ID:     resp.ID,
		Name:   resp.Name,
		State:  domain.ExecutionState(resp.State),
		Output: resp.Output,
	}

	if result.State == domain.ExecutionStateError {
		return result, fmt.Errorf("%w: %s: %s", ErrActionFailed, action, result.ErrorText())
	}
	return result, nil
}

// --- HTTP helpers ---

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(result).
		SetError(&errorResponse{})

	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("engine request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
	)

	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if er, ok := resp.Error().(*errorResponse); ok && er != nil {
		apiErr.Message = er.message()
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.String()
	}
	return apiErr
}

func (r *executionResponse) toDomain() (*domain.Execution, error) {
	execution := &domain.Execution{
		ID:           r.ID,
		WorkflowName: r.WorkflowName,
		State:        domain.ExecutionState(r.State),
		StateInfo:    r.StateInfo,
	}

	var err error
	if execution.Input, err = decodeJSONObject(r.Input); err != nil {
		return nil, fmt.Errorf("decode execution input: %w", err)
	}
	if execution.Output, err = decodeJSONObject(r.Output); err != nil {
		return nil, fmt.Errorf("decode execution output: %w", err)
	}

	if r.CreatedAt != "" {
		if ts, err := time.Parse(createdAtLayout, r.CreatedAt); err == nil {
			execution.CreatedAt = ts
		}
	}

	return execution, nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	// nil map кодируется как null, движок ожидает объект
	if string(data) == "null" {
		return "{}", nil
	}
	return string(data), nil
}

func decodeJSONObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
