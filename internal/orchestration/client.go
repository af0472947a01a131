package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/shaiso/Tripleo/internal/domain"
)

// Значения по умолчанию для ожидания стека.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultStackTimeout = 4 * time.Hour
)

// Client — HTTP-клиент сервиса оркестрации.
type Client struct {
	http         *resty.Client
	logger       *slog.Logger
	pollInterval time.Duration
	stackTimeout time.Duration
}

// Config — конфигурация Client.
type Config struct {
	// URL — базовый URL API, включая /v1/{tenant}.
	URL string

	// Token — токен аутентификации (X-Auth-Token).
	Token string

	// Timeout — таймаут одного HTTP-запроса (default: 30s).
	Timeout time.Duration

	// PollInterval — интервал опроса стека (default: 5s).
	PollInterval time.Duration

	// StackTimeout — сколько ждать финального состояния стека (default: 4h).
	StackTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

type stackResponse struct {
	Stack domain.Stack `json:"stack"`
}

// NewClient создаёт клиент оркестрации.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	stackTimeout := cfg.StackTimeout
	if stackTimeout <= 0 {
		stackTimeout = DefaultStackTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// GET /stacks/{name} отвечает 302 на /stacks/{name}/{id}, resty идёт по редиректу.
	rc := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		rc.SetHeader("X-Auth-Token", cfg.Token)
	}

	return &Client{
		http:         rc,
		logger:       logger,
		pollInterval: poll,
		stackTimeout: stackTimeout,
	}
}

// GetStack возвращает стек по имени. Несуществующий стек — (nil, nil).
func (c *Client) GetStack(ctx context.Context, name string) (*domain.Stack, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&stackResponse{}).
		SetError(&errorResponse{}).
		Get("/stacks/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("get stack %s: %w: %v", name, ErrUnavailable, err)
	}

	c.logger.Debug("orchestration request completed",
		"stack", name,
		"status", resp.StatusCode(),
	)

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if er, ok := resp.Error().(*errorResponse); ok && er != nil {
			apiErr.Message = er.message()
		}
		if apiErr.Message == "" {
			apiErr.Message = resp.String()
		}
		return nil, fmt.Errorf("get stack %s: %w", name, apiErr)
	}

	stack := resp.Result().(*stackResponse).Stack
	return &stack, nil
}

// WaitForStack опрашивает стек, пока действие action не завершится
// (успешно или с ошибкой). Возвращает последнее состояние стека;
// успех проверяет вызывающий через Stack.Completed(action).
//
// Отсутствующий стек и IN_PROGRESS считаются промежуточными состояниями.
// Недоступность сервиса тоже повторяется, ответ API с ошибкой — нет.
func (c *Client) WaitForStack(ctx context.Context, name, action string) (*domain.Stack, error) {
	var last *domain.Stack

	backoff := retry.WithMaxDuration(c.stackTimeout, retry.NewConstant(c.pollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		stack, err := c.GetStack(ctx, name)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}

		if stack == nil {
			return retry.RetryableError(fmt.Errorf("%w: stack %s does not exist yet", ErrStackNotReady, name))
		}
		last = stack

		if !stack.Settled(action) {
			c.logger.Debug("waiting for stack", "stack", name, "stack_status", stack.Status)
			return retry.RetryableError(fmt.Errorf("%w: %s", ErrStackNotReady, stack.Status))
		}
		return nil
	})
	if err != nil {
		return last, fmt.Errorf("wait for stack %s: %w", name, err)
	}

	c.logger.Info("stack settled", "stack", name, "stack_status", last.Status)
	return last, nil
}
