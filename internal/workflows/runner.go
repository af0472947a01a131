package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/shaiso/Tripleo/internal/domain"
	"github.com/shaiso/Tripleo/internal/engine"
	"github.com/shaiso/Tripleo/internal/messaging"
	"github.com/shaiso/Tripleo/internal/telemetry"
)

// Default configuration values.
const (
	defaultTimeout        = time.Hour
	defaultStateRetryBase = 500 * time.Millisecond
	stateQueryAttempts    = 3
)

// Сообщения при истечении таймаута ожидания, по состоянию execution.
const (
	timeoutRunning = "The WebSocket timed out before the Workflow completed."
	timeoutSuccess = "The Workflow finished successfully but no messages were received before the WebSocket timed out."
	timeoutErrored = "The Workflow errored and no messages were received."
	timeoutUnknown = "Unknown Execution state."
)

// Runner выполняет workflows по общему протоколу:
//
//  1. Генерирует queue_name и подписывается на очередь сообщений
//  2. Запускает workflow с queue_name во входе
//  3. Читает сообщения execution, пока статус RUNNING
//  4. Возвращает финальный payload
//
// Подписка открывается до запуска workflow, иначе ранние сообщения
// могут быть потеряны.
type Runner struct {
	engine     engine.Engine
	subscriber messaging.Subscriber
	objects    ObjectStore

	orchestration Orchestration

	metrics *telemetry.Metrics
	logger  *slog.Logger
	out     io.Writer

	timeout        time.Duration
	stateRetryBase time.Duration
}

// Config — конфигурация Runner.
type Config struct {
	// Engine — клиент движка workflows.
	Engine engine.Engine

	// Subscriber — транспорт сообщений (AMQP или websocket).
	Subscriber messaging.Subscriber

	// ObjectStore — хранилище файлов планов (нужно только для создания плана из шаблонов).
	ObjectStore ObjectStore

	// Orchestration — клиент оркестрации для ожидания стека после deploy_plan
	// (nil — не ждать).
	Orchestration Orchestration

	// Metrics — счётчики выполнений (nil — без метрик).
	Metrics *telemetry.Metrics

	// Out — куда печатать сообщения workflows (default: stderr).
	Out io.Writer

	// Timeout — максимальное ожидание одного сообщения (default: 1h).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Runner.
func New(cfg Config) *Runner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		engine:         cfg.Engine,
		subscriber:     cfg.Subscriber,
		objects:        cfg.ObjectStore,
		orchestration:  cfg.Orchestration,
		metrics:        cfg.Metrics,
		logger:         logger,
		out:            out,
		timeout:        timeout,
		stateRetryBase: defaultStateRetryBase,
	}
}

// NewQueueName генерирует имя очереди для одного вызова workflow.
func NewQueueName() string {
	return uuid.New().String()
}

// Result — итог выполнения workflow.
type Result struct {
	// Workflow — имя workflow.
	Workflow string

	// Execution — execution, созданный движком.
	Execution *domain.Execution

	// Payload — финальное сообщение (статус не RUNNING).
	Payload domain.Payload
}

// Succeeded возвращает true, если финальный статус SUCCESS.
func (r *Result) Succeeded() bool {
	return r.Payload.Status() == domain.PayloadStatusSuccess
}

// Fail строит WorkflowError с sentinel err и текстом для пользователя.
func (r *Result) Fail(err error, message string) *WorkflowError {
	return &WorkflowError{
		Workflow:    r.Workflow,
		ExecutionID: r.Execution.ID,
		Status:      string(r.Payload.Status()),
		Message:     message,
		Err:         err,
	}
}

// Start запускает workflow.
func (r *Runner) Start(ctx context.Context, workflow string, input map[string]any) (*domain.Execution, error) {
	execution, err := r.engine.StartExecution(ctx, workflow, input)
	if err != nil {
		return nil, err
	}

	telemetry.WithExecutionID(telemetry.WithWorkflow(r.logger, workflow), execution.ID).
		Debug("workflow started", "state", execution.State)

	return execution, nil
}

// Wait читает сообщения execution до финального статуса.
//
// Сообщения других executions (не совпадают ни execution.id,
// ни root_execution_id) пропускаются. onPayload вызывается
// для каждого сообщения execution, включая финальное.
func (r *Runner) Wait(ctx context.Context, sub messaging.Subscription, execution *domain.Execution, onPayload func(domain.Payload)) (domain.Payload, error) {
	logger := telemetry.WithExecutionID(r.logger, execution.ID)

	for {
		payload, err := sub.Receive(ctx, r.timeout)
		if lostMessages(err) {
			logger.Debug("no more workflow messages, checking execution state", "reason", err)
			return nil, r.timeoutError(ctx, execution)
		}
		if err != nil {
			return nil, fmt.Errorf("receive workflow messages: %w", err)
		}

		if !payload.BelongsTo(execution.ID) {
			logger.Debug("skipping message of another execution",
				"message_execution_id", payload.ExecutionID(),
				"root_execution_id", payload.RootExecutionID(),
			)
			continue
		}

		logger.Debug("workflow message received", "status", payload.Status())

		if onPayload != nil {
			onPayload(payload)
		}

		if payload.Status().IsTerminal() {
			return payload, nil
		}
	}
}

// lostMessages — сообщений больше не будет: таймаут, подписка закрыта
// или соединение с транспортом потеряно.
func lostMessages(err error) bool {
	return errors.Is(err, messaging.ErrTimeout) ||
		errors.Is(err, messaging.ErrClosed) ||
		errors.Is(err, messaging.ErrConnectionLost)
}

// timeoutError проверяет состояние execution и объясняет таймаут.
func (r *Runner) timeoutError(ctx context.Context, execution *domain.Execution) error {
	var current *domain.Execution

	backoff := retry.WithMaxRetries(stateQueryAttempts-1, retry.NewExponential(r.stateRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		e, err := r.engine.GetExecution(ctx, execution.ID)
		if errors.Is(err, engine.ErrUnavailable) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		current = e
		return nil
	})
	if err != nil {
		return &WorkflowError{
			Workflow:    execution.WorkflowName,
			ExecutionID: execution.ID,
			Message:     fmt.Sprintf("%s (execution state unavailable: %v)", timeoutUnknown, err),
			Err:         ErrWebSocketTimeout,
		}
	}

	var message string
	switch current.State {
	case domain.ExecutionStateRunning:
		message = timeoutRunning
	case domain.ExecutionStateSuccess:
		message = timeoutSuccess
	case domain.ExecutionStateError:
		message = timeoutErrored
	default:
		message = timeoutUnknown
	}

	return &WorkflowError{
		Workflow:    execution.WorkflowName,
		ExecutionID: execution.ID,
		Status:      string(current.State),
		Message:     message,
		Err:         ErrWebSocketTimeout,
	}
}

// Execute выполняет workflow и печатает сообщения о ходе выполнения.
//
// Если input не содержит queue_name, он генерируется.
// input вызывающего не изменяется.
func (r *Runner) Execute(ctx context.Context, workflow string, input map[string]any) (*Result, error) {
	return r.execute(ctx, workflow, input, nil)
}

func (r *Runner) execute(ctx context.Context, workflow string, input map[string]any, onStart func(*domain.Execution)) (*Result, error) {
	in := maps.Clone(input)
	if in == nil {
		in = make(map[string]any)
	}

	queueName, _ := in["queue_name"].(string)
	if queueName == "" {
		queueName = NewQueueName()
		in["queue_name"] = queueName
	}

	started := time.Now()
	logger := telemetry.WithQueueName(telemetry.WithWorkflow(r.logger, workflow), queueName)

	sub, err := r.subscriber.Subscribe(ctx, queueName)
	if err != nil {
		return nil, fmt.Errorf("subscribe to queue %s: %w", queueName, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			logger.Debug("close subscription", "error", err)
		}
	}()
	logger.Debug("subscribed")

	execution, err := r.Start(ctx, workflow, in)
	if err != nil {
		r.metrics.ObserveExecution(workflow, "NOT_STARTED", time.Since(started))
		return nil, err
	}
	if execution.WorkflowName == "" {
		execution.WorkflowName = workflow
	}

	if onStart != nil {
		onStart(execution)
	}

	payload, err := r.Wait(ctx, sub, execution, func(p domain.Payload) {
		r.metrics.ObserveMessage(workflow)
		if p.HasMessage() {
			r.println(p.Message())
		}
	})
	if err != nil {
		r.metrics.ObserveExecution(workflow, "TIMEOUT", time.Since(started))
		return nil, err
	}

	r.metrics.ObserveExecution(workflow, string(payload.Status()), time.Since(started))

	return &Result{
		Workflow:  workflow,
		Execution: execution,
		Payload:   payload,
	}, nil
}

// CallAction выполняет action синхронно с сохранением результата.
func (r *Runner) CallAction(ctx context.Context, action string, input map[string]any) (*domain.ActionResult, error) {
	result, err := r.engine.RunAction(ctx, action, input, true)
	if err != nil {
		return result, err
	}

	r.logger.Debug("action completed", "action", action, "action_execution_id", result.ID)
	return result, nil
}

func (r *Runner) println(a ...any) {
	fmt.Fprintln(r.out, a...)
}
