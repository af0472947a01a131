package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shaiso/Tripleo/internal/config"
	"github.com/shaiso/Tripleo/internal/domain"
	"github.com/shaiso/Tripleo/internal/engine"
	"github.com/shaiso/Tripleo/internal/messaging"
	"github.com/shaiso/Tripleo/internal/mq"
	"github.com/shaiso/Tripleo/internal/objectstore"
	"github.com/shaiso/Tripleo/internal/orchestration"
	"github.com/shaiso/Tripleo/internal/telemetry"
	"github.com/shaiso/Tripleo/internal/workflows"
)

// Workflows — операции, которые вызывают команды (реализует *workflows.Runner).
type Workflows interface {
	RegisterOrUpdate(ctx context.Context, in workflows.RegisterInput) ([]domain.Node, error)
	DiscoverAndEnroll(ctx context.Context, in workflows.DiscoverInput) ([]domain.Node, error)
	Provide(ctx context.Context, nodeUUIDs []string) error
	ProvideManageableNodes(ctx context.Context) error
	Introspect(ctx context.Context, nodeUUIDs []string, runValidations bool) error
	IntrospectManageableNodes(ctx context.Context, runValidations bool) error
	Configure(ctx context.Context, in workflows.ConfigureInput) error
	ConfigureManageableNodes(ctx context.Context, in workflows.ConfigureInput) error
	CreateRaidConfiguration(ctx context.Context, in workflows.RaidInput) error

	ListPlans(ctx context.Context) ([]string, error)
	CreatePlan(ctx context.Context, in workflows.PlanInput) error
	DeletePlan(ctx context.Context, container string) error
	DeployPlan(ctx context.Context, container string, runValidations, skipDeployIdentifier bool) error
	ExportPlan(ctx context.Context, plan string) (string, error)
}

// Downloader скачивает файл по URL (реализует *objectstore.Client).
type Downloader interface {
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// Clients — зависимости команд.
type Clients struct {
	Workflows  Workflows
	Downloader Downloader

	closers []func() error
}

// Close освобождает ресурсы (соединение с брокером, метрики).
func (c *Clients) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewClients собирает клиентов по конфигурации.
//
// Для драйвера amqp соединение с брокером устанавливается сразу,
// websocket подключается при первой подписке.
func NewClients(ctx context.Context, cfg *config.Config, logger *slog.Logger, messages io.Writer) (*Clients, error) {
	clients := &Clients{}

	subscriber, err := newSubscriber(ctx, cfg, logger, clients)
	if err != nil {
		return nil, err
	}

	store := objectstore.NewClient(objectstore.Config{
		URL:    cfg.ObjectStore.URL,
		Token:  cfg.ObjectStore.Token,
		Logger: logger,
	})

	var orch workflows.Orchestration
	if cfg.Orchestration.URL != "" {
		orch = orchestration.NewClient(orchestration.Config{
			URL:          cfg.Orchestration.URL,
			Token:        cfg.Orchestration.Token,
			StackTimeout: cfg.Orchestration.StackTimeout,
			Logger:       logger,
		})
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.PushgatewayURL != "" {
		metrics = telemetry.NewMetrics()
		clients.closers = append(clients.closers, func() error {
			return metrics.Push(context.Background(), cfg.Metrics.PushgatewayURL)
		})
	}

	clients.Workflows = workflows.New(workflows.Config{
		Engine: engine.NewClient(engine.Config{
			URL:     cfg.Workflow.URL,
			Token:   cfg.Workflow.Token,
			Timeout: cfg.Workflow.Timeout,
			Logger:  logger,
		}),
		Subscriber:    subscriber,
		ObjectStore:   store,
		Orchestration: orch,
		Metrics:       metrics,
		Out:           messages,
		Timeout:       cfg.Messaging.Timeout,
		Logger:        logger,
	})
	clients.Downloader = store

	return clients, nil
}

func newSubscriber(ctx context.Context, cfg *config.Config, logger *slog.Logger, clients *Clients) (messaging.Subscriber, error) {
	switch cfg.Messaging.Driver {
	case config.DriverWebSocket:
		return messaging.NewWebSocketSubscriber(messaging.WebSocketConfig{
			URL:       cfg.Messaging.WebSocketURL,
			Token:     cfg.Workflow.Token,
			ProjectID: cfg.Messaging.ProjectID,
			Logger:    logger,
		}), nil

	case config.DriverAMQP:
		conn, err := mq.NewConnection(ctx, mq.ConnectionConfig{
			URL:    cfg.Messaging.AMQPURL,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to message broker: %w", err)
		}
		clients.closers = append(clients.closers, conn.Close)
		return mq.NewSubscriber(conn, cfg.Messaging.Exchange, logger), nil

	default:
		return nil, fmt.Errorf("unknown messaging driver %q", cfg.Messaging.Driver)
	}
}
