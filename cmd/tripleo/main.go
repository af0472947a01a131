// TripleO CLI — клиент workflows развёртывания overcloud.
//
// Запускает workflows на движке, получает сообщения о ходе
// выполнения через брокер (amqp) или websocket и печатает результат.
//
// Использование:
//
//	tripleo [--workflow-url URL] [--messaging-driver amqp|websocket] [--json] overcloud <command> <subcommand> [flags]
//
// Команды:
//
//	overcloud node  import, introspect, provide, configure, discover
//	overcloud raid  create
//	overcloud plan  list, create, delete, deploy, export
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tripleo/internal/cli"
	"github.com/shaiso/Tripleo/internal/config"
	"github.com/shaiso/Tripleo/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var overrides config.Overrides
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "tripleo",
		Short:         "TripleO CLI — overcloud deployment workflows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&overrides.WorkflowURL, "workflow-url", "", "Workflow service URL (env TRIPLEO_WORKFLOW_URL)")
	rootCmd.PersistentFlags().StringVar(&overrides.MessagingDriver, "messaging-driver", "", "Messaging transport: amqp or websocket (env TRIPLEO_MESSAGING_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&overrides.MessagingURL, "messaging-url", "", "Message broker or websocket URL")
	rootCmd.PersistentFlags().DurationVar(&overrides.Timeout, "timeout", 0, "Maximum wait for a workflow message (default 1h)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	logger := telemetry.SetupLogger()

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	clientsFn := func() (*cli.Clients, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(overrides); err != nil {
			return nil, err
		}

		logger.Debug("configuration loaded",
			slog.String("workflow_url", cfg.Workflow.URL),
			slog.String("messaging_driver", cfg.Messaging.Driver),
			slog.Duration("timeout", cfg.Messaging.Timeout),
		)

		ctx := rootCmd.Context()
		return cli.NewClients(ctx, cfg, telemetry.FromContext(ctx), outputFn().Messages())
	}

	rootCmd.AddCommand(cli.NewOvercloudCmd(clientsFn, outputFn))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx = telemetry.WithLogger(ctx, logger)

	start := time.Now()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Debug("command failed", slog.Duration("elapsed", time.Since(start)), slog.Any("error", err))
		outputFn().Error(err.Error())
		os.Exit(1)
	}
}
