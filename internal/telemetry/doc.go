// Package telemetry обеспечивает наблюдаемость CLI.
//
// Включает:
//   - logging.go — structured logging через slog (text через charmbracelet/log, json через slog)
//   - metrics.go — Prometheus метрики workflows с отправкой в Pushgateway
//
// Логи всегда пишутся в stderr: stdout зарезервирован для данных команд.
package telemetry
