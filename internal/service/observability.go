package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/logging"
)

// UseCaseEvent describes one finished pipeline use case.
type UseCaseEvent struct {
	Name     string
	Title    string
	Stage    domain.Stage
	Actor    string
	Duration time.Duration
	Err      error
	// Fields carries use-case specific counts and outcomes.
	Fields map[string]any
}

func (e UseCaseEvent) Success() bool { return e.Err == nil }

// UseCaseObserver receives an event after every intake and advance.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type slogUseCaseObserver struct {
	logger *slog.Logger
}

// NewSlogUseCaseObserver logs failures at error level and everything else
// at debug level.
func NewSlogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &slogUseCaseObserver{logger: logger}
}

func (o *slogUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := []slog.Attr{
		slog.String("use_case", event.Name),
		slog.String(logging.FieldTitle, event.Title),
		slog.String(logging.FieldStage, string(event.Stage)),
		slog.Int64("duration_ms", event.Duration.Milliseconds()),
	}
	if event.Actor != "" {
		attrs = append(attrs, slog.String(logging.FieldActor, event.Actor))
	}
	// Sorted so log lines are stable between runs.
	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Fields[k]))
	}

	if event.Err != nil {
		attrs = append(attrs, logging.Error(event.Err))
		o.logger.LogAttrs(ctx, slog.LevelError, "pipeline use case failed", attrs...)
		return
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "pipeline use case", attrs...)
}
