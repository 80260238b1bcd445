package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/event"
	"github.com/okian/fightlog/internal/domain/graph"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
	"github.com/okian/fightlog/internal/profile"
	"github.com/okian/fightlog/pkg/logger"
	"github.com/okian/fightlog/pkg/metrics"
	"github.com/okian/fightlog/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Run analyzes one job on the calling goroutine: it normalizes the records,
// builds a fresh module graph for the job's profile, dispatches the stream
// and seals the result. Stats are returned even when the run fails after
// dispatch started.
func (s *Service) Run(ctx context.Context, job model.Job) (*results.Result, dispatch.Stats, error) { //nolint:gocritic // hugeParam: jobs travel by value through the queue
	name := job.Profile
	if name == "" {
		name = s.defaultProfile
	}
	log := s.logger.Named("run")

	ctx, span := tracing.Tracer().Start(ctx, "fightlog.analyze", trace.WithAttributes(
		attribute.String("fightlog.job_id", job.ID),
		attribute.String("fightlog.profile", name),
		attribute.Int("fightlog.records", len(job.Events)),
	))
	defer span.End()

	res, stats, err := s.run(ctx, name, job, log)
	status := string(model.StatusDone)
	if err != nil {
		status = string(model.StatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordAnalysis(name, status)
	metrics.RecordDispatch(stats.Real, stats.Synthetic, stats.Delivered, stats.Dropped, stats.Filtered)
	span.SetAttributes(
		attribute.Int("fightlog.events.real", stats.Real),
		attribute.Int("fightlog.events.synthetic", stats.Synthetic),
		attribute.Int("fightlog.modules.degraded", stats.Degraded),
	)
	return res, stats, err
}

func (s *Service) run(ctx context.Context, name string, job model.Job, log logger.Logger) (*results.Result, dispatch.Stats, error) { //nolint:gocritic // hugeParam: see Run
	registry, err := profile.Registry(name, s.profileCfg)
	if err != nil {
		return nil, dispatch.Stats{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	enc, err := encounter.New(job.Encounter)
	if err != nil {
		return nil, dispatch.Stats{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	events, err := stage(ctx, "normalize", func(context.Context) ([]event.Event, error) {
		return event.NormalizeAll(job.Events)
	})
	if err != nil {
		return nil, dispatch.Stats{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	g, err := stage(ctx, "resolve", func(ctx context.Context) (*graph.Graph, error) {
		return graph.Build(ctx, registry, enc, graph.WithLogger(log))
	})
	if err != nil {
		return nil, dispatch.Stats{}, err
	}

	d := dispatch.New(g, enc)
	stats, err := stage(ctx, "dispatch", func(ctx context.Context) (dispatch.Stats, error) {
		return d.Run(ctx, events)
	})
	if err != nil {
		var malformed *event.MalformedEventError
		if errors.As(err, &malformed) {
			err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, stats, err
	}
	for _, f := range d.Failures() {
		metrics.RecordModuleDegraded(f.Module)
	}

	res, err := stage(ctx, "aggregate", func(ctx context.Context) (*results.Result, error) {
		return results.NewAggregator(g).Seal(ctx)
	})
	if err != nil {
		return nil, stats, err
	}

	log.Info(ctx, "analysis complete",
		logger.String("job_id", job.ID),
		logger.String("profile", name),
		logger.Int("events", stats.Real),
		logger.Int("synthetic", stats.Synthetic),
		logger.Int("degraded", stats.Degraded),
		logger.Int("suggestions", len(res.Suggestions)),
		logger.Int("statistics", len(res.Statistics)),
	)
	return res, stats, nil
}

// stage runs fn inside a child span and records its latency.
func stage[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.Tracer().Start(ctx, "fightlog."+name)
	defer span.End()

	start := time.Now()
	v, err := fn(ctx)
	metrics.RecordStageLatency(name, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}
