// Package service wires the analysis engine to the queue, the worker pool
// and the report store.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fightlog/internal/adapters/mq/queue"
	"github.com/okian/fightlog/internal/adapters/mq/worker"
	"github.com/okian/fightlog/internal/adapters/repository"
	"github.com/okian/fightlog/internal/domain/dedupe"
	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
	"github.com/okian/fightlog/internal/profile"
	"github.com/okian/fightlog/pkg/logger"
	"github.com/okian/fightlog/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Request is one combat log submitted for analysis.
type Request = model.Job

// Outcome is the per-request result of AnalyzeBatch.
type Outcome struct {
	ID     string          `json:"id"`
	Result *results.Result `json:"result,omitempty"`
	Stats  dispatch.Stats  `json:"stats"`
	Err    error           `json:"-"`
}

// Service accepts analysis requests and serves their reports.
type Service struct {
	mu sync.RWMutex

	workerCount    int
	queueSize      int
	dedupeSize     int
	runTimeout     time.Duration
	defaultProfile string
	profileCfg     profile.Config
	store          repository.Store
	logger         logger.Logger
	now            func() time.Time

	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	started bool
}

// New creates a service. Start must be called before Submit.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1024,
		dedupeSize:     50_000,
		runTimeout:     30 * time.Second,
		defaultProfile: profile.Core,
		profileCfg:     profile.DefaultConfig(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s, s.store, worker.WithClock(s.now))
	s.pool.Start(ctx)
	s.started = true

	metrics.UpdateStoredReports(s.store.Count(ctx))
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.String("default_profile", s.defaultProfile),
	)
	return nil
}

// Stop drains the worker pool and closes the store. Jobs no worker picked up
// are stored as failed with ErrStopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	var errs []error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown workers: %w", err))
		}
	}
	if err := s.queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close queue: %w", err))
	}
	if err := s.failUnprocessed(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.logger.Info(ctx, "service stopped")
	return errors.Join(errs...)
}

func (s *Service) failUnprocessed(ctx context.Context) error {
	pending := s.queue.Drain()
	if len(pending) == 0 {
		return nil
	}
	var errs []error
	for i := range pending {
		rep, err := s.store.Get(ctx, pending[i].ID)
		if err != nil {
			rep = model.NewReport(pending[i], s.now())
		}
		if err := s.store.Save(ctx, rep.Fail(ErrStopped, dispatch.Stats{}, s.now())); err != nil {
			errs = append(errs, fmt.Errorf("save unprocessed report %s: %w", pending[i].ID, err))
		}
	}
	s.logger.Warn(ctx, "failed jobs left in queue", logger.Int("count", len(pending)))
	return errors.Join(errs...)
}

// Analyze runs req synchronously, bounded by the run timeout. On timeout the
// run goroutine is abandoned and finishes in the background.
func (s *Service) Analyze(ctx context.Context, req Request) (*results.Result, dispatch.Stats, error) { //nolint:gocritic // hugeParam: requests are passed by value
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	type outcome struct {
		res   *results.Result
		stats dispatch.Stats
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		res, stats, err := s.Run(ctx, req)
		done <- outcome{res, stats, err}
	}()

	select {
	case o := <-done:
		return o.res, o.stats, o.err
	case <-ctx.Done():
		return nil, dispatch.Stats{}, fmt.Errorf("analyze %s: %w", req.ID, ctx.Err())
	}
}

// AnalyzeBatch runs every request synchronously, at most workerCount at a
// time. One failing request does not stop the others.
func (s *Service) AnalyzeBatch(ctx context.Context, reqs []Request) []Outcome {
	out := make([]Outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)
	for i := range reqs {
		g.Go(func() error {
			res, stats, err := s.Analyze(gctx, reqs[i])
			out[i] = Outcome{ID: reqs[i].ID, Result: res, Stats: stats, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Submit queues req for asynchronous analysis and returns its id. A request
// whose id was already submitted is not queued again and reports duplicate.
func (s *Service) Submit(ctx context.Context, req Request) (id string, duplicate bool, err error) { //nolint:gocritic // hugeParam: requests are passed by value
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", false, ErrNotStarted
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Profile == "" {
		req.Profile = s.defaultProfile
	}
	if !slices.Contains(profile.Names(), req.Profile) {
		return "", false, fmt.Errorf("%w: %w: %q", ErrInvalidRequest, profile.ErrUnknownProfile, req.Profile)
	}

	if s.deduper.SeenAndRecord(ctx, req.ID) {
		metrics.RecordDuplicateRequest()
		return req.ID, true, nil
	}

	rep := model.NewReport(req, s.now())
	if err := s.store.Save(ctx, rep); err != nil {
		s.deduper.Unrecord(ctx, req.ID)
		return "", false, fmt.Errorf("save report %s: %w", req.ID, err)
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.deduper.Unrecord(ctx, req.ID)
		if saveErr := s.store.Save(ctx, rep.Fail(err, dispatch.Stats{}, s.now())); saveErr != nil {
			s.logger.Warn(ctx, "save rejected report", logger.String("id", req.ID), logger.Error(saveErr))
		}
		return "", false, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
	metrics.UpdateStoredReports(s.store.Count(ctx))
	return req.ID, false, nil
}

// Report returns the stored report with id.
func (s *Service) Report(ctx context.Context, id string) (model.Report, error) {
	store := s.reportStore()
	if store == nil {
		return model.Report{}, ErrNotStarted
	}
	return store.Get(ctx, id)
}

// Reports lists stored reports, most recent first.
func (s *Service) Reports(ctx context.Context, limit int) ([]model.Report, error) {
	store := s.reportStore()
	if store == nil {
		return nil, ErrNotStarted
	}
	return store.List(ctx, limit)
}

func (s *Service) reportStore() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Profiles lists the registered profile names.
func (s *Service) Profiles() []string {
	return profile.Names()
}

// DefaultProfile is the profile used when a request names none.
func (s *Service) DefaultProfile() string {
	return s.defaultProfile
}

// GetStats returns a snapshot of the service state.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"worker_count":    s.workerCount,
		"queue_capacity":  s.queueSize,
		"run_timeout_ms":  s.runTimeout.Milliseconds(),
		"default_profile": s.defaultProfile,
		"profiles":        profile.Names(),
	}
	if !s.started {
		return stats
	}
	ctx := context.Background()
	stats["queue_len"] = s.queue.Len(ctx)
	stats["stored_reports"] = s.store.Count(ctx)
	stats["dedupe_size"] = s.deduper.Size()
	return stats
}
