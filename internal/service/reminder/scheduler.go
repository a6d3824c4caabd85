package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/events"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/phrazzld/scry-sprint/internal/service/reminder"

// Scheduler defaults.
const (
	DefaultInterval            = 15 * time.Minute
	DefaultDueWindow           = 7 * time.Minute
	DefaultRenotifyGuard       = 30 * time.Minute
	DefaultBatchSize           = 100
	DefaultDispatchConcurrency = 4
)

// SchedulerConfig tunes the reminder tick.
type SchedulerConfig struct {
	Interval time.Duration
	// DueWindow is the half-width of the window around now in which an
	// item's due date must fall.
	DueWindow time.Duration
	// RenotifyGuard excludes items notified more recently than this,
	// independent of per-user cooldowns.
	RenotifyGuard time.Duration
	// BatchSize caps the messages handed to one Transport.SendBatch call.
	BatchSize int
	// DispatchConcurrency caps concurrent SendBatch calls.
	DispatchConcurrency int
}

// DefaultSchedulerConfig returns the production defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:            DefaultInterval,
		DueWindow:           DefaultDueWindow,
		RenotifyGuard:       DefaultRenotifyGuard,
		BatchSize:           DefaultBatchSize,
		DispatchConcurrency: DefaultDispatchConcurrency,
	}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	d := DefaultSchedulerConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.DueWindow <= 0 {
		c.DueWindow = d.DueWindow
	}
	if c.RenotifyGuard <= 0 {
		c.RenotifyGuard = d.RenotifyGuard
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.DispatchConcurrency <= 0 {
		c.DispatchConcurrency = d.DispatchConcurrency
	}
	return c
}

// TickReport summarizes one tick.
type TickReport struct {
	// Skipped is set when another tick was still running.
	Skipped       bool `json:"skipped"`
	Candidates    int  `json:"candidates"`
	Groups        int  `json:"groups"`
	Ineligible    int  `json:"ineligible"`
	Sent          int  `json:"sent"`
	Failed        int  `json:"failed"`
	TokensCleared int  `json:"tokens_cleared"`
	ItemsNotified int  `json:"items_notified"`
}

// Scheduler runs the reminder pipeline on a fixed interval. Each instance
// owns its own single-flight guard, so several can coexist in one process.
type Scheduler struct {
	store     store.Store
	engine    *Engine
	grouper   *Grouper
	transport Transport
	emitter   events.EventEmitter
	cfg       SchedulerConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	running atomic.Bool
	// dueCursor is where the next tick's due range must start at the
	// latest. Only read and written while running is held.
	dueCursor time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithEventEmitter publishes a reminder.dispatched event per successful send.
func WithEventEmitter(e events.EventEmitter) SchedulerOption {
	return func(s *Scheduler) { s.emitter = e }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) SchedulerOption {
	return func(s *Scheduler) { s.tracer = tp.Tracer(tracerName) }
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	st store.Store,
	engine *Engine,
	grouper *Grouper,
	transport Transport,
	cfg SchedulerConfig,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if st == nil {
		panic("store cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if grouper == nil {
		panic("grouper cannot be nil")
	}
	if transport == nil {
		panic("transport cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		store:     st,
		engine:    engine,
		grouper:   grouper,
		transport: transport,
		cfg:       cfg.withDefaults(),
		logger:    logger.With(slog.String("component", "reminder_scheduler")),
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic loop. The first tick runs one interval after
// Start. Calling Start on a running Scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)
	s.logger.Info("reminder scheduler started", slog.Duration("interval", s.cfg.Interval))
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick that started is allowed to finish after Stop so that
			// sends and their notified markers stay consistent.
			if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("reminder tick failed", slog.Any("error", err))
			}
		}
	}
}

// outcome pairs a group with its delivery result.
type outcome struct {
	group   Group
	profile *domain.ReminderProfile
	result  SendResult
}

// RunOnce executes one tick. It returns a report with Skipped set, and no
// error, when another tick is in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (TickReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("reminder tick skipped, previous tick still running")
		return TickReport{Skipped: true}, nil
	}
	defer s.running.Store(false)

	now := s.now()
	tickID := uuid.New()
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("tick_id", tickID.String()))
	ctx = logger.WithLogger(ctx, log)

	ctx, span := s.tracer.Start(ctx, "reminder.tick",
		trace.WithAttributes(attribute.String("tick.id", tickID.String())))
	defer span.End()

	from, to := s.dueRange(now)
	var report TickReport
	err := s.runTick(ctx, now, from, to, &report)
	if err != nil || report.Failed > 0 {
		s.dueCursor = from
	} else {
		s.dueCursor = to
	}

	span.SetAttributes(
		attribute.Int("tick.candidates", report.Candidates),
		attribute.Int("tick.groups", report.Groups),
		attribute.Int("tick.sent", report.Sent),
		attribute.Int("tick.failed", report.Failed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reminder tick failed")
		return report, err
	}

	log.Info("reminder tick finished",
		slog.Int("candidates", report.Candidates),
		slog.Int("groups", report.Groups),
		slog.Int("ineligible", report.Ineligible),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("tokens_cleared", report.TokensCleared))
	return report, nil
}

// dueRange returns the due range for a tick at now: now±DueWindow, widened
// back to where the previous range ended so consecutive ranges leave no gap.
// After a failed tick the cursor stays at that tick's start and the failed
// range is scanned again.
func (s *Scheduler) dueRange(now time.Time) (time.Time, time.Time) {
	from, to := now.Add(-s.cfg.DueWindow), now.Add(s.cfg.DueWindow)
	if !s.dueCursor.IsZero() && s.dueCursor.Before(from) {
		from = s.dueCursor
	}
	return from, to
}

func (s *Scheduler) runTick(ctx context.Context, now, from, to time.Time, report *TickReport) error {
	due, err := s.discover(ctx, now, from, to)
	if err != nil {
		return err
	}
	report.Candidates = len(due)
	if len(due) == 0 {
		return nil
	}

	groups := s.grouper.Group(due)
	report.Groups = len(groups)

	eligible, err := s.filterEligible(ctx, groups, now, report)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return nil
	}

	outcomes := s.dispatch(ctx, eligible)
	return s.record(ctx, outcomes, now, report)
}

func (s *Scheduler) discover(ctx context.Context, now, from, to time.Time) ([]domain.DueNotification, error) {
	ctx, span := s.tracer.Start(ctx, "reminder.discover",
		trace.WithAttributes(
			attribute.String("due.from", from.Format(time.RFC3339)),
			attribute.String("due.to", to.Format(time.RFC3339))))
	defer span.End()

	due, err := s.store.Stores().Items.ListReminderCandidates(ctx, store.ReminderQuery{
		Now:            now,
		DueFrom:        from,
		DueTo:          to,
		NotifiedBefore: now.Add(-s.cfg.RenotifyGuard),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	span.SetAttributes(attribute.Int("candidates", len(due)))
	return due, nil
}

type eligibleGroup struct {
	group   Group
	profile *domain.ReminderProfile
}

func (s *Scheduler) filterEligible(
	ctx context.Context,
	groups []Group,
	now time.Time,
	report *TickReport,
) ([]eligibleGroup, error) {
	ctx, span := s.tracer.Start(ctx, "reminder.eligibility")
	defer span.End()

	log := logger.FromContextOrDefault(ctx, s.logger)
	stores := s.store.Stores()

	out := make([]eligibleGroup, 0, len(groups))
	for _, g := range groups {
		profile, err := stores.Profiles.Get(ctx, g.UserID)
		if errors.Is(err, store.ErrNotFound) {
			report.Ineligible++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load reminder profile: %w", err)
		}
		active, err := stores.Sessions.ListActiveByUser(ctx, g.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list active sessions: %w", err)
		}

		d := s.engine.Evaluate(profile, ActiveUntil(active, now), now)
		if !d.Eligible {
			report.Ineligible++
			log.Debug("user not eligible for reminder",
				slog.String("user_id", g.UserID.String()),
				slog.String("reason", string(d.Reason)))
			continue
		}
		out = append(out, eligibleGroup{group: g, profile: profile})
	}
	span.SetAttributes(attribute.Int("eligible", len(out)))
	return out, nil
}

// dispatch sends every group without holding a transaction. Failures are
// captured per message and never abort sibling batches.
func (s *Scheduler) dispatch(ctx context.Context, groups []eligibleGroup) []outcome {
	ctx, span := s.tracer.Start(ctx, "reminder.dispatch",
		trace.WithAttributes(attribute.Int("messages", len(groups))))
	defer span.End()

	log := logger.FromContextOrDefault(ctx, s.logger)
	outcomes := make([]outcome, len(groups))
	for i, g := range groups {
		outcomes[i] = outcome{group: g.group, profile: g.profile}
	}

	var eg errgroup.Group
	eg.SetLimit(s.cfg.DispatchConcurrency)

	for start := 0; start < len(groups); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(groups))
		eg.Go(func() error {
			batch := outcomes[start:end]
			msgs := make([]Message, len(batch))
			for i, o := range batch {
				msgs[i] = Message{Token: o.group.Token, Title: o.group.Title, Body: o.group.Body, Data: o.group.Data()}
			}

			results, err := s.transport.SendBatch(ctx, msgs)
			if err == nil && len(results) != len(msgs) {
				err = fmt.Errorf("transport returned %d results for %d messages", len(results), len(msgs))
			}
			if err != nil {
				log.Warn("reminder batch failed", slog.Int("messages", len(msgs)), slog.Any("error", err))
				for i := range batch {
					batch[i].result = SendResult{Kind: FailureTransient, Error: err.Error()}
				}
				return nil
			}
			for i := range batch {
				batch[i].result = results[i]
			}
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

// record persists each outcome in its own transaction.
func (s *Scheduler) record(ctx context.Context, outcomes []outcome, now time.Time, report *TickReport) error {
	ctx, span := s.tracer.Start(ctx, "reminder.record")
	defer span.End()

	log := logger.FromContextOrDefault(ctx, s.logger)
	var errs []error

	for _, o := range outcomes {
		userLog := log.With(slog.String("user_id", o.group.UserID.String()))

		switch o.result.Kind {
		case FailureNone:
			if err := s.recordSent(ctx, o, now); err != nil {
				errs = append(errs, err)
				continue
			}
			report.Sent++
			report.ItemsNotified += len(o.group.ItemIDs)
			userLog.Info("reminder sent", slog.Int("items", len(o.group.ItemIDs)))
			s.emitDispatched(ctx, o, now)

		case FailurePermanent:
			report.Failed++
			cleared, err := s.clearToken(ctx, o, now)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if cleared {
				report.TokensCleared++
			}
			userLog.Warn("reminder rejected permanently, token cleared",
				slog.String("error", o.result.Error), slog.Bool("cleared", cleared))

		default:
			report.Failed++
			userLog.Warn("reminder failed, will retry next tick", slog.String("error", o.result.Error))
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recording failed")
		return err
	}
	return nil
}

func (s *Scheduler) recordSent(ctx context.Context, o outcome, now time.Time) error {
	return s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		profile, err := tx.Profiles.GetForUpdate(ctx, o.group.UserID)
		if err != nil {
			return fmt.Errorf("failed to lock reminder profile: %w", err)
		}
		profile.RecordSent(now, s.engine.Location())
		if err := tx.Profiles.Upsert(ctx, profile); err != nil {
			return fmt.Errorf("failed to record reminder send: %w", err)
		}
		if err := tx.Items.MarkNotified(ctx, o.group.ItemIDs, now); err != nil {
			return fmt.Errorf("failed to mark items notified: %w", err)
		}
		return nil
	})
}

// clearToken drops the token that failed, unless the user registered a
// different one since discovery.
func (s *Scheduler) clearToken(ctx context.Context, o outcome, now time.Time) (bool, error) {
	cleared := false
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		profile, err := tx.Profiles.GetForUpdate(ctx, o.group.UserID)
		if err != nil {
			return fmt.Errorf("failed to lock reminder profile: %w", err)
		}
		if !profile.HasToken() || *profile.DeliveryToken != o.group.Token {
			return nil
		}
		profile.ClearToken(now)
		if err := tx.Profiles.Upsert(ctx, profile); err != nil {
			return fmt.Errorf("failed to clear delivery token: %w", err)
		}
		cleared = true
		return nil
	})
	return cleared, err
}

func (s *Scheduler) emitDispatched(ctx context.Context, o outcome, now time.Time) {
	if s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	e, err := events.NewEvent(events.TypeReminderDispatched, events.ReminderDispatched{
		UserID:      o.group.UserID,
		ItemIDs:     o.group.ItemIDs,
		SessionSize: o.profile.SessionSize,
		SentAt:      now,
	}, now)
	if err != nil {
		log.Error("failed to build reminder event", slog.Any("error", err))
		return
	}
	if err := s.emitter.EmitEvent(ctx, e); err != nil {
		log.Error("failed to emit reminder event",
			slog.String("user_id", o.group.UserID.String()),
			slog.Any("error", err))
	}
}
