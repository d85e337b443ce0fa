package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// Searcher produces a fresh ranked result for a query. *Pipeline satisfies it.
type Searcher interface {
	Fresh(ctx context.Context, query string) (SearchResult, error)
}

// DropNotifier delivers drop alerts and retires triggered monitors.
// *Notifier satisfies it.
type DropNotifier interface {
	Notify(ctx context.Context, event domain.DropEvent) bool
	Retire(ctx context.Context, monitorID string) error
}

// TickReport summarizes one scheduler pass.
type TickReport struct {
	Evaluated int
	Skipped   int
	Triggered int
	Failed    int
	Retired   int
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeSkipped
	outcomeTriggered
	outcomeFailed
)

// AlertSchedulerDeps wires the alert scheduler.
type AlertSchedulerDeps struct {
	Store        ports.MonitorStore
	Searcher     Searcher
	Notifier     DropNotifier
	Events       ports.EventPublisher
	Concurrency  int
	DefaultOwner string
	Logger       *slog.Logger
}

// AlertScheduler evaluates active monitors on every tick. A monitor is never
// evaluated by two ticks at once; Active to Triggered happens only after the
// notifier accepted the alert.
type AlertScheduler struct {
	store        ports.MonitorStore
	searcher     Searcher
	notifier     DropNotifier
	events       ports.EventPublisher
	concurrency  int
	defaultOwner string
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewAlertScheduler constructs the scheduler.
func NewAlertScheduler(deps AlertSchedulerDeps) *AlertScheduler {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &AlertScheduler{
		store:        deps.Store,
		searcher:     deps.Searcher,
		notifier:     deps.Notifier,
		events:       deps.Events,
		concurrency:  concurrency,
		defaultOwner: deps.DefaultOwner,
		logger:       deps.Logger,
		now:          time.Now,
		newID:        uuid.NewString,
		inflight:     map[string]context.CancelFunc{},
	}
}

// Watch registers a new active monitor.
func (s *AlertScheduler) Watch(ctx context.Context, ownerID, query string, targetMinor int64) (domain.PriceMonitor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.PriceMonitor{}, domain.ErrEmptyQuery
	}
	if targetMinor <= 0 {
		return domain.PriceMonitor{}, fmt.Errorf("target price must be positive, got %d", targetMinor)
	}
	if ownerID = strings.TrimSpace(ownerID); ownerID == "" {
		ownerID = s.defaultOwner
	}

	now := s.now()
	m := domain.PriceMonitor{
		ID:               s.newID(),
		OwnerID:          ownerID,
		Query:            query,
		TargetPriceMinor: targetMinor,
		Status:           domain.MonitorActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return domain.PriceMonitor{}, fmt.Errorf("create monitor: %w", err)
	}
	s.info("monitor created", "monitor", m.ID, "owner", ownerID, "query", query, "target", targetMinor)
	return m, nil
}

// Monitors lists an owner's monitors, or all monitors when ownerID is empty.
func (s *AlertScheduler) Monitors(ctx context.Context, ownerID string) ([]domain.PriceMonitor, error) {
	return s.store.List(ctx, ownerID)
}

// Remove cancels any in-flight evaluation of the monitor and removes it.
func (s *AlertScheduler) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	if cancel, ok := s.inflight[id]; ok {
		cancel()
	}
	s.mu.Unlock()

	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove monitor %s: %w", id, err)
	}
	s.info("monitor removed", "monitor", id)
	return nil
}

// Tick retires monitors left triggered by an earlier pass, then evaluates
// every active monitor not already in flight.
func (s *AlertScheduler) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport

	triggered, err := s.store.ListByStatus(ctx, domain.MonitorTriggered)
	if err != nil {
		return report, fmt.Errorf("list triggered monitors: %w", err)
	}
	for _, m := range triggered {
		if err := s.notifier.Retire(ctx, m.ID); err != nil {
			s.warn("retire failed", "monitor", m.ID, "error", err)
			continue
		}
		report.Retired++
	}

	active, err := s.store.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active monitors: %w", err)
	}

	var evaluated, skipped, fired, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, m := range active {
		mctx, release, ok := s.acquire(ctx, m.ID)
		if !ok {
			skipped.Add(1)
			continue
		}
		id := m.ID
		g.Go(func() error {
			defer release()
			switch s.evaluate(mctx, id) {
			case outcomeSkipped:
				skipped.Add(1)
				return nil
			case outcomeTriggered:
				fired.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
			evaluated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Evaluated = int(evaluated.Load())
	report.Skipped = int(skipped.Load())
	report.Triggered = int(fired.Load())
	report.Failed = int(failed.Load())
	s.debug("tick finished", "active", len(active), "evaluated", report.Evaluated, "skipped", report.Skipped,
		"triggered", report.Triggered, "failed", report.Failed, "retired", report.Retired)
	return report, nil
}

// InFlight reports whether a monitor is being evaluated right now.
func (s *AlertScheduler) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

func (s *AlertScheduler) acquire(ctx context.Context, id string) (context.Context, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return nil, nil, false
	}
	mctx, cancel := context.WithCancel(ctx)
	s.inflight[id] = cancel
	release := func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
		cancel()
	}
	return mctx, release, true
}

func (s *AlertScheduler) evaluate(ctx context.Context, id string) outcome {
	ctx, span := tracer.Start(ctx, "AlertScheduler.evaluate", trace.WithAttributes(attribute.String("monitor", id)))
	defer span.End()

	m, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMonitorNotFound) {
			return outcomeSkipped
		}
		s.warn("load monitor failed", "monitor", id, "error", err)
		return outcomeFailed
	}
	if m.Status != domain.MonitorActive {
		return outcomeSkipped
	}

	res, err := s.searcher.Fresh(ctx, m.Query)
	if err != nil {
		s.checkFailed(ctx, m, err)
		return outcomeFailed
	}
	best, ok := res.Best()
	if !ok {
		s.checkFailed(ctx, m, domain.ErrNoResults)
		return outcomeFailed
	}

	observed := s.now()
	if err := s.store.RecordCheck(ctx, m.ID, best.PriceMinor, observed); err != nil {
		if errors.Is(err, domain.ErrMonitorNotFound) {
			return outcomeSkipped
		}
		s.warn("record check failed", "monitor", m.ID, "error", err)
	}
	if best.PriceMinor > m.TargetPriceMinor {
		s.debug("no qualifying drop", "monitor", m.ID, "best", best.PriceMinor, "target", m.TargetPriceMinor)
		return outcomeUnchanged
	}
	if !s.stillActive(ctx, m.ID) {
		s.debug("monitor left active during evaluation, not notifying", "monitor", m.ID)
		return outcomeSkipped
	}

	drop := domain.DropEvent{
		ID:               s.newID(),
		MonitorID:        m.ID,
		OwnerID:          m.OwnerID,
		Query:            m.Query,
		TargetPriceMinor: m.TargetPriceMinor,
		PrevPriceMinor:   m.LastPriceMinor,
		Listing:          best,
		ObservedAt:       observed,
	}
	if !s.notifier.Notify(ctx, drop) {
		s.warn("drop not delivered, monitor stays active", "monitor", m.ID)
		return outcomeFailed
	}
	s.publish(domain.Event{Kind: domain.EventPriceDrop, MonitorID: m.ID, Drop: &drop, At: observed})

	swapped, err := s.store.Transition(ctx, m.ID, domain.MonitorActive, domain.MonitorTriggered)
	if err != nil {
		s.logError("trigger monitor failed", "monitor", m.ID, "error", err)
		return outcomeFailed
	}
	if !swapped {
		s.debug("trigger lost", "monitor", m.ID, "error", domain.ErrStateConflict)
		return outcomeSkipped
	}

	dropsFired.Add(ctx, 1)
	s.publish(domain.Event{Kind: domain.EventTransition, MonitorID: m.ID, From: domain.MonitorActive, To: domain.MonitorTriggered, At: s.now()})
	s.info("price drop triggered", "monitor", m.ID, "query", m.Query, "price", best.PriceMinor, "target", m.TargetPriceMinor, "source", best.SourceID)

	if err := s.notifier.Retire(ctx, m.ID); err != nil {
		s.warn("retire failed, next tick retries", "monitor", m.ID, "error", err)
	}
	return outcomeTriggered
}

// stillActive re-reads the monitor after discovery. Another process sharing
// the store may have removed it meanwhile.
func (s *AlertScheduler) stillActive(ctx context.Context, id string) bool {
	if ctx.Err() != nil {
		return false
	}
	m, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrMonitorNotFound) {
			s.warn("reload monitor failed", "monitor", id, "error", err)
		}
		return false
	}
	return m.Status == domain.MonitorActive
}

func (s *AlertScheduler) checkFailed(ctx context.Context, m domain.PriceMonitor, err error) {
	checkFailures.Add(ctx, 1)
	s.warn("monitor check failed, will retry", "monitor", m.ID, "query", m.Query, "error", err)
	s.publish(domain.Event{Kind: domain.EventCheckFailed, MonitorID: m.ID, Err: err.Error(), At: s.now()})
}

func (s *AlertScheduler) publish(event domain.Event) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

func (s *AlertScheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *AlertScheduler) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *AlertScheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *AlertScheduler) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
