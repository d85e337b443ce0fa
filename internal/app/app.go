package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PriceRadar/internal/aggregate"
	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/infrastructure/cache"
	"PriceRadar/internal/infrastructure/delivery"
	"PriceRadar/internal/infrastructure/email"
	"PriceRadar/internal/infrastructure/eventbus"
	"PriceRadar/internal/infrastructure/llm"
	"PriceRadar/internal/infrastructure/parser"
	"PriceRadar/internal/infrastructure/scheduler"
	"PriceRadar/internal/infrastructure/signals"
	"PriceRadar/internal/infrastructure/storage"
	"PriceRadar/internal/infrastructure/telegram"
	"PriceRadar/internal/logging"
	"PriceRadar/internal/ports"
	"PriceRadar/internal/telemetry"
	"PriceRadar/internal/trust"
	"PriceRadar/internal/usecase"
	"PriceRadar/pkg/logger"
)

// Channel names accepted in notifications.channels.
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelEvents   = "events"

	stopGrace = 5 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	store     storage.Result
	browser   *parser.Browser
	telemetry telemetry.Shutdown

	events    *eventbus.Bus
	scorer    *trust.Scorer
	signals   ports.SignalProvider
	pipeline  *usecase.Pipeline
	alerts    *usecase.AlertScheduler
	scheduler *usecase.Scheduler
	specs     ports.SpecsClient
}

// New builds the application. Close must be called to release the store,
// the browser and telemetry exporters.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, baseLogger.With("component", "telemetry"))
	if err != nil {
		return nil, err
	}
	a.telemetry = shutdown

	a.store, err = storage.NewStore(ctx, cfg.Store, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var renderer parser.Renderer
	if parser.NeedsBrowser(cfg.Sites) {
		a.browser = parser.NewBrowser(cfg.Browser, logger.Printf(baseLogger, "chromedp", slog.LevelDebug))
		renderer = a.browser
	}
	registry, err := parser.NewRegistry(cfg.Sites, cfg.Discovery.AdapterTimeout, renderer, baseLogger.With("component", "adapter"))
	if err != nil {
		return nil, fmt.Errorf("build retailer registry: %w", err)
	}

	a.scorer, err = newScorer(cfg.Trust)
	if err != nil {
		return nil, err
	}
	if cfg.Signals.URL != "" {
		a.signals = signals.NewClient(cfg.Signals)
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Registry:          registry,
		DefaultTimeout:    cfg.Discovery.AdapterTimeout,
		FallbackThreshold: cfg.Discovery.FallbackThreshold,
		Logger:            baseLogger.With("component", "orchestrator"),
	})
	aggregator := aggregate.New(a.scorer, aggregate.Options{
		Threshold:       cfg.Discovery.SimilarityThreshold,
		KeepAccessories: cfg.Discovery.KeepAccessories,
	}, baseLogger.With("component", "aggregator"))
	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Discoverer: orchestrator,
		Aggregator: aggregator,
		Cache:      cache.New[usecase.SearchResult](cfg.Discovery.CacheSize, cfg.Discovery.CacheTTL),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	a.events = eventbus.New()
	channel, err := a.buildChannel(cfg.Notifications)
	if err != nil {
		return nil, err
	}
	notifier := usecase.NewNotifier(usecase.NotifierDeps{
		Channel: channel,
		Store:   a.store.Store,
		Events:  a.events,
		Logger:  baseLogger.With("component", "notifier"),
	})
	a.alerts = usecase.NewAlertScheduler(usecase.AlertSchedulerDeps{
		Store:        a.store.Store,
		Searcher:     a.pipeline,
		Notifier:     notifier,
		Events:       a.events,
		Concurrency:  cfg.Alerts.Concurrency,
		DefaultOwner: cfg.Alerts.DefaultOwner,
		Logger:       baseLogger.With("component", "alerts"),
	})
	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location())
	a.scheduler = usecase.NewScheduler(driver, a.alerts, a.refreshTrust, baseLogger.With("component", "scheduler"))

	a.specs = newSpecsClient(cfg.ChatGPT, baseLogger.With("component", "specs"))

	ok = true
	return a, nil
}

func newScorer(cfg config.TrustConfig) (*trust.Scorer, error) {
	priors := make(map[string]int, len(cfg.Priors))
	for k, v := range cfg.Priors {
		priors[k] = v
	}
	if cfg.PriorsFile != "" {
		fromFile, err := trust.LoadPriors(cfg.PriorsFile)
		if err != nil {
			return nil, fmt.Errorf("load trust priors: %w", err)
		}
		for k, v := range fromFile {
			priors[k] = v
		}
	}
	return trust.NewScorer(trust.Options{
		Default:        cfg.Default,
		Priors:         priors,
		TrustedSellers: cfg.TrustedSellers,
	}), nil
}

func newSpecsClient(cfg config.ChatGPTConfig, log *slog.Logger) ports.SpecsClient {
	chat := llm.NewChatGPTClient(cfg)
	if !chat.Configured() {
		return llm.Heuristic{}
	}
	return llm.NewFallback(chat, llm.Heuristic{}, log)
}

// buildChannel composes the enabled channels. Every external channel is
// wrapped with the delivery ledger so a retried alert is not sent twice.
func (a *Application) buildChannel(cfg config.NotificationConfig) (ports.Channel, error) {
	var channels []ports.Channel
	seen := map[string]struct{}{}
	for _, name := range cfg.Channels {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}

		var ch ports.Channel
		switch name {
		case ChannelTelegram:
			if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
				return nil, fmt.Errorf("telegram channel needs botToken and chatId")
			}
			ch = telegram.NewChannel(cfg.Telegram)
		case ChannelEmail:
			mail, err := email.NewChannel(cfg.Email)
			if err != nil {
				return nil, fmt.Errorf("email channel: %w", err)
			}
			ch = mail
		case ChannelEvents:
			ch = a.events
		default:
			return nil, fmt.Errorf("unknown notification channel %q", name)
		}
		channels = append(channels, delivery.NewDedup(ch, a.store.Store, a.logger.With("component", "delivery", "channel", name)))
	}

	switch len(channels) {
	case 0:
		a.logger.Warn("no notification channels enabled, drops will not be delivered")
		return nil, nil
	case 1:
		return channels[0], nil
	default:
		return delivery.NewMulti(channels...), nil
	}
}

func (a *Application) refreshTrust(ctx context.Context) error {
	if a.signals == nil {
		return nil
	}
	return a.scorer.Refresh(ctx, a.signals)
}

// Search runs an interactive discovery.
func (a *Application) Search(ctx context.Context, query string) (usecase.SearchResult, error) {
	return a.pipeline.Search(ctx, query)
}

// Watch registers a price monitor.
func (a *Application) Watch(ctx context.Context, ownerID, query string, targetMinor int64) (domain.PriceMonitor, error) {
	return a.alerts.Watch(ctx, ownerID, query, targetMinor)
}

// Monitors lists monitors for ownerID, or all of them.
func (a *Application) Monitors(ctx context.Context, ownerID string) ([]domain.PriceMonitor, error) {
	return a.alerts.Monitors(ctx, ownerID)
}

// Remove deletes a monitor and cancels its in-flight check.
func (a *Application) Remove(ctx context.Context, id string) error {
	return a.alerts.Remove(ctx, id)
}

// Compare finds the best listing for each query and compares their specs.
func (a *Application) Compare(ctx context.Context, left, right string) (domain.CanonicalListing, domain.CanonicalListing, domain.ComparisonResult, error) {
	var none domain.ComparisonResult
	l, err := a.bestFor(ctx, left)
	if err != nil {
		return domain.CanonicalListing{}, domain.CanonicalListing{}, none, err
	}
	r, err := a.bestFor(ctx, right)
	if err != nil {
		return domain.CanonicalListing{}, domain.CanonicalListing{}, none, err
	}
	res, err := a.specs.Compare(ctx, l, r)
	if err != nil {
		return l, r, none, fmt.Errorf("compare: %w", err)
	}
	return l, r, res, nil
}

func (a *Application) bestFor(ctx context.Context, query string) (domain.CanonicalListing, error) {
	res, err := a.pipeline.Search(ctx, query)
	if err != nil {
		return domain.CanonicalListing{}, err
	}
	best, ok := res.Best()
	if !ok {
		return domain.CanonicalListing{}, fmt.Errorf("%q: %w", query, domain.ErrNoResults)
	}
	return best, nil
}

// Events exposes the in-process event bus.
func (a *Application) Events() *eventbus.Bus {
	return a.events
}

// Run starts the alert scheduler and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	events, unsubscribe := a.events.Subscribe(64)
	defer unsubscribe()

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching prices", "interval", a.cfg.Scheduler.Interval, "store", a.cfg.Store.Backend)

	for {
		select {
		case <-ctx.Done():
			return a.stop()
		case ev := <-events:
			a.logEvent(ev)
		}
	}
}

func (a *Application) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Discovery.AdapterTimeout+stopGrace)
	defer cancel()
	return a.scheduler.Stop(ctx)
}

func (a *Application) logEvent(ev domain.Event) {
	switch ev.Kind {
	case domain.EventMessage:
		if ev.Message != nil {
			a.logger.Info("notification", "monitor", ev.MonitorID, "subject", ev.Message.Subject, "body", ev.Message.Body)
		}
	case domain.EventTransition:
		a.logger.Info("monitor transition", "monitor", ev.MonitorID, "from", ev.From, "to", ev.To)
	case domain.EventCheckFailed:
		a.logger.Debug("monitor check failed", "monitor", ev.MonitorID, "error", ev.Err)
	}
}

// Close releases everything New opened.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.browser != nil {
		a.browser.Close()
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if a.telemetry != nil {
		if err := a.telemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Migrate applies pending migrations for the configured SQL backend.
func Migrate(ctx context.Context, cfg config.StoreConfig) ([]string, error) {
	dialect, err := storage.ParseDialect(cfg.Backend)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return storage.Migrate(ctx, db, dialect)
}
