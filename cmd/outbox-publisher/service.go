package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, failedAt time.Time) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
	Topics() []string
}

type publishRecorder interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType string)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          publishRecorder
}

// settings are the outbox knobs after defaults are applied.
type settings struct {
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func settingsFrom(cfg config.OutboxConfig) settings {
	out := settings{
		batchSize:      cfg.BatchSize,
		maxAttempts:    cfg.MaxAttempts,
		pollInterval:   time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		publishTimeout: cfg.PublishTimeout,
	}
	if out.batchSize <= 0 {
		out.batchSize = defaultBatchSize
	}
	if out.maxAttempts <= 0 {
		out.maxAttempts = defaultMaxAttempts
	}
	if out.pollInterval <= 0 {
		out.pollInterval = defaultPollInterval
	}
	if out.publishTimeout <= 0 {
		out.publishTimeout = defaultPublishTimeout
	}
	return out
}

// Service drains outbox_events onto Pub/Sub. Each batch is claimed with
// FOR UPDATE SKIP LOCKED so several publishers can run side by side.
type Service struct {
	logg       *logger.Logger
	db         dbClient
	repo       outboxRepository
	pubsub     pubSubClient
	registry   registryResolver
	dlq        dlqRepository
	metrics    publishRecorder
	publishers *publisherPool
	settings   settings
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		present bool
		name    string
	}{
		{params.Config != nil, "config"},
		{params.Logger != nil, "logger"},
		{params.DB != nil, "database client"},
		{params.PubSub != nil, "pubsub client"},
		{params.Repository != nil, "outbox repository"},
		{params.Registry != nil, "event registry"},
		{params.DLQRepository != nil, "dlq repository"},
	}
	for _, dep := range required {
		if !dep.present {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = noopRecorder{}
	}

	return &Service{
		logg:       params.Logger,
		db:         params.DB,
		repo:       params.Repository,
		pubsub:     params.PubSub,
		registry:   params.Registry,
		dlq:        params.DLQRepository,
		metrics:    metrics,
		publishers: newPublisherPool(factory),
		settings:   settingsFrom(params.Config.Outbox),
		now:        time.Now,
	}, nil
}

// ensureReadiness fails fast when a dependency is down or a registered topic
// has no publisher, rather than dead-lettering every event on first use.
func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	for _, topic := range s.registry.Topics() {
		if s.publishers.get(topic) == nil {
			return fmt.Errorf("no publisher for topic %q", topic)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	defer s.publishers.stop()

	wait := newPollBackoff(s.settings.pollInterval, maxBackoff)
	for ctx.Err() == nil {
		stats, err := s.processBatch(ctx)
		var delay time.Duration
		switch {
		case err != nil && ctx.Err() != nil:
			continue
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			delay = wait.failure()
		case stats.claimed > 0:
			wait.reset()
			s.logg.Debug(s.logg.WithFields(ctx, stats.fields()), "outbox batch processed")
			continue
		default:
			delay = wait.idle()
		}
		if err := sleep(ctx, delay); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noopRecorder struct{}

func (noopRecorder) IncPublished(string)    {}
func (noopRecorder) IncFailed(string)       {}
func (noopRecorder) IncDeadLettered(string) {}
