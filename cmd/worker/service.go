package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
)

var errConsumerExited = errors.New("consumer exited")

type pinger interface {
	Ping(context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Payments runner
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type consumer struct {
	name string
	run  func(context.Context) error
}

// Service hosts the Pub/Sub consumers. They share one lifetime: the first
// to fail stops the rest.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers []consumer
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Payments == nil:
		return nil, errors.New("payments consumer is required")
	}

	return &Service{
		logg: params.Logger,
		deps: []dependency{
			{"database", params.DB.Ping},
			{"redis", params.Redis.Ping},
			{"pubsub", params.PubSub.Ping},
		},
		consumers: []consumer{
			{"payments", params.Payments.Run},
		},
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "worker dependencies ready")
	return nil
}

// Run blocks until ctx is canceled or a consumer stops. A consumer returning
// nil while ctx is still live counts as a failure.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.consumers {
		g.Go(func() error {
			err := c.run(gctx)
			switch {
			case gctx.Err() != nil:
				return nil
			case err == nil:
				err = errConsumerExited
			}
			s.logg.Error(s.logg.WithField(ctx, "consumer", c.name), "consumer stopped unexpectedly", err)
			return fmt.Errorf("%s: %w", c.name, err)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return ctx.Err()
}
