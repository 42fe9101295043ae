package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// stopper is implemented by publishers that buffer in the background and must
// flush on shutdown.
type stopper interface {
	Stop()
}

// publisherPool keeps one long-lived publisher per topic so batching and
// ordering-key state carry over between batches.
type publisherPool struct {
	factory publisherFactory
	byTopic map[string]publisher
}

func newPublisherPool(factory publisherFactory) *publisherPool {
	return &publisherPool{factory: factory, byTopic: map[string]publisher{}}
}

// get returns nil when the factory cannot build a publisher for topic; the
// miss is not cached.
func (p *publisherPool) get(topic string) publisher {
	if pub, ok := p.byTopic[topic]; ok {
		return pub
	}
	pub := p.factory(topic)
	if pub != nil {
		p.byTopic[topic] = pub
	}
	return pub
}

func (p *publisherPool) stop() {
	for topic, pub := range p.byTopic {
		if st, ok := pub.(stopper); ok {
			st.Stop()
		}
		delete(p.byTopic, topic)
	}
}

// newGCPPublisher turns on message ordering so events sharing an ordering key
// reach subscribers in the order they were written.
func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	p.EnableMessageOrdering = true
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &gcpPublishResult{
		result:      p.Publisher.Publish(ctx, msg),
		publisher:   p.Publisher,
		orderingKey: msg.OrderingKey,
	}
}

type gcpPublishResult struct {
	result      *gcppubsub.PublishResult
	publisher   *gcppubsub.Publisher
	orderingKey string
}

// Get waits for the server ack. A failed ordered publish pauses its key until
// ResumePublish, which is called here so the retry can go out.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r.result == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.result.Get(ctx)
	if err != nil && r.orderingKey != "" {
		r.publisher.ResumePublish(r.orderingKey)
	}
	return id, err
}
