package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
)

// Role names the resources a process depends on. The worker consumes payment
// captures; the outbox publisher writes order events.
type Role int

const (
	RoleConsumer Role = iota
	RolePublisher
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	topics    []string
	subs      []string
}

var errProjectIDRequired = errors.New("gcp project id is required")

// NewClient dials Pub/Sub and verifies that every topic and subscription the
// role needs already exists. Provisioning is left to infrastructure.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	c := &Client{projectID: projectID, cfg: cfg}
	switch role {
	case RoleConsumer:
		c.subs = nonBlank(cfg.PaymentsSubscription)
		if len(c.subs) == 0 {
			return nil, errors.New("payments subscription is required")
		}
	case RolePublisher:
		c.topics = nonBlank(cfg.OrdersTopic)
		if len(c.topics) == 0 {
			return nil, errors.New("orders topic is required")
		}
	default:
		return nil, fmt.Errorf("unknown pubsub role %d", role)
	}

	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c.client = psClient

	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topics":        c.topics,
			"subscriptions": c.subs,
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func nonBlank(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Ping confirms the role's topics and subscriptions are still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	for _, name := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.resourceName("topics", name)})
		if lookupErr := describeLookup("topic", name, err); lookupErr != nil {
			return lookupErr
		}
	}
	for _, name := range c.subs {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.resourceName("subscriptions", name)})
		if lookupErr := describeLookup("subscription", name, err); lookupErr != nil {
			return lookupErr
		}
	}
	return nil
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// PaymentsSubscription returns the subscriber for payment-captured notifications.
func (c *Client) PaymentsSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Subscriber(c.resourceName("subscriptions", c.cfg.PaymentsSubscription))
}

// Publisher returns a publisher for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.client.Publisher(c.resourceName("topics", name))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short id into projects/<project>/<kind>/<id>. Full
// resource names pass through unchanged.
func (c *Client) resourceName(kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" || c == nil {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.projectID, kind, n)
}
