package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "mkt-dev"}

	assert.Equal(t, "projects/mkt-dev/subscriptions/payments-captured", c.resourceName("subscriptions", " payments-captured "))
	assert.Equal(t, "projects/other/subscriptions/x", c.resourceName("subscriptions", "projects/other/subscriptions/x"))
	assert.Equal(t, "projects/mkt-dev/topics/orders", c.resourceName("topics", "orders"))
	assert.Equal(t, "", c.resourceName("topics", ""))

	var nilClient *Client
	assert.Equal(t, "", nilClient.resourceName("subscriptions", "payments"))
	assert.Nil(t, nilClient.Publisher("orders"))
	assert.Nil(t, nilClient.PaymentsSubscription())
	assert.NoError(t, nilClient.Close())
	assert.Error(t, nilClient.Ping(context.Background()))
}

func TestNewClientValidatesRoleResources(t *testing.T) {
	ctx := context.Background()
	gcp := config.GCPConfig{ProjectID: "mkt-dev"}

	_, err := NewClient(ctx, config.GCPConfig{ProjectID: " "}, config.PubSubConfig{}, RoleConsumer, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(ctx, gcp, config.PubSubConfig{OrdersTopic: "orders"}, RoleConsumer, nil)
	require.ErrorContains(t, err, "payments subscription")

	_, err = NewClient(ctx, gcp, config.PubSubConfig{PaymentsSubscription: "payments"}, RolePublisher, nil)
	require.ErrorContains(t, err, "orders topic")

	_, err = NewClient(ctx, gcp, config.PubSubConfig{}, Role(9), nil)
	require.ErrorContains(t, err, "unknown pubsub role")
}

func TestClientOptionsPrefersInlineJSON(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{}))
}

func TestNonBlank(t *testing.T) {
	assert.Empty(t, nonBlank("  ", ""))
	assert.Equal(t, []string{"payments"}, nonBlank(" payments "))
}
