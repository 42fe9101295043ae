package instance

import (
	"os"

	"github.com/angelmondragon/marketplace-checkout/pkg/env"
)

// ID names this process in logs. MARKETPLACE_INSTANCE_ID wins, then the
// platform dyno name, then the hostname.
func ID(service string) string {
	if id := env.First("", "MARKETPLACE_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return service + "-0"
}
