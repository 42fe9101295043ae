package enums

import (
	"fmt"
	"strings"
)

// DeliveryMode controls whether a delivery fee applies and whether an address is required.
type DeliveryMode string

const (
	DeliveryModeDelivery DeliveryMode = "DELIVERY"
	DeliveryModePickup   DeliveryMode = "PICKUP"
)

var validDeliveryModes = []DeliveryMode{
	DeliveryModeDelivery,
	DeliveryModePickup,
}

// String implements fmt.Stringer.
func (m DeliveryMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known DeliveryMode.
func (m DeliveryMode) IsValid() bool {
	for _, candidate := range validDeliveryModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseDeliveryMode converts raw input into a DeliveryMode.
func ParseDeliveryMode(value string) (DeliveryMode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validDeliveryModes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery mode %q", value)
}
