package enums

import "fmt"

// PlatformFeeType describes how a vendor's platform fee is charged.
type PlatformFeeType string

const (
	PlatformFeeFixed      PlatformFeeType = "FIXED"
	PlatformFeePercentage PlatformFeeType = "PERCENTAGE"
)

var validPlatformFeeTypes = []PlatformFeeType{
	PlatformFeeFixed,
	PlatformFeePercentage,
}

func (p PlatformFeeType) String() string {
	return string(p)
}

func (p PlatformFeeType) IsValid() bool {
	for _, candidate := range validPlatformFeeTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePlatformFeeType(value string) (PlatformFeeType, error) {
	for _, candidate := range validPlatformFeeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform fee type %q", value)
}
