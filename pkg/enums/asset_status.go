package enums

import "fmt"

// AssetStatus maps to the asset_status_enum enum in Postgres.
type AssetStatus string

const (
	AssetStatusActive AssetStatus = "active"
	AssetStatusSeized AssetStatus = "seized"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusActive,
	AssetStatusSeized,
}

// String implements fmt.Stringer.
func (s AssetStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical asset status enum.
func (s AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssetStatus converts raw input into an AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
