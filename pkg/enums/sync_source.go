package enums

import "fmt"

// SyncSource identifies one of the two external portals the syncer mirrors.
type SyncSource string

const (
	SyncSourcePurchases SyncSource = "purchase_portal"
	SyncSourceSales     SyncSource = "sales_portal"
)

var validSyncSources = []SyncSource{
	SyncSourcePurchases,
	SyncSourceSales,
}

// IsValid reports whether the value matches the canonical sync source enum.
func (s SyncSource) IsValid() bool {
	for _, candidate := range validSyncSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncSource converts raw input into SyncSource. It also accepts the
// short aliases used in admin route paths.
func ParseSyncSource(value string) (SyncSource, error) {
	switch value {
	case "purchases":
		return SyncSourcePurchases, nil
	case "sales":
		return SyncSourceSales, nil
	}
	for _, candidate := range validSyncSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync source %q", value)
}
