package types

import (
	"fmt"
	"strings"
	"time"
)

// StorageKind identifies where in the page an override lives.
type StorageKind string

const (
	KindLocalStorage   StorageKind = "localStorage"   // KindLocalStorage is the page's persistent key-value storage.
	KindSessionStorage StorageKind = "sessionStorage" // KindSessionStorage is the tab-scoped key-value storage.
	KindCookie         StorageKind = "cookie"         // KindCookie is a document cookie.
)

// Valid reports whether k is one of the known storage kinds.
func (k StorageKind) Valid() bool {
	switch k {
	case KindLocalStorage, KindSessionStorage, KindCookie:
		return true
	}
	return false
}

// ParseStorageKind accepts the canonical names plus a few CLI-friendly aliases.
func ParseStorageKind(s string) (StorageKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "localstorage", "local", "persistent", "persistent-storage":
		return KindLocalStorage, nil
	case "sessionstorage", "session", "session-storage":
		return KindSessionStorage, nil
	case "cookie", "cookies":
		return KindCookie, nil
	}
	return "", fmt.Errorf("unknown storage kind %q (want localStorage, sessionStorage or cookie)", s)
}

// FeatureType names the kind of SDK evaluation an override intercepts.
type FeatureType string

const (
	FeatureGate       FeatureType = "gate"
	FeatureConfig     FeatureType = "config"
	FeatureExperiment FeatureType = "experiment"
)

// Valid reports whether t is one of the known feature types.
func (t FeatureType) Valid() bool {
	switch t {
	case FeatureGate, FeatureConfig, FeatureExperiment:
		return true
	}
	return false
}

// defaultDomain stands in for an empty domain when deriving ids.
const defaultDomain = "default"

// Override is a single forced value for one storage kind, key and domain,
// optionally tied to a named flag, config or experiment.
type Override struct {
	ID          string      `json:"id"`
	Kind        StorageKind `json:"kind"`
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Domain      string      `json:"domain,omitempty"`
	Path        string      `json:"path,omitempty"`
	FeatureName string      `json:"featureName,omitempty"`
	FeatureType FeatureType `json:"featureType,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// DerivedID returns the dedupe key for (kind, key, domain).
func DerivedID(kind StorageKind, key, domain string) string {
	if domain == "" {
		domain = defaultDomain
	}
	return fmt.Sprintf("%s:%s:%s", kind, key, domain)
}

// DerivedID returns the dedupe key computed from the override's fields,
// ignoring any explicitly supplied ID.
func (o Override) DerivedID() string {
	return DerivedID(o.Kind, o.Key, o.Domain)
}

// Intercepts reports whether the override should also patch the page SDK.
func (o Override) Intercepts() bool {
	return o.FeatureName != "" && o.FeatureType != ""
}

// Normalize fills in the ID and creation time when they are missing.
func (o Override) Normalize(now time.Time) Override {
	if o.ID == "" {
		o.ID = o.DerivedID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	return o
}

// Validate checks the fields every override needs.
func (o Override) Validate() error {
	if !o.Kind.Valid() {
		return fmt.Errorf("invalid storage kind %q", o.Kind)
	}
	if strings.TrimSpace(o.Key) == "" {
		return fmt.Errorf("override key is required")
	}
	if o.Kind != KindCookie && (o.Domain != "" || o.Path != "") {
		return fmt.Errorf("domain and path only apply to cookie overrides")
	}
	if o.FeatureType != "" && !o.FeatureType.Valid() {
		return fmt.Errorf("invalid feature type %q (want gate, config or experiment)", o.FeatureType)
	}
	if (o.FeatureName == "") != (o.FeatureType == "") {
		return fmt.Errorf("featureName and featureType must be set together")
	}
	return nil
}
