package protocol

import "github.com/entrhq/flagpin/pkg/types"

// PingData is returned by a live agent.
type PingData struct {
	Pong    bool   `json:"pong"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// StorageKey addresses one value in page storage (GET_STORAGE).
type StorageKey struct {
	Kind types.StorageKind `json:"kind"`
	Key  string            `json:"key"`
}

// StorageWrite writes one value into page storage (SET_STORAGE). For cookies
// Cookie carries the full assignment string.
type StorageWrite struct {
	Kind   types.StorageKind `json:"kind"`
	Key    string            `json:"key"`
	Value  string            `json:"value"`
	Cookie string            `json:"cookie,omitempty"`
}

// StorageValue is returned by GET_STORAGE. Value is nil when the key is absent.
type StorageValue struct {
	Value *string `json:"value"`
}

// UserInfo describes the SDK user/session as seen by the page (GET_USER_INFO).
type UserInfo struct {
	SDKPresent bool                   `json:"sdkPresent"`
	User       map[string]interface{} `json:"user,omitempty"`
	StableID   string                 `json:"stableID,omitempty"`
	Origin     string                 `json:"origin"`
}

// SDKStatus is returned by CHECK_SDK_ACTIVE.
type SDKStatus struct {
	Present      bool     `json:"present"`
	Active       bool     `json:"active"`
	Methods      []string `json:"methods,omitempty"`
	Interceptors []string `json:"interceptors,omitempty"`
}

// Operation is the payload of RUN_OPERATION.
type Operation struct {
	Op   string      `json:"op"`
	Args interface{} `json:"args"`
}

// InstallData is returned by the installer for INSTALL_AGENT.
type InstallData struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
}
