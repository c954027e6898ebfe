package engine

import (
	"github.com/entrhq/flagpin/pkg/capability"
	"github.com/entrhq/flagpin/pkg/channel"
	"github.com/entrhq/flagpin/pkg/failure"
	"github.com/entrhq/flagpin/pkg/protocol"
	"github.com/entrhq/flagpin/pkg/types"
)

// Result is the outcome shared by every engine call. When OK is false, Error
// holds a reason ready for display and Kind names where the failure came from.
type Result struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Kind     failure.Kind     `json:"kind,omitempty"`
	Severity failure.Severity `json:"severity,omitempty"`
	Hint     string           `json:"hint,omitempty"`
}

func ok() Result {
	return Result{OK: true}
}

func failed(err error) Result {
	c := failure.Classify(err)
	reason := failure.Reason(err)
	if reason == "" {
		reason = "unknown error"
	}
	return Result{
		Error:    reason,
		Kind:     c.Kind,
		Severity: c.Severity,
		Hint:     c.Hint,
	}
}

// Input is a create request as typed by a user. Kind accepts aliases such as
// "persistent-storage" or "session".
type Input struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	Domain      string `json:"domain,omitempty"`
	Path        string `json:"path,omitempty"`
	FeatureName string `json:"featureName,omitempty"`
	FeatureType string `json:"featureType,omitempty"`
}

// ListResult is returned by ListActiveOverrides.
type ListResult struct {
	Result
	Overrides []types.Override `json:"overrides"`
}

// CreateResult is returned by CreateOverride.
type CreateResult struct {
	Result
	Override    types.Override `json:"override"`
	Replaced    bool           `json:"replaced"`
	Intercepted bool           `json:"intercepted"`
	Detail      string         `json:"detail,omitempty"`
}

// RemoveResult is returned by RemoveOverride. PageError is set when the page
// could not be cleaned up; the registry entry is removed regardless.
type RemoveResult struct {
	Result
	Override  types.Override `json:"override"`
	PageError string         `json:"pageError,omitempty"`
}

// ClearResult is returned by ClearAllOverrides.
type ClearResult struct {
	Result
	Removed    int               `json:"removed"`
	PageErrors map[string]string `json:"pageErrors,omitempty"`
}

// TargetResult is returned by CanInject.
type TargetResult struct {
	Result
	Target capability.Target `json:"target"`
}

// ChannelResult is returned by CheckChannel.
type ChannelResult struct {
	Result
	Status channel.Status `json:"status"`
}

// ValueResult is returned by ReadValue. Value is nil when the key is absent.
type ValueResult struct {
	Result
	Value *string `json:"value"`
}

// UserInfoResult is returned by UserInfo.
type UserInfoResult struct {
	Result
	Info protocol.UserInfo `json:"info"`
}

// SDKResult is returned by SDKStatus.
type SDKResult struct {
	Result
	Status protocol.SDKStatus `json:"status"`
}

// ReapplyEntry is the outcome for one override in Reapply.
type ReapplyEntry struct {
	ID          string `json:"id"`
	OK          bool   `json:"ok"`
	Intercepted bool   `json:"intercepted"`
	Error       string `json:"error,omitempty"`
}

// ReapplyResult is returned by Reapply. OK is true when the pass ran, even if
// individual entries failed.
type ReapplyResult struct {
	Result
	Entries []ReapplyEntry `json:"entries"`
}
