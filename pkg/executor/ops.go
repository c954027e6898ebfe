package executor

import "github.com/entrhq/flagpin/pkg/types"

// Op names one pre-shipped page-side operation. The agent dispatches on this
// tag; no source text is ever shipped to the page.
type Op string

const (
	OpWriteItem    Op = "write-item"    // OpWriteItem writes a localStorage/sessionStorage value.
	OpRemoveItem   Op = "remove-item"   // OpRemoveItem deletes a localStorage/sessionStorage value.
	OpSetCookie    Op = "set-cookie"    // OpSetCookie assigns document.cookie.
	OpRemoveCookie Op = "remove-cookie" // OpRemoveCookie assigns an already-expired cookie.
	OpPatchSDK     Op = "patch-sdk"     // OpPatchSDK installs or updates an SDK interceptor entry.
)

// ItemArgs are the arguments of write-item and remove-item.
type ItemArgs struct {
	Kind  types.StorageKind `json:"kind"`
	Key   string            `json:"key"`
	Value string            `json:"value,omitempty"`
}

// CookieArgs are the arguments of set-cookie and remove-cookie.
type CookieArgs struct {
	Key    string `json:"key"`
	Cookie string `json:"cookie"`
}

// RemoveResult is returned by the agent for remove-cookie. Removed is false
// when the cookie is still readable after the expired assignment.
type RemoveResult struct {
	Removed bool `json:"removed"`
}

// PatchArgs are the arguments of patch-sdk. Value is already coerced to the
// type the SDK method returns (see ParseFeatureValue). Remove drops the entry
// so the wrapped method falls through again.
type PatchArgs struct {
	FeatureName string            `json:"featureName"`
	FeatureType types.FeatureType `json:"featureType"`
	Value       interface{}       `json:"value,omitempty"`
	Remove      bool              `json:"remove,omitempty"`
}

// PatchResult is returned by the agent for patch-sdk.
type PatchResult struct {
	Installed        bool   `json:"installed"`
	AlreadyInstalled bool   `json:"alreadyInstalled"`
	Method           string `json:"method,omitempty"`
	Reason           string `json:"reason,omitempty"`
}
