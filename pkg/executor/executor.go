// Package executor turns one override intent into page-side operations.
//
// Every operation goes through the page channel: the executor first makes sure
// the agent answers, then sends named operations (see Op) and reads values
// back. It never falls back to a bare call when the channel is not ready.
package executor

import (
	"context"
	"fmt"

	"github.com/entrhq/flagpin/pkg/channel"
	"github.com/entrhq/flagpin/pkg/failure"
	"github.com/entrhq/flagpin/pkg/logging"
	"github.com/entrhq/flagpin/pkg/metrics"
	"github.com/entrhq/flagpin/pkg/protocol"
	"github.com/entrhq/flagpin/pkg/types"
)

// Channel is the subset of *channel.Channel the executor uses.
type Channel interface {
	EnsureReady(ctx context.Context, tabID string) channel.Status
	Send(ctx context.Context, tabID string, action protocol.Action, payload interface{}) protocol.Response
}

// Executor runs override operations inside pages.
type Executor struct {
	channel Channel
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New creates an executor on top of ch.
func New(ch Channel, logger *logging.Logger, m *metrics.Metrics) *Executor {
	return &Executor{channel: ch, logger: logger, metrics: m}
}

// Apply writes o into the page behind tabID and, when o names a feature,
// installs an SDK interceptor for it.
func (e *Executor) Apply(ctx context.Context, tabID string, o types.Override) types.Result {
	const op = "executor.apply"

	if err := validate(o); err != nil {
		return types.Failed(failure.Wrap(failure.KindInvalidInput, op, err))
	}
	if err := e.ready(ctx, tabID, op); err != nil {
		return types.Failed(err)
	}

	switch o.Kind {
	case types.KindLocalStorage, types.KindSessionStorage:
		if err := e.writeItem(ctx, tabID, o); err != nil {
			return types.Failed(err)
		}
	case types.KindCookie:
		args := CookieArgs{Key: o.Key, Cookie: BuildCookie(o)}
		if err := e.run(ctx, tabID, OpSetCookie, args, nil); err != nil {
			return types.Failed(err)
		}
	}

	result := types.Result{Success: true}
	if o.Intercepts() {
		result.Intercepted, result.Detail = e.intercept(ctx, tabID, o)
	}
	e.logger.Infof("applied %s to tab %s (intercepted=%t)", o.DerivedID(), tabID, result.Intercepted)
	return result
}

// Remove deletes o from the page behind tabID and drops its interceptor entry.
func (e *Executor) Remove(ctx context.Context, tabID string, o types.Override) types.Result {
	const op = "executor.remove"

	if !o.Kind.Valid() {
		return types.Failed(failure.Newf(failure.KindInvalidInput, op, "invalid storage kind %q", o.Kind))
	}
	if err := e.ready(ctx, tabID, op); err != nil {
		return types.Failed(err)
	}

	var err error
	switch o.Kind {
	case types.KindLocalStorage, types.KindSessionStorage:
		err = e.run(ctx, tabID, OpRemoveItem, ItemArgs{Kind: o.Kind, Key: o.Key}, nil)
	case types.KindCookie:
		var reply RemoveResult
		err = e.run(ctx, tabID, OpRemoveCookie, CookieArgs{Key: o.Key, Cookie: BuildExpiredCookie(o)}, &reply)
		if err == nil && !reply.Removed {
			err = failure.Newf(failure.KindExecutionFailed, op, "cookie %q is still set after removal; check its domain and path", o.Key)
		}
	}
	if err != nil {
		return types.Failed(err)
	}

	if o.Intercepts() {
		args := PatchArgs{FeatureName: o.FeatureName, FeatureType: o.FeatureType, Remove: true}
		if perr := e.run(ctx, tabID, OpPatchSDK, args, nil); perr != nil {
			e.logger.Warnf("could not drop interceptor for %s: %v", o.FeatureName, perr)
		}
	}

	e.logger.Infof("removed %s from tab %s", o.DerivedID(), tabID)
	return types.Result{Success: true}
}

// Read returns the current page value for kind/key, or nil when absent.
func (e *Executor) Read(ctx context.Context, tabID string, kind types.StorageKind, key string) (*string, error) {
	const op = "executor.read"

	if !kind.Valid() {
		return nil, failure.Newf(failure.KindInvalidInput, op, "invalid storage kind %q", kind)
	}
	if err := e.ready(ctx, tabID, op); err != nil {
		return nil, err
	}
	return e.read(ctx, tabID, kind, key)
}

// Write stores a value without registering it as an override.
func (e *Executor) Write(ctx context.Context, tabID string, o types.Override) error {
	const op = "executor.write"

	if err := validate(o); err != nil {
		return failure.Wrap(failure.KindInvalidInput, op, err)
	}
	if err := e.ready(ctx, tabID, op); err != nil {
		return err
	}

	payload := protocol.StorageWrite{Kind: o.Kind, Key: o.Key, Value: o.Value}
	if o.Kind == types.KindCookie {
		payload.Cookie = BuildCookie(o)
	}
	return e.send(ctx, tabID, string(protocol.ActionSetStorage), protocol.ActionSetStorage, payload, nil)
}

// UserInfo returns the SDK user/session descriptor of the page.
func (e *Executor) UserInfo(ctx context.Context, tabID string) (protocol.UserInfo, error) {
	const op = "executor.userInfo"

	var info protocol.UserInfo
	if err := e.ready(ctx, tabID, op); err != nil {
		return info, err
	}
	err := e.send(ctx, tabID, string(protocol.ActionGetUserInfo), protocol.ActionGetUserInfo, nil, &info)
	return info, err
}

// SDKStatus reports whether a flag-evaluation SDK is present in the page.
func (e *Executor) SDKStatus(ctx context.Context, tabID string) (protocol.SDKStatus, error) {
	const op = "executor.sdkStatus"

	var status protocol.SDKStatus
	if err := e.ready(ctx, tabID, op); err != nil {
		return status, err
	}
	err := e.send(ctx, tabID, string(protocol.ActionCheckSDKActive), protocol.ActionCheckSDKActive, nil, &status)
	return status, err
}

func (e *Executor) writeItem(ctx context.Context, tabID string, o types.Override) error {
	if err := e.run(ctx, tabID, OpWriteItem, ItemArgs{Kind: o.Kind, Key: o.Key, Value: o.Value}, nil); err != nil {
		return err
	}

	got, err := e.read(ctx, tabID, o.Kind, o.Key)
	if err != nil {
		return err
	}
	if got == nil || *got != o.Value {
		return failure.Newf(failure.KindExecutionFailed, string(OpWriteItem),
			"verification failed: %s %q did not hold the written value", o.Kind, o.Key)
	}
	return nil
}

// intercept installs the SDK interceptor when an SDK is present. A missing SDK
// is not an error: the value still lives in page storage.
func (e *Executor) intercept(ctx context.Context, tabID string, o types.Override) (bool, string) {
	var status protocol.SDKStatus
	if err := e.send(ctx, tabID, string(protocol.ActionCheckSDKActive), protocol.ActionCheckSDKActive, nil, &status); err != nil {
		e.logger.Warnf("sdk check failed on tab %s: %v", tabID, err)
		return false, "could not check for the evaluation SDK: " + failure.Reason(err)
	}
	if !status.Present {
		return false, "evaluation SDK not found; value written to storage only"
	}

	args := PatchArgs{
		FeatureName: o.FeatureName,
		FeatureType: o.FeatureType,
		Value:       ParseFeatureValue(o.FeatureType, o.Value),
	}
	var res PatchResult
	if err := e.run(ctx, tabID, OpPatchSDK, args, &res); err != nil {
		e.logger.Warnf("sdk patch failed for %s: %v", o.FeatureName, err)
		return false, "interceptor not installed: " + failure.Reason(err)
	}
	if !res.Installed {
		return false, "interceptor not installed: " + res.Reason
	}
	return true, fmt.Sprintf("%s intercepted via %s", o.FeatureName, res.Method)
}

func (e *Executor) read(ctx context.Context, tabID string, kind types.StorageKind, key string) (*string, error) {
	var value protocol.StorageValue
	err := e.send(ctx, tabID, string(protocol.ActionGetStorage), protocol.ActionGetStorage,
		protocol.StorageKey{Kind: kind, Key: key}, &value)
	if err != nil {
		return nil, err
	}
	return value.Value, nil
}

func (e *Executor) ready(ctx context.Context, tabID, op string) error {
	status := e.channel.EnsureReady(ctx, tabID)
	if status.Ready() {
		return nil
	}
	return failure.Newf(failure.KindChannelUnreachable, op, "page agent unreachable: %s", status.Reason)
}

func (e *Executor) run(ctx context.Context, tabID string, op Op, args interface{}, out interface{}) error {
	return e.send(ctx, tabID, string(op), protocol.ActionRunOperation, protocol.Operation{Op: string(op), Args: args}, out)
}

func (e *Executor) send(ctx context.Context, tabID, op string, action protocol.Action, payload, out interface{}) error {
	resp := e.channel.Send(ctx, tabID, action, payload)
	e.metrics.ObserveOperation(op, resp.Success)
	if !resp.Success {
		return failure.New(failure.KindExecutionFailed, op, resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return failure.Wrap(failure.KindExecutionFailed, op, err)
	}
	return nil
}

func validate(o types.Override) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Kind == types.KindCookie {
		return ValidateCookie(o)
	}
	return nil
}
