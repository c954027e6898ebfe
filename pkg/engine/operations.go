package engine

import (
	"context"
	"strings"

	"github.com/entrhq/flagpin/pkg/failure"
	"github.com/entrhq/flagpin/pkg/types"
)

// ListActiveOverrides returns the persisted overrides. It needs no tab.
func (e *Engine) ListActiveOverrides(ctx context.Context) (out ListResult) {
	defer e.guard("engine.list", &out.Result)

	list, err := e.registry.List(ctx)
	if err != nil {
		return ListResult{Result: failed(err)}
	}
	return ListResult{Result: ok(), Overrides: list}
}

// CreateOverride applies in to the tab and records it.
func (e *Engine) CreateOverride(ctx context.Context, tabID string, in Input) (out CreateResult) {
	defer e.guard("engine.create", &out.Result)

	o, err := in.override()
	if err != nil {
		return CreateResult{Result: failed(err)}
	}
	if _, err := e.target(tabID); err != nil {
		return CreateResult{Result: failed(err)}
	}

	created, err := e.registry.Create(ctx, tabID, o)
	if err != nil {
		return CreateResult{Result: failed(err)}
	}
	return CreateResult{
		Result:      ok(),
		Override:    created.Override,
		Replaced:    created.Replaced,
		Intercepted: created.Intercepted,
		Detail:      created.Detail,
	}
}

// RemoveOverride deletes the override matching id. When the tab cannot be
// injected the page is left alone and only the registry entry is removed.
func (e *Engine) RemoveOverride(ctx context.Context, tabID, id string) (out RemoveResult) {
	defer e.guard("engine.remove", &out.Result)

	pageTab := e.pageTab(tabID)
	removed, err := e.registry.Remove(ctx, pageTab, id)
	if err != nil {
		return RemoveResult{Result: failed(err)}
	}

	out = RemoveResult{Result: ok(), Override: removed.Override}
	if removed.PageErr != nil {
		out.PageError = failure.Reason(removed.PageErr)
	}
	return out
}

// ClearAllOverrides removes every override. The registry always ends up empty;
// page failures are reported per id.
func (e *Engine) ClearAllOverrides(ctx context.Context, tabID string) (out ClearResult) {
	defer e.guard("engine.clear", &out.Result)

	cleared, err := e.registry.ClearAll(ctx, e.pageTab(tabID))
	out = ClearResult{Result: ok(), Removed: cleared.Removed}
	if err != nil {
		out.Result = failed(err)
	}
	if len(cleared.PageErrs) > 0 {
		out.PageErrors = make(map[string]string, len(cleared.PageErrs))
		for id, perr := range cleared.PageErrs {
			out.PageErrors[id] = failure.Reason(perr)
		}
	}
	return out
}

// CanInject reports whether the tab may be modified. A denied tab is a
// successful call with Target.CanInject false.
func (e *Engine) CanInject(tabID string) (out TargetResult) {
	defer e.guard("engine.canInject", &out.Result)

	t, _ := e.target(tabID)
	return TargetResult{Result: ok(), Target: t}
}

// CheckChannel probes the page agent of the tab, installing it if needed.
func (e *Engine) CheckChannel(ctx context.Context, tabID string) (out ChannelResult) {
	defer e.guard("engine.checkChannel", &out.Result)

	if _, err := e.target(tabID); err != nil {
		return ChannelResult{Result: failed(err)}
	}

	status := e.channel.EnsureReady(ctx, tabID)
	if !status.Ready() {
		err := failure.Newf(failure.KindChannelUnreachable, "engine.checkChannel", "page agent unreachable: %s", status.Reason)
		return ChannelResult{Result: failed(err), Status: status}
	}
	return ChannelResult{Result: ok(), Status: status}
}

// ReadValue returns the current page value of kind/key.
func (e *Engine) ReadValue(ctx context.Context, tabID, kind, key string) (out ValueResult) {
	defer e.guard("engine.read", &out.Result)

	k, err := types.ParseStorageKind(kind)
	if err != nil {
		return ValueResult{Result: failed(failure.Wrap(failure.KindInvalidInput, "engine.read", err))}
	}
	if _, err := e.target(tabID); err != nil {
		return ValueResult{Result: failed(err)}
	}

	value, err := e.executor.Read(ctx, tabID, k, key)
	if err != nil {
		return ValueResult{Result: failed(err)}
	}
	return ValueResult{Result: ok(), Value: value}
}

// WriteValue stores a value in the page without registering an override.
func (e *Engine) WriteValue(ctx context.Context, tabID string, in Input) (out Result) {
	defer e.guard("engine.write", &out)

	o, err := in.override()
	if err != nil {
		return failed(err)
	}
	if _, err := e.target(tabID); err != nil {
		return failed(err)
	}
	if err := e.executor.Write(ctx, tabID, o); err != nil {
		return failed(err)
	}
	return ok()
}

// UserInfo returns the SDK user/session descriptor of the tab.
func (e *Engine) UserInfo(ctx context.Context, tabID string) (out UserInfoResult) {
	defer e.guard("engine.userInfo", &out.Result)

	if _, err := e.target(tabID); err != nil {
		return UserInfoResult{Result: failed(err)}
	}
	info, err := e.executor.UserInfo(ctx, tabID)
	if err != nil {
		return UserInfoResult{Result: failed(err)}
	}
	return UserInfoResult{Result: ok(), Info: info}
}

// SDKStatus reports whether an evaluation SDK is present in the tab.
func (e *Engine) SDKStatus(ctx context.Context, tabID string) (out SDKResult) {
	defer e.guard("engine.sdkStatus", &out.Result)

	if _, err := e.target(tabID); err != nil {
		return SDKResult{Result: failed(err)}
	}
	status, err := e.executor.SDKStatus(ctx, tabID)
	if err != nil {
		return SDKResult{Result: failed(err)}
	}
	return SDKResult{Result: ok(), Status: status}
}

// Reapply pushes every persisted override to the tab, typically after a
// reload.
func (e *Engine) Reapply(ctx context.Context, tabID string) (out ReapplyResult) {
	defer e.guard("engine.reapply", &out.Result)

	if _, err := e.target(tabID); err != nil {
		return ReapplyResult{Result: failed(err)}
	}

	results, err := e.registry.Reapply(ctx, tabID)
	if err != nil {
		return ReapplyResult{Result: failed(err)}
	}

	out = ReapplyResult{Result: ok(), Entries: make([]ReapplyEntry, 0, len(results))}
	for _, r := range results {
		entry := ReapplyEntry{ID: r.Override.ID, OK: r.Result.Success, Intercepted: r.Result.Intercepted}
		if !r.Result.Success {
			entry.Error = failure.Reason(r.Result.Err)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}

// pageTab returns tabID when the page may be touched, or "" so the registry
// skips page-side work.
func (e *Engine) pageTab(tabID string) string {
	if tabID == "" {
		return ""
	}
	if _, err := e.target(tabID); err != nil {
		e.logger.Infof("skipping page cleanup on tab %s: %s", tabID, failure.Reason(err))
		return ""
	}
	return tabID
}

// override converts user input into a validated Override.
func (in Input) override() (types.Override, error) {
	const op = "engine.input"

	kind, err := types.ParseStorageKind(in.Kind)
	if err != nil {
		return types.Override{}, failure.Wrap(failure.KindInvalidInput, op, err)
	}
	o := types.Override{
		ID:          strings.TrimSpace(in.ID),
		Kind:        kind,
		Key:         strings.TrimSpace(in.Key),
		Value:       in.Value,
		Domain:      strings.TrimSpace(in.Domain),
		Path:        strings.TrimSpace(in.Path),
		FeatureName: strings.TrimSpace(in.FeatureName),
		FeatureType: types.FeatureType(strings.ToLower(strings.TrimSpace(in.FeatureType))),
	}
	if err := o.Validate(); err != nil {
		return types.Override{}, failure.Wrap(failure.KindInvalidInput, op, err)
	}
	return o, nil
}
