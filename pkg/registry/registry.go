// Package registry holds the durable list of active overrides.
//
// The persisted list is the single source of truth for what should be applied.
// Reconciliation always flows registry -> page: a page reload or an agent
// reinstall is repaired with Reapply, never by reading state back from the
// page.
//
// All mutations are serialized behind one mutex, so two concurrent Create or
// Remove calls cannot overwrite each other's result.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/flagpin/pkg/failure"
	"github.com/entrhq/flagpin/pkg/logging"
	"github.com/entrhq/flagpin/pkg/metrics"
	"github.com/entrhq/flagpin/pkg/types"
)

// ErrNotFound is returned when no override matches an id.
var ErrNotFound = errors.New("registry: override not found")

// PageExecutor applies and removes overrides inside a page.
type PageExecutor interface {
	Apply(ctx context.Context, tabID string, o types.Override) types.Result
	Remove(ctx context.Context, tabID string, o types.Override) types.Result
}

// Created describes a successful Create.
type Created struct {
	Override    types.Override
	Replaced    bool
	Intercepted bool
	Detail      string
}

// Removed describes a Remove. PageErr is set when the page-side removal
// failed; the registry entry is gone regardless.
type Removed struct {
	Override types.Override
	PageErr  error
}

// Cleared describes a ClearAll.
type Cleared struct {
	Removed  int
	PageErrs map[string]error
}

// Reapplied is the per-override outcome of Reapply.
type Reapplied struct {
	Override types.Override
	Result   types.Result
}

// Registry is the durable, de-duplicated collection of active overrides.
type Registry struct {
	store   Store
	exec    PageExecutor
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	now func() time.Time
}

// New creates a registry backed by store that applies changes through exec.
func New(store Store, exec PageExecutor, logger *logging.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		store:   store,
		exec:    exec,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// List returns the persisted overrides.
func (r *Registry) List(ctx context.Context) ([]types.Override, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Get looks up an override by exact id or by derived id.
func (r *Registry) Get(ctx context.Context, id string) (types.Override, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return types.Override{}, err
	}
	if i := indexOf(list, id); i >= 0 {
		return list[i], nil
	}
	return types.Override{}, ErrNotFound
}

// Create applies o to the page first and, only if that succeeds, replaces any
// entry with the same id and persists the list.
func (r *Registry) Create(ctx context.Context, tabID string, o types.Override) (Created, error) {
	const op = "registry.create"

	o = o.Normalize(r.now())
	if err := o.Validate(); err != nil {
		return Created{}, failure.Wrap(failure.KindInvalidInput, op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.exec.Apply(ctx, tabID, o)
	if !res.Success {
		r.logger.Warnf("create %s failed on tab %s: %v", o.ID, tabID, res.Err)
		if res.Err == nil {
			return Created{}, failure.New(failure.KindExecutionFailed, op, "page rejected the override")
		}
		return Created{}, res.Err
	}

	list, err := r.load(ctx)
	if err != nil {
		return Created{}, err
	}

	replaced := false
	next := make([]types.Override, 0, len(list)+1)
	for _, existing := range list {
		if existing.ID == o.ID {
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	next = append(next, o)

	if err := r.save(ctx, op, next); err != nil {
		return Created{}, err
	}

	r.logger.Infof("created %s (replaced=%t)", o.ID, replaced)
	return Created{Override: o, Replaced: replaced, Intercepted: res.Intercepted, Detail: res.Detail}, nil
}

// Remove deletes the override matching id. The page-side removal is
// best-effort: its failure is reported in Removed.PageErr but never blocks the
// registry update. An empty tabID skips the page entirely.
func (r *Registry) Remove(ctx context.Context, tabID, id string) (Removed, error) {
	const op = "registry.remove"

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return Removed{}, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return Removed{}, failure.Wrap(failure.KindNotFound, op, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	target := list[i]

	out := Removed{Override: target}
	if tabID != "" {
		out.PageErr = r.removeFromPage(ctx, tabID, target)
	}

	next := append(append([]types.Override{}, list[:i]...), list[i+1:]...)
	if err := r.save(ctx, op, next); err != nil {
		return out, err
	}

	r.logger.Infof("removed %s", target.ID)
	return out, nil
}

// ClearAll attempts page removal for every entry independently and then
// persists an empty list, whatever the page said.
func (r *Registry) ClearAll(ctx context.Context, tabID string) (Cleared, error) {
	const op = "registry.clearAll"

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		// An unreadable list is still cleared.
		r.logger.Warnf("clear: could not load overrides: %v", err)
		list = nil
	}

	out := Cleared{Removed: len(list), PageErrs: map[string]error{}}
	if tabID != "" {
		for _, o := range list {
			if perr := r.removeFromPage(ctx, tabID, o); perr != nil {
				out.PageErrs[o.ID] = perr
			}
		}
	}

	if err := r.save(ctx, op, []types.Override{}); err != nil {
		return out, err
	}

	r.logger.Infof("cleared %d override(s), %d page failure(s)", out.Removed, len(out.PageErrs))
	return out, nil
}

// Reapply pushes every persisted override to the page behind tabID. It is the
// recovery path after a reload or agent reinstall; the registry is not changed.
func (r *Registry) Reapply(ctx context.Context, tabID string) ([]Reapplied, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Reapplied, 0, len(list))
	for _, o := range list {
		res := r.exec.Apply(ctx, tabID, o)
		if !res.Success {
			r.logger.Warnf("reapply %s failed: %v", o.ID, res.Err)
		}
		out = append(out, Reapplied{Override: o, Result: res})
	}
	return out, nil
}

// removeFromPage runs the executor and converts a failure or panic into an error.
func (r *Registry) removeFromPage(ctx context.Context, tabID string, o types.Override) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = failure.Newf(failure.KindExecutionFailed, "registry.pageRemove", "page removal panicked: %v", rec)
		}
		if err != nil {
			r.logger.Warnf("page removal of %s failed: %v", o.ID, err)
		}
	}()

	res := r.exec.Remove(ctx, tabID, o)
	if res.Success {
		return nil
	}
	if res.Err == nil {
		return failure.New(failure.KindExecutionFailed, "registry.pageRemove", "page removal failed")
	}
	return res.Err
}

func (r *Registry) load(ctx context.Context) ([]types.Override, error) {
	list, err := r.store.Load(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.KindPersistenceFailed, "registry.load", err)
	}
	if list == nil {
		list = []types.Override{}
	}
	return list, nil
}

func (r *Registry) save(ctx context.Context, op string, list []types.Override) error {
	if err := r.store.Save(ctx, list); err != nil {
		r.logger.Errorf("%s: persist failed: %v", op, err)
		return failure.Wrap(failure.KindPersistenceFailed, op, err)
	}
	r.metrics.SetActiveOverrides(len(list))
	return nil
}

// indexOf finds id by exact match first, then by derived id.
func indexOf(list []types.Override, id string) int {
	for i, o := range list {
		if o.ID == id {
			return i
		}
	}
	for i, o := range list {
		if o.DerivedID() == id {
			return i
		}
	}
	return -1
}
