// Package engine is the collaborator-facing surface of the override engine.
//
// Every method gates on the capability checker before touching a page and
// returns a structured result. No method returns an error or panics: failures
// are reported in the embedded Result with their kind and a display hint.
package engine

import (
	"fmt"

	"github.com/entrhq/flagpin/pkg/browser"
	"github.com/entrhq/flagpin/pkg/capability"
	"github.com/entrhq/flagpin/pkg/channel"
	"github.com/entrhq/flagpin/pkg/config"
	"github.com/entrhq/flagpin/pkg/executor"
	"github.com/entrhq/flagpin/pkg/failure"
	"github.com/entrhq/flagpin/pkg/logging"
	"github.com/entrhq/flagpin/pkg/metrics"
	"github.com/entrhq/flagpin/pkg/protocol"
	"github.com/entrhq/flagpin/pkg/registry"
)

// TabSource resolves a tab id to its current URL.
type TabSource interface {
	Tab(id string) (browser.TabInfo, error)
}

// Deps are the services the engine is built from. Each is constructed once
// by the caller and shared explicitly.
type Deps struct {
	Tabs     TabSource
	Checker  *capability.Checker
	Channel  *channel.Channel
	Executor *executor.Executor
	Registry *registry.Registry
	Logger   *logging.Logger
}

// Engine exposes the override operations.
type Engine struct {
	tabs     TabSource
	checker  *capability.Checker
	channel  *channel.Channel
	executor *executor.Executor
	registry *registry.Registry
	logger   *logging.Logger
}

// New creates an engine from explicit dependencies.
func New(d Deps) (*Engine, error) {
	switch {
	case d.Tabs == nil:
		return nil, fmt.Errorf("engine: tab source is required")
	case d.Checker == nil:
		return nil, fmt.Errorf("engine: capability checker is required")
	case d.Channel == nil:
		return nil, fmt.Errorf("engine: channel is required")
	case d.Executor == nil:
		return nil, fmt.Errorf("engine: executor is required")
	case d.Registry == nil:
		return nil, fmt.Errorf("engine: registry is required")
	}
	return &Engine{
		tabs:     d.Tabs,
		checker:  d.Checker,
		channel:  d.Channel,
		executor: d.Executor,
		registry: d.Registry,
		logger:   d.Logger,
	}, nil
}

// Build wires the full service graph from configuration: protocol sender,
// channel, executor, file-backed registry and capability checker.
func Build(cfg *config.Config, tabs TabSource, transport protocol.Transport, logger *logging.Logger, m *metrics.Metrics) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	checker, err := capability.NewChecker(cfg.Capability.DeniedHosts...)
	if err != nil {
		return nil, err
	}

	store, err := registry.NewFileStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	sender := protocol.NewSender(transport)
	ch := channel.New(sender, channel.Options{
		MaxAttempts: cfg.Channel.Attempts,
		RetryDelay:  cfg.Channel.RetryDelay,
		SettleDelay: cfg.Channel.SettleDelay,
	}, logger.With("channel"), m)
	exec := executor.New(ch, logger.With("executor"), m)
	reg := registry.New(store, exec, logger.With("registry"), m)

	return New(Deps{
		Tabs:     tabs,
		Checker:  checker,
		Channel:  ch,
		Executor: exec,
		Registry: reg,
		Logger:   logger,
	})
}

// target resolves tabID and applies the capability policy.
func (e *Engine) target(tabID string) (capability.Target, error) {
	if tabID == "" {
		t := e.checker.Describe("", "")
		return t, failure.New(failure.KindCapabilityDenied, "engine.target", t.Reason)
	}

	info, err := e.tabs.Tab(tabID)
	if err != nil {
		t := capability.Target{ID: tabID, Reason: capability.ReasonNoTarget}
		return t, failure.Wrap(failure.KindCapabilityDenied, "engine.target", err)
	}

	t := e.checker.Describe(info.ID, info.URL)
	if !t.CanInject {
		return t, failure.New(failure.KindCapabilityDenied, "engine.target", t.Reason)
	}
	return t, nil
}

// guard converts a panic in a public method into a failed Result.
func (e *Engine) guard(op string, res *Result) {
	if rec := recover(); rec != nil {
		e.logger.Errorf("%s panicked: %v", op, rec)
		*res = failed(failure.Newf(failure.KindUnknown, op, "internal error: %v", rec))
	}
}

// compile-time check that the browser session manager is a valid TabSource.
var _ TabSource = (*browser.SessionManager)(nil)
