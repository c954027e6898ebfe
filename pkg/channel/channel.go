// Package channel keeps a best-effort, retryable request/response link to the
// agent running inside a page.
//
// The agent may not be loaded yet when the first request arrives, or it may
// have vanished after a navigation. EnsureReady probes the agent and, after
// the first failed probe, asks the installer to inject it exactly once before
// probing again. Readiness is never cached: every call re-probes, so a reload
// between two operations cannot leave a stale "ready" behind.
package channel

import (
	"context"
	"time"

	"github.com/entrhq/flagpin/pkg/logging"
	"github.com/entrhq/flagpin/pkg/metrics"
	"github.com/entrhq/flagpin/pkg/protocol"
)

// Default retry policy.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultSettleDelay = 300 * time.Millisecond
)

// Options tunes the probe loop.
type Options struct {
	// MaxAttempts bounds the number of probes per EnsureReady call.
	MaxAttempts int

	// RetryDelay is the pause between two probes.
	RetryDelay time.Duration

	// SettleDelay is the pause after an install request before probing again.
	SettleDelay time.Duration
}

// DefaultOptions returns the default retry policy.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		SettleDelay: DefaultSettleDelay,
	}
}

// Sender is the subset of protocol.Sender the channel needs.
type Sender interface {
	Send(ctx context.Context, tabID string, action protocol.Action, payload interface{}) protocol.Response
}

// Channel is the link between the engine and page agents.
type Channel struct {
	sender  Sender
	opts    Options
	logger  *logging.Logger
	metrics *metrics.Metrics

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a channel. Zero option fields fall back to the defaults.
func New(sender Sender, opts Options, logger *logging.Logger, m *metrics.Metrics) *Channel {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = def.SettleDelay
	}
	return &Channel{
		sender:  sender,
		opts:    opts,
		logger:  logger,
		metrics: m,
		sleep:   sleepContext,
	}
}

// Options returns the effective retry policy.
func (c *Channel) Options() Options {
	return c.opts
}

// EnsureReady probes the agent in tabID, requesting an install at most once.
// It never returns an error; failures are reported as StateUnreachable.
func (c *Channel) EnsureReady(ctx context.Context, tabID string) Status {
	status := Status{State: StateUnknown}
	lastErr := "agent did not respond"

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		status.State = StateProbing
		status.Attempts = attempt

		resp := c.sender.Send(ctx, tabID, protocol.ActionPing, nil)
		c.metrics.ObserveProbe(resp.Success)
		if resp.Success {
			var pong protocol.PingData
			if err := resp.Decode(&pong); err == nil {
				status.AgentVersion = pong.Version
			}
			status.State = StateReady
			c.logger.Debugf("tab %s ready after %d probe(s)", tabID, attempt)
			c.metrics.ObserveChannel(string(StateReady))
			return status
		}
		lastErr = resp.Error
		c.logger.Debugf("probe %d/%d for tab %s failed: %s", attempt, c.opts.MaxAttempts, tabID, resp.Error)

		if attempt == c.opts.MaxAttempts {
			break
		}

		delay := c.opts.RetryDelay
		if !status.InstallRequested {
			status.State = StateInstallRequested
			status.InstallRequested = true
			install := c.sender.Send(ctx, tabID, protocol.ActionInstallAgent, nil)
			c.metrics.ObserveInstall(install.Success)
			if install.Success {
				c.logger.Infof("agent install requested for tab %s", tabID)
			} else {
				c.logger.Warnf("agent install for tab %s failed: %s", tabID, install.Error)
				lastErr = install.Error
			}
			delay = c.opts.SettleDelay
		}

		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err.Error()
			break
		}
	}

	status.State = StateUnreachable
	status.Reason = lastErr
	c.logger.Warnf("tab %s unreachable after %d probe(s): %s", tabID, status.Attempts, lastErr)
	c.metrics.ObserveChannel(string(StateUnreachable))
	return status
}

// Send forwards a request to the agent in tabID without probing first.
func (c *Channel) Send(ctx context.Context, tabID string, action protocol.Action, payload interface{}) protocol.Response {
	return c.sender.Send(ctx, tabID, action, payload)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
