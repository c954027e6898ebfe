package channel

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flagpin/pkg/protocol"
)

// scriptedSender answers PING with the queued results and counts installs.
type scriptedSender struct {
	mu        sync.Mutex
	pings     []bool
	installOK bool
	calls     []protocol.Action
}

func (s *scriptedSender) Send(_ context.Context, _ string, action protocol.Action, _ interface{}) protocol.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, action)

	switch action {
	case protocol.ActionPing:
		ok := false
		if len(s.pings) > 0 {
			ok = s.pings[0]
			s.pings = s.pings[1:]
		}
		if ok {
			return protocol.Response{Success: true, Data: json.RawMessage(`{"pong":true,"version":"1.2.0"}`)}
		}
		return protocol.Failure("page agent not installed")
	case protocol.ActionInstallAgent:
		if s.installOK {
			return protocol.Response{Success: true}
		}
		return protocol.Failure("install blocked by page policy")
	}
	return protocol.Failure("unexpected action")
}

func (s *scriptedSender) count(action protocol.Action) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.calls {
		if a == action {
			n++
		}
	}
	return n
}

func newTestChannel(sender Sender, opts Options) (*Channel, *[]time.Duration) {
	ch := New(sender, opts, nil, nil)
	var slept []time.Duration
	ch.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return ch, &slept
}

func TestEnsureReady_FirstProbeSucceeds(t *testing.T) {
	sender := &scriptedSender{pings: []bool{true}}
	ch, slept := newTestChannel(sender, DefaultOptions())

	status := ch.EnsureReady(context.Background(), "tab-1")
	assert.Equal(t, StateReady, status.State)
	assert.True(t, status.Ready())
	assert.Equal(t, 1, status.Attempts)
	assert.False(t, status.InstallRequested)
	assert.Equal(t, "1.2.0", status.AgentVersion)
	assert.Equal(t, 0, sender.count(protocol.ActionInstallAgent))
	assert.Empty(t, *slept)
}

func TestEnsureReady_InstallThenReady(t *testing.T) {
	sender := &scriptedSender{pings: []bool{false, true}, installOK: true}
	ch, slept := newTestChannel(sender, DefaultOptions())

	status := ch.EnsureReady(context.Background(), "tab-1")
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, 2, status.Attempts)
	assert.True(t, status.InstallRequested)
	assert.Equal(t, 1, sender.count(protocol.ActionInstallAgent))
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, *slept)
	assert.Equal(t, []protocol.Action{protocol.ActionPing, protocol.ActionInstallAgent, protocol.ActionPing}, sender.calls)
}

func TestEnsureReady_Unreachable(t *testing.T) {
	sender := &scriptedSender{installOK: true}
	ch, slept := newTestChannel(sender, DefaultOptions())

	status := ch.EnsureReady(context.Background(), "tab-1")
	assert.Equal(t, StateUnreachable, status.State)
	assert.False(t, status.Ready())
	assert.Equal(t, DefaultMaxAttempts, status.Attempts)
	assert.Equal(t, "page agent not installed", status.Reason)
	assert.Equal(t, DefaultMaxAttempts, sender.count(protocol.ActionPing))
	assert.Equal(t, 1, sender.count(protocol.ActionInstallAgent))

	// One settle delay after the install, then fixed retry delays.
	require.Len(t, *slept, DefaultMaxAttempts-1)
	assert.Equal(t, DefaultSettleDelay, (*slept)[0])
	for _, d := range (*slept)[1:] {
		assert.Equal(t, DefaultRetryDelay, d)
	}
}

func TestEnsureReady_BoundedAttempts(t *testing.T) {
	for _, attempts := range []int{1, 2, 3, 7} {
		sender := &scriptedSender{}
		ch, _ := newTestChannel(sender, Options{MaxAttempts: attempts})

		status := ch.EnsureReady(context.Background(), "tab")
		assert.Equal(t, StateUnreachable, status.State)
		assert.Equal(t, attempts, sender.count(protocol.ActionPing))
		assert.LessOrEqual(t, sender.count(protocol.ActionInstallAgent), 1)
		if attempts == 1 {
			assert.Equal(t, 0, sender.count(protocol.ActionInstallAgent))
		}
	}
}

func TestEnsureReady_InstallFailureStillRetries(t *testing.T) {
	sender := &scriptedSender{pings: []bool{false, false, true}}
	ch, _ := newTestChannel(sender, DefaultOptions())

	status := ch.EnsureReady(context.Background(), "tab")
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, 3, status.Attempts)
	assert.Equal(t, 1, sender.count(protocol.ActionInstallAgent))
}

func TestEnsureReady_ContextCanceled(t *testing.T) {
	sender := &scriptedSender{}
	ch := New(sender, Options{MaxAttempts: 5, RetryDelay: time.Hour, SettleDelay: time.Hour}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	status := ch.EnsureReady(ctx, "tab")
	assert.Equal(t, StateUnreachable, status.State)
	assert.Equal(t, 1, status.Attempts)
	assert.Contains(t, status.Reason, "deadline")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNew_Defaults(t *testing.T) {
	ch := New(&scriptedSender{}, Options{MaxAttempts: 0, RetryDelay: -1, SettleDelay: -1}, nil, nil)
	assert.Equal(t, DefaultOptions(), ch.Options())
}

func TestSend_PassesThrough(t *testing.T) {
	sender := &scriptedSender{installOK: true}
	ch := New(sender, DefaultOptions(), nil, nil)

	resp := ch.Send(context.Background(), "tab", protocol.ActionInstallAgent, nil)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, sender.count(protocol.ActionPing))
}
