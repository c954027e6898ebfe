package browser

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flagpin/pkg/pageagent"
	"github.com/entrhq/flagpin/pkg/protocol"
)

type fakePage struct {
	initScripts []string
	evaluated   []string
	args        []interface{}
	reply       interface{}
	evalErr     error
}

func (p *fakePage) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	p.evaluated = append(p.evaluated, expression)
	p.args = append(p.args, arg...)
	if p.evalErr != nil {
		return nil, p.evalErr
	}
	return p.reply, nil
}

func (p *fakePage) AddInitScript(script playwright.Script) error {
	p.initScripts = append(p.initScripts, *script.Content)
	return nil
}

type fakeResolver map[string]*fakePage

func (r fakeResolver) Page(tabID string) (Page, error) {
	p, ok := r[tabID]
	if !ok {
		return nil, errors.New("tab not found")
	}
	return p, nil
}

func TestTransport_Install(t *testing.T) {
	page := &fakePage{reply: true}
	tr := NewTransport(fakeResolver{"tab": page}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		raw, err := tr.Deliver(ctx, "tab", protocol.Request{Action: protocol.ActionInstallAgent})
		require.NoError(t, err)

		var resp protocol.Response
		require.NoError(t, json.Unmarshal(raw, &resp))
		require.True(t, resp.Success)

		var data protocol.InstallData
		require.NoError(t, resp.Decode(&data))
		assert.True(t, data.Installed)
		assert.Equal(t, pageagent.Version, data.Version)
	}

	assert.Len(t, page.initScripts, 1, "init script is registered once per tab")
	assert.Equal(t, pageagent.Script(), page.initScripts[0])
	assert.Equal(t, []string{pageagent.Script(), pageagent.Script()}, page.evaluated)
}

func TestTransport_DeliversEnvelope(t *testing.T) {
	page := &fakePage{reply: `{"success":true,"data":{"pong":true,"version":"1.0.0"}}`}
	tr := NewTransport(fakeResolver{"tab": page}, nil)

	req, err := protocol.NewRequest(protocol.ActionGetStorage, protocol.StorageKey{Kind: "localStorage", Key: "flag"})
	require.NoError(t, err)

	raw, err := tr.Deliver(context.Background(), "tab", req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"pong":true,"version":"1.0.0"}}`, string(raw))

	require.Len(t, page.evaluated, 1)
	assert.Equal(t, pageagent.HandleExpression, page.evaluated[0])
	require.Len(t, page.args, 1)
	assert.JSONEq(t, `{"action":"GET_STORAGE","payload":{"kind":"localStorage","key":"flag"}}`, page.args[0].(string))
}

func TestTransport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		page    *fakePage
		tabID   string
		wantErr string
	}{
		{name: "agent missing", page: &fakePage{reply: nil}, tabID: "tab", wantErr: ErrAgentMissing.Error()},
		{name: "evaluation error", page: &fakePage{evalErr: errors.New("Execution context was destroyed")}, tabID: "tab", wantErr: "Execution context was destroyed"},
		{name: "unknown tab", page: &fakePage{}, tabID: "other", wantErr: "tab not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransport(fakeResolver{"tab": tt.page}, nil)
			_, err := tr.Deliver(context.Background(), tt.tabID, protocol.Request{Action: protocol.ActionPing})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransport_CanceledContext(t *testing.T) {
	page := &fakePage{reply: "{}"}
	tr := NewTransport(fakeResolver{"tab": page}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Deliver(ctx, "tab", protocol.Request{Action: protocol.ActionPing})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, page.evaluated)
}

func TestRawJSON_NonStringReply(t *testing.T) {
	raw, err := rawJSON(map[string]interface{}{"success": true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(raw))
}

// TestSessionManager_Integration drives a real browser. It needs the Playwright
// driver and Chromium, so it only runs when FLAGPIN_BROWSER_TESTS is set.
func TestSessionManager_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("FLAGPIN_BROWSER_TESTS") == "" {
		t.Skip("set FLAGPIN_BROWSER_TESTS=1 to run browser integration tests")
	}

	m := NewSessionManager(nil)
	require.NoError(t, m.Initialize())
	defer m.Shutdown()
	require.NoError(t, m.Start(Options{Headless: true}))

	info, err := m.Open("data:text/html,<title>flagpin</title>")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)

	tabs, err := m.Tabs()
	require.NoError(t, err)
	assert.Contains(t, tabs, info)
}
