package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flagpin/pkg/logging"
	"github.com/entrhq/flagpin/pkg/pageagent"
	"github.com/entrhq/flagpin/pkg/protocol"
)

// Transport delivers protocol requests to pages. It is the privileged side of
// the channel: it alone can install the agent.
type Transport struct {
	pages  PageResolver
	logger *logging.Logger

	mu          sync.Mutex
	initScripts map[string]bool
}

// NewTransport creates a transport over pages.
func NewTransport(pages PageResolver, logger *logging.Logger) *Transport {
	return &Transport{
		pages:       pages,
		logger:      logger,
		initScripts: make(map[string]bool),
	}
}

// Deliver implements protocol.Transport.
func (t *Transport) Deliver(ctx context.Context, tabID string, req protocol.Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := t.pages.Page(tabID)
	if err != nil {
		return nil, err
	}

	if req.Action == protocol.ActionInstallAgent {
		return t.install(tabID, page)
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	reply, err := page.Evaluate(pageagent.HandleExpression, string(raw))
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return rawJSON(reply)
}

// install evaluates the agent in the current document and, once per tab,
// registers it for future navigations.
func (t *Transport) install(tabID string, page Page) (json.RawMessage, error) {
	script := pageagent.Script()

	t.mu.Lock()
	registered := t.initScripts[tabID]
	t.mu.Unlock()

	if !registered {
		if err := page.AddInitScript(playwright.Script{Content: &script}); err != nil {
			return nil, fmt.Errorf("failed to register agent init script: %w", err)
		}
		t.mu.Lock()
		t.initScripts[tabID] = true
		t.mu.Unlock()
	}

	if _, err := page.Evaluate(script); err != nil {
		return nil, fmt.Errorf("failed to install agent: %w", err)
	}

	t.logger.Infof("installed page agent %s in tab %s", pageagent.Version, tabID)
	data, err := json.Marshal(protocol.InstallData{Installed: true, Version: pageagent.Version})
	if err != nil {
		return nil, err
	}
	return json.Marshal(protocol.Response{Success: true, Data: data})
}
