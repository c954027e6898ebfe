package browser

import (
	"encoding/json"
	"errors"

	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultTimeout is the default Playwright operation timeout in milliseconds.
	DefaultTimeout = 30000.0
)

// ErrAgentMissing is returned by the transport when a tab has no page agent.
var ErrAgentMissing = errors.New("page agent not installed")

// ErrNotStarted is returned when the manager has no browser yet.
var ErrNotStarted = errors.New("browser session not started")

// Options configures how the manager obtains a browser.
type Options struct {
	// CDPURL attaches to a running browser when set; otherwise Chromium is
	// launched.
	CDPURL string

	// Headless controls whether a launched browser shows a window.
	Headless bool

	// Timeout sets the default page timeout (in milliseconds).
	Timeout float64
}

// TabInfo describes one open page.
type TabInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Page is the part of playwright.Page the transport needs.
type Page interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	AddInitScript(script playwright.Script) error
}

// PageResolver maps a tab id to its page.
type PageResolver interface {
	Page(tabID string) (Page, error)
}

// rawJSON converts an evaluation result into a raw JSON reply.
func rawJSON(v interface{}) (json.RawMessage, error) {
	switch reply := v.(type) {
	case nil:
		return nil, ErrAgentMissing
	case string:
		return json.RawMessage(reply), nil
	default:
		return json.Marshal(reply)
	}
}
