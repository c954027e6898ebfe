// Package pageagent ships the JavaScript agent that runs inside inspected
// pages.
//
// The agent exposes window.__flagpinAgent.handle(msg), which answers the
// protocol envelope with a JSON string. It implements a closed set of actions
// and named operations; nothing else is ever evaluated in the page.
package pageagent

import (
	_ "embed"
	"strings"
)

// Version is reported by PING so the channel can tell which agent answered.
const Version = "1.0.0"

// Global is the window property the agent installs itself under.
const Global = "__flagpinAgent"

//go:embed agent.js
var source string

// Script returns the agent source with its version stamped in. Evaluating it
// twice in the same document is a no-op.
func Script() string {
	return strings.ReplaceAll(source, "__FLAGPIN_VERSION__", Version)
}

// HandleExpression is the page function used to deliver one envelope. It takes
// the JSON-encoded request and returns the agent's JSON reply, or null when no
// agent is installed.
const HandleExpression = `raw => {
  const agent = window.` + Global + `;
  if (!agent || typeof agent.handle !== 'function') {
    return null;
  }
  return agent.handle(JSON.parse(raw));
}`
