package pageagent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/flagpin/pkg/protocol"
)

func TestScript_StampsVersion(t *testing.T) {
	s := Script()
	assert.NotContains(t, s, "__FLAGPIN_VERSION__")
	assert.Contains(t, s, "'"+Version+"'")
	assert.Contains(t, s, "window."+Global+" = {")
}

func TestScript_HandlesEveryAction(t *testing.T) {
	s := Script()
	for _, action := range protocol.Actions {
		assert.Contains(t, s, string(action)+":", "agent has no handler for %s", action)
	}
}

func TestScript_HandlesEveryOperation(t *testing.T) {
	s := Script()
	for _, op := range []string{"write-item", "remove-item", "set-cookie", "remove-cookie", "patch-sdk"} {
		assert.Contains(t, s, "'"+op+"'", "agent has no operation %s", op)
	}
}

func TestScript_WrapsSDKMethodsOnce(t *testing.T) {
	s := Script()
	assert.Contains(t, s, "__flagpinWrapped")
	assert.Contains(t, s, "__flagpinOriginal")
	for _, m := range []string{"checkGate", "getConfig", "getExperiment"} {
		assert.Contains(t, s, m)
	}
}

func TestHandleExpression(t *testing.T) {
	assert.Contains(t, HandleExpression, "window.__flagpinAgent")
	assert.Contains(t, HandleExpression, "JSON.parse(raw)")
	assert.Contains(t, HandleExpression, "return null")
}
