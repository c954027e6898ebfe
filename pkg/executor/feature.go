package executor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/entrhq/flagpin/pkg/types"
)

// ParseFeatureValue coerces an override value into what the intercepted SDK
// method should return: a boolean for gates, and parsed JSON (falling back to
// the raw string) for configs and experiments.
func ParseFeatureValue(ft types.FeatureType, value string) interface{} {
	if ft == types.FeatureGate {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false
		}
		return b
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return value
	}
	return parsed
}
