// Package protocol defines the request/response envelope exchanged with the
// page agent and a sender that never lets a transport failure escape as an
// error.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Action enumerates every request kind the engine can send.
type Action string

const (
	ActionPing           Action = "PING"             // ActionPing is the liveness probe.
	ActionGetStorage     Action = "GET_STORAGE"      // ActionGetStorage reads one storage value or cookie.
	ActionSetStorage     Action = "SET_STORAGE"      // ActionSetStorage writes one storage value without registering it.
	ActionGetUserInfo    Action = "GET_USER_INFO"    // ActionGetUserInfo returns the SDK user/session descriptor.
	ActionCheckSDKActive Action = "CHECK_SDK_ACTIVE" // ActionCheckSDKActive reports whether an evaluation SDK is present.
	ActionInstallAgent   Action = "INSTALL_AGENT"    // ActionInstallAgent asks the privileged installer to inject the agent.
	ActionRunOperation   Action = "RUN_OPERATION"    // ActionRunOperation runs one named page-side operation.
)

// Actions lists every known action.
var Actions = []Action{
	ActionPing,
	ActionGetStorage,
	ActionSetStorage,
	ActionGetUserInfo,
	ActionCheckSDKActive,
	ActionInstallAgent,
	ActionRunOperation,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Request is the envelope sent to the page agent.
type Request struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRequest encodes payload into a request. A nil payload is omitted.
func NewRequest(action Action, payload interface{}) (Request, error) {
	req := Request{Action: action}
	if payload == nil {
		return req, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode %s payload: %w", action, err)
	}
	req.Payload = raw
	return req, nil
}

// Response is the envelope returned by the page agent.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Failure builds an unsuccessful response. An empty message is replaced so
// that success=false always carries a reason.
func Failure(msg string) Response {
	if msg == "" {
		msg = "unknown error"
	}
	return Response{Success: false, Error: msg}
}

// Decode unmarshals the response data into v.
func (r Response) Decode(v interface{}) error {
	if !r.Success {
		return fmt.Errorf("cannot decode failed response: %s", r.Error)
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
