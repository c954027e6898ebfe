package protocol

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transport delivers one request to the page behind tabID and returns the
// raw response envelope. Implementations may return errors freely; Sender
// turns them into failed responses.
type Transport interface {
	Deliver(ctx context.Context, tabID string, req Request) (json.RawMessage, error)
}

// Sender sends envelopes over a Transport. Send never returns an error and
// never panics across the boundary.
type Sender struct {
	transport Transport
}

// NewSender creates a sender bound to transport.
func NewSender(transport Transport) *Sender {
	return &Sender{transport: transport}
}

// Send builds a request for action and delivers it.
func (s *Sender) Send(ctx context.Context, tabID string, action Action, payload interface{}) Response {
	if !action.Valid() {
		return Failure(fmt.Sprintf("unknown action %q", action))
	}
	req, err := NewRequest(action, payload)
	if err != nil {
		return Failure(err.Error())
	}
	return s.SendRequest(ctx, tabID, req)
}

// SendRequest delivers an already-built request.
func (s *Sender) SendRequest(ctx context.Context, tabID string, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Failure(fmt.Sprintf("transport panic: %v", r))
		}
	}()

	if s.transport == nil {
		return Failure("no transport configured")
	}
	if tabID == "" {
		return Failure("no target tab")
	}
	if err := ctx.Err(); err != nil {
		return Failure(err.Error())
	}

	raw, err := s.transport.Deliver(ctx, tabID, req)
	if err != nil {
		return Failure(err.Error())
	}
	if len(raw) == 0 || string(raw) == "null" {
		return Failure(fmt.Sprintf("empty response to %s", req.Action))
	}

	if err := json.Unmarshal(raw, &resp); err != nil {
		return Failure(fmt.Sprintf("malformed response to %s: %v", req.Action, err))
	}
	if !resp.Success && resp.Error == "" {
		resp.Error = fmt.Sprintf("%s failed without a reason", req.Action)
	}
	if !resp.Success {
		resp.Data = nil
	}
	return resp
}
