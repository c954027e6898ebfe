package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/flagpin/pkg/browser"
	"github.com/entrhq/flagpin/pkg/protocol"
)

// fakeTabs maps tab ids to URLs.
type fakeTabs map[string]string

func (f fakeTabs) Tab(id string) (browser.TabInfo, error) {
	url, ok := f[id]
	if !ok {
		return browser.TabInfo{}, fmt.Errorf("tab %q not found", id)
	}
	return browser.TabInfo{ID: id, URL: url}, nil
}

// fakeAgent is a protocol.Transport that behaves like the page agent of a
// single page. The agent is absent until INSTALL_AGENT is delivered.
type fakeAgent struct {
	mu         sync.Mutex
	installed  bool
	installs   int
	storage    map[string]string
	cookies    map[string]string
	failRemove map[string]bool
	sdk        bool
	patched    map[string]interface{}
	delivered  []protocol.Action
}

func newFakeAgent(installed bool) *fakeAgent {
	return &fakeAgent{
		installed:  installed,
		storage:    map[string]string{},
		cookies:    map[string]string{},
		failRemove: map[string]bool{},
		patched:    map[string]interface{}{},
	}
}

func (a *fakeAgent) Deliver(_ context.Context, _ string, req protocol.Request) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delivered = append(a.delivered, req.Action)

	if req.Action == protocol.ActionInstallAgent {
		a.installs++
		a.installed = true
		data, _ := json.Marshal(protocol.InstallData{Installed: true, Version: "test"})
		return json.Marshal(protocol.Response{Success: true, Data: data})
	}
	if !a.installed {
		return nil, browser.ErrAgentMissing
	}

	data, err := a.handle(req)
	if err != nil {
		return json.Marshal(protocol.Failure(err.Error()))
	}
	raw, _ := json.Marshal(data)
	return json.Marshal(protocol.Response{Success: true, Data: raw})
}

func (a *fakeAgent) handle(req protocol.Request) (interface{}, error) {
	switch req.Action {
	case protocol.ActionPing:
		return protocol.PingData{Pong: true, Version: "test"}, nil
	case protocol.ActionGetStorage:
		var key protocol.StorageKey
		_ = json.Unmarshal(req.Payload, &key)
		v, ok := a.storage[string(key.Kind)+"/"+key.Key]
		if key.Kind == "cookie" {
			v, ok = a.cookies[key.Key]
		}
		if !ok {
			return protocol.StorageValue{}, nil
		}
		return protocol.StorageValue{Value: &v}, nil
	case protocol.ActionSetStorage:
		var w protocol.StorageWrite
		_ = json.Unmarshal(req.Payload, &w)
		if w.Kind == "cookie" {
			a.setCookie(w.Key, w.Cookie)
		} else {
			a.storage[string(w.Kind)+"/"+w.Key] = w.Value
		}
		return nil, nil
	case protocol.ActionCheckSDKActive:
		names := make([]string, 0, len(a.patched))
		for name := range a.patched {
			names = append(names, name)
		}
		return protocol.SDKStatus{Present: a.sdk, Active: a.sdk, Interceptors: names}, nil
	case protocol.ActionGetUserInfo:
		return protocol.UserInfo{SDKPresent: a.sdk, StableID: "stable-1", Origin: "https://shop.example.com"}, nil
	case protocol.ActionRunOperation:
		return a.operation(req.Payload)
	}
	return nil, fmt.Errorf("unknown action: %s", req.Action)
}

func (a *fakeAgent) operation(payload json.RawMessage) (interface{}, error) {
	var op struct {
		Op   string          `json:"op"`
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(payload, &op); err != nil {
		return nil, err
	}
	var args struct {
		Kind        string      `json:"kind"`
		Key         string      `json:"key"`
		Value       interface{} `json:"value"`
		Cookie      string      `json:"cookie"`
		FeatureName string      `json:"featureName"`
		FeatureType string      `json:"featureType"`
		Remove      bool        `json:"remove"`
	}
	_ = json.Unmarshal(op.Args, &args)

	switch op.Op {
	case "write-item":
		a.storage[args.Kind+"/"+args.Key], _ = args.Value.(string)
		return map[string]bool{"written": true}, nil
	case "remove-item":
		if a.failRemove[args.Key] {
			return nil, errors.New("removeItem threw")
		}
		delete(a.storage, args.Kind+"/"+args.Key)
		return map[string]bool{"removed": true}, nil
	case "set-cookie":
		a.setCookie(args.Key, args.Cookie)
		return map[string]bool{"written": true}, nil
	case "remove-cookie":
		if a.failRemove[args.Key] {
			return nil, errors.New("cookie write threw")
		}
		a.setCookie(args.Key, args.Cookie)
		return map[string]bool{"removed": true}, nil
	case "patch-sdk":
		key := args.FeatureType + ":" + args.FeatureName
		if args.Remove {
			delete(a.patched, key)
			return map[string]interface{}{"installed": false, "reason": "removed"}, nil
		}
		if !a.sdk {
			return map[string]interface{}{"installed": false, "reason": "evaluation SDK not found"}, nil
		}
		_, already := a.patched[key]
		a.patched[key] = args.Value
		return map[string]interface{}{"installed": true, "alreadyInstalled": already, "method": "checkGate"}, nil
	}
	return nil, fmt.Errorf("unknown operation: %s", op.Op)
}

func (a *fakeAgent) setCookie(key, assignment string) {
	if strings.Contains(assignment, "expires=Thu, 01 Jan 1970") {
		delete(a.cookies, key)
		return
	}
	first := strings.SplitN(assignment, ";", 2)[0]
	if eq := strings.Index(first, "="); eq >= 0 {
		a.cookies[key] = first[eq+1:]
	}
}

func (a *fakeAgent) count(action protocol.Action) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, got := range a.delivered {
		if got == action {
			n++
		}
	}
	return n
}
