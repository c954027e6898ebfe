package executor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/entrhq/flagpin/pkg/channel"
	"github.com/entrhq/flagpin/pkg/protocol"
	"github.com/entrhq/flagpin/pkg/types"
)

// fakePage emulates a page agent behind a channel.
type fakePage struct {
	mu sync.Mutex

	unreachable   bool
	sdkPresent    bool
	failOps       map[string]string // op or action -> error message
	dropWrites    bool              // write-item succeeds but the value never lands
	stickyCookies bool              // remove-cookie assignments are ignored by the browser
	storage       map[types.StorageKind]map[string]string
	cookies       map[string]string
	cookieWrites  []string
	interceptors  map[string]PatchArgs // featureType:featureName -> args
	ops           []string
	probes        int
}

func newFakePage() *fakePage {
	return &fakePage{
		failOps: map[string]string{},
		storage: map[types.StorageKind]map[string]string{
			types.KindLocalStorage:   {},
			types.KindSessionStorage: {},
		},
		cookies:      map[string]string{},
		interceptors: map[string]PatchArgs{},
	}
}

func (p *fakePage) EnsureReady(context.Context, string) channel.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	if p.unreachable {
		return channel.Status{State: channel.StateUnreachable, Reason: "page agent not installed", Attempts: 5}
	}
	return channel.Status{State: channel.StateReady, Attempts: 1}
}

func (p *fakePage) Send(_ context.Context, _ string, action protocol.Action, payload interface{}) protocol.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, _ := json.Marshal(payload)

	switch action {
	case protocol.ActionRunOperation:
		var op struct {
			Op   string          `json:"op"`
			Args json.RawMessage `json:"args"`
		}
		_ = json.Unmarshal(raw, &op)
		p.ops = append(p.ops, op.Op)
		if msg, ok := p.failOps[op.Op]; ok {
			return protocol.Failure(msg)
		}
		return p.runOp(op.Op, op.Args)

	case protocol.ActionGetStorage:
		p.ops = append(p.ops, string(action))
		if msg, ok := p.failOps[string(action)]; ok {
			return protocol.Failure(msg)
		}
		var key protocol.StorageKey
		_ = json.Unmarshal(raw, &key)
		var value *string
		if key.Kind == types.KindCookie {
			if v, ok := p.cookies[key.Key]; ok {
				value = &v
			}
		} else if v, ok := p.storage[key.Kind][key.Key]; ok {
			value = &v
		}
		return okResp(protocol.StorageValue{Value: value})

	case protocol.ActionSetStorage:
		p.ops = append(p.ops, string(action))
		var w protocol.StorageWrite
		_ = json.Unmarshal(raw, &w)
		if w.Kind == types.KindCookie {
			p.assignCookie(w.Cookie)
		} else {
			p.storage[w.Kind][w.Key] = w.Value
		}
		return okResp(nil)

	case protocol.ActionCheckSDKActive:
		p.ops = append(p.ops, string(action))
		if msg, ok := p.failOps[string(action)]; ok {
			return protocol.Failure(msg)
		}
		names := make([]string, 0, len(p.interceptors))
		for name := range p.interceptors {
			names = append(names, name)
		}
		return okResp(protocol.SDKStatus{Present: p.sdkPresent, Active: p.sdkPresent, Interceptors: names})

	case protocol.ActionGetUserInfo:
		p.ops = append(p.ops, string(action))
		return okResp(protocol.UserInfo{SDKPresent: p.sdkPresent, User: map[string]interface{}{"userID": "u-42"}, Origin: "https://shop.example.com"})
	}
	return protocol.Failure("unsupported action " + string(action))
}

func (p *fakePage) runOp(op string, args json.RawMessage) protocol.Response {
	switch Op(op) {
	case OpWriteItem:
		var a ItemArgs
		_ = json.Unmarshal(args, &a)
		if !p.dropWrites {
			p.storage[a.Kind][a.Key] = a.Value
		}
		return okResp(nil)
	case OpRemoveItem:
		var a ItemArgs
		_ = json.Unmarshal(args, &a)
		delete(p.storage[a.Kind], a.Key)
		return okResp(nil)
	case OpSetCookie:
		var a CookieArgs
		_ = json.Unmarshal(args, &a)
		p.assignCookie(a.Cookie)
		return okResp(nil)
	case OpRemoveCookie:
		var a CookieArgs
		_ = json.Unmarshal(args, &a)
		if !p.stickyCookies {
			p.assignCookie(a.Cookie)
		}
		_, present := p.cookies[a.Key]
		return okResp(RemoveResult{Removed: !present})
	case OpPatchSDK:
		var a PatchArgs
		_ = json.Unmarshal(args, &a)
		key := string(a.FeatureType) + ":" + a.FeatureName
		if a.Remove {
			delete(p.interceptors, key)
			return okResp(PatchResult{Installed: false})
		}
		if !p.sdkPresent {
			return okResp(PatchResult{Installed: false, Reason: "sdk not found"})
		}
		_, already := p.interceptors[key]
		p.interceptors[key] = a
		return okResp(PatchResult{Installed: true, AlreadyInstalled: already, Method: "checkGate"})
	}
	return protocol.Failure("unknown operation " + op)
}

func (p *fakePage) assignCookie(cookie string) {
	p.cookieWrites = append(p.cookieWrites, cookie)
	first := strings.SplitN(cookie, ";", 2)[0]
	kv := strings.SplitN(first, "=", 2)
	if strings.Contains(cookie, "expires=Thu, 01 Jan 1970") {
		delete(p.cookies, kv[0])
		return
	}
	p.cookies[kv[0]] = kv[1]
}

func okResp(data interface{}) protocol.Response {
	raw, _ := json.Marshal(data)
	return protocol.Response{Success: true, Data: raw}
}
