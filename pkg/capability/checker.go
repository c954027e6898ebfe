// Package capability decides whether a tab may be modified.
//
// The decision is a pure function of the tab's URL: it never talks to the page,
// so it is safe to call before any channel exists.
package capability

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ReasonNoTarget is returned when there is no URL to inspect.
const ReasonNoTarget = "no active target"

// Result is the outcome of a capability check.
type Result struct {
	CanInject bool   `json:"canInject"`
	Reason    string `json:"reason,omitempty"`
}

// Target describes a tab together with its capability verdict.
type Target struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	CanInject bool   `json:"canInject"`
	Reason    string `json:"reason,omitempty"`
}

// schemeReasons maps non-web schemes to the reason shown to the user.
var schemeReasons = map[string]string{
	"chrome":               "Cannot inject into browser internal pages (chrome://)",
	"edge":                 "Cannot inject into browser internal pages (edge://)",
	"brave":                "Cannot inject into browser internal pages (brave://)",
	"opera":                "Cannot inject into browser internal pages (opera://)",
	"vivaldi":              "Cannot inject into browser internal pages (vivaldi://)",
	"about":                "Cannot inject into browser internal pages (about:)",
	"internal":             "Cannot inject into browser internal pages (internal://)",
	"devtools":             "Cannot inject into browser internal pages (devtools://)",
	"view-source":          "Cannot inject into browser internal pages (view-source:)",
	"chrome-extension":     "Cannot inject into extension pages",
	"moz-extension":        "Cannot inject into extension pages",
	"safari-web-extension": "Cannot inject into extension pages",
	"extension":            "Cannot inject into extension pages",
	"file":                 "Cannot inject into local files (file://)",
	"data":                 "Cannot inject into embedded data URLs",
	"blob":                 "Cannot inject into blob URLs",
}

// DefaultDeniedHosts are browser and extension store hosts. Patterns use
// gobwas/glob syntax with '.' as the separator.
var DefaultDeniedHosts = []string{
	"chrome.google.com",
	"chromewebstore.google.com",
	"microsoftedge.microsoft.com",
	"addons.mozilla.org",
	"addons.opera.com",
	"*.chromewebstore.google.com",
}

// Checker evaluates the injection policy.
type Checker struct {
	deniedHosts []glob.Glob
}

// NewChecker builds a checker from the default host denylist plus extra patterns.
func NewChecker(extraDeniedHosts ...string) (*Checker, error) {
	c := &Checker{}
	patterns := append(append([]string{}, DefaultDeniedHosts...), extraDeniedHosts...)
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		c.deniedHosts = append(c.deniedHosts, g)
	}
	return c, nil
}

var defaultChecker = mustChecker()

func mustChecker() *Checker {
	c, err := NewChecker()
	if err != nil {
		panic(err)
	}
	return c
}

// CanInject applies the default policy to rawURL.
func CanInject(rawURL string) Result {
	return defaultChecker.CanInject(rawURL)
}

// CanInject decides whether rawURL may be modified. Rules are evaluated in
// order and the first match wins.
func (c *Checker) CanInject(rawURL string) Result {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return deny(ReasonNoTarget)
	}

	scheme, host := splitURL(rawURL)

	if reason, ok := schemeReasons[scheme]; ok {
		return deny(reason)
	}

	if host != "" && c.hostDenied(host) {
		return deny(fmt.Sprintf("Cannot inject into restricted domain (%s)", host))
	}

	if scheme != "http" && scheme != "https" {
		if scheme == "" {
			return deny("Cannot inject into pages without a URL scheme")
		}
		return deny(fmt.Sprintf("Cannot inject into %s: pages; only http and https are supported", scheme))
	}

	if host == "" {
		return deny("Cannot inject into a page without a host")
	}

	return Result{CanInject: true}
}

// Describe builds a Target for a tab.
func (c *Checker) Describe(id, rawURL string) Target {
	res := c.CanInject(rawURL)
	_, host := splitURL(strings.TrimSpace(rawURL))
	return Target{
		ID:        id,
		URL:       rawURL,
		Domain:    host,
		CanInject: res.CanInject,
		Reason:    res.Reason,
	}
}

// Describe builds a Target using the default policy.
func Describe(id, rawURL string) Target {
	return defaultChecker.Describe(id, rawURL)
}

func (c *Checker) hostDenied(host string) bool {
	for _, g := range c.deniedHosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

func deny(reason string) Result {
	return Result{CanInject: false, Reason: reason}
}

// splitURL returns the lower-cased scheme and hostname. Opaque URLs such as
// "about:blank" or "data:text/html,..." yield an empty host.
func splitURL(rawURL string) (scheme, host string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Fall back to the text before the first colon so malformed
		// internal URLs are still recognised by scheme.
		if i := strings.Index(rawURL, ":"); i > 0 {
			return strings.ToLower(rawURL[:i]), ""
		}
		return "", ""
	}
	return strings.ToLower(u.Scheme), strings.ToLower(u.Hostname())
}
