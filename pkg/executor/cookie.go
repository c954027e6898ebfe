package executor

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/entrhq/flagpin/pkg/types"
)

const (
	defaultCookiePath = "/"
	cookieSameSite    = "SameSite=Lax"
	cookieEpoch       = "Thu, 01 Jan 1970 00:00:00 GMT"
)

// BuildCookie composes the document.cookie assignment for o.
func BuildCookie(o types.Override) string {
	return composeCookie(o, o.Value, "")
}

// BuildExpiredCookie composes an assignment that deletes the cookie written by
// BuildCookie. Path and domain must match for the browser to drop it.
func BuildExpiredCookie(o types.Override) string {
	return composeCookie(o, "", "expires="+cookieEpoch)
}

func composeCookie(o types.Override, value, expires string) string {
	path := o.Path
	if path == "" {
		path = defaultCookiePath
	}

	parts := []string{fmt.Sprintf("%s=%s", o.Key, value)}
	if expires != "" {
		parts = append(parts, expires)
	}
	parts = append(parts, "path="+path)
	if o.Domain != "" {
		parts = append(parts, "domain="+o.Domain)
	}
	parts = append(parts, cookieSameSite)
	return strings.Join(parts, "; ")
}

// ValidateCookie rejects cookies the browser would silently ignore or that
// would corrupt the assignment string.
func ValidateCookie(o types.Override) error {
	if strings.ContainsAny(o.Key, "=;, \t\r\n") {
		return fmt.Errorf("cookie name %q contains reserved characters", o.Key)
	}
	if strings.ContainsAny(o.Value, ";\r\n") {
		return fmt.Errorf("cookie value for %q must not contain ';' or line breaks", o.Key)
	}
	if strings.ContainsAny(o.Path, "; ") {
		return fmt.Errorf("cookie path %q contains reserved characters", o.Path)
	}
	if o.Domain == "" {
		return nil
	}

	domain := strings.ToLower(strings.TrimPrefix(o.Domain, "."))
	if domain == "" || strings.ContainsAny(domain, "; /:") {
		return fmt.Errorf("invalid cookie domain %q", o.Domain)
	}
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain {
		return fmt.Errorf("cookie domain %q is a public suffix; browsers reject it", o.Domain)
	}
	return nil
}
