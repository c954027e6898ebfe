package failure

import (
	"errors"
	"strings"
)

// Severity ranks how disruptive a failure is for the user.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Classification is the display-oriented view of a failure.
type Classification struct {
	Kind     Kind
	Severity Severity
	Message  string
	Hint     string
}

var kindDefaults = map[Kind]Classification{
	KindCapabilityDenied:   {Severity: SeverityLow, Hint: "Switch to a regular http(s) page and try again."},
	KindChannelUnreachable: {Severity: SeverityMedium, Hint: "Reload the page so the agent can be installed, then retry."},
	KindExecutionFailed:    {Severity: SeverityMedium, Hint: "Check the page console for errors and retry."},
	KindPersistenceFailed:  {Severity: SeverityHigh, Hint: "Check that the profile directory is writable."},
	KindInvalidInput:       {Severity: SeverityLow, Hint: "Fix the highlighted field and submit again."},
	KindAuthentication:     {Severity: SeverityHigh, Hint: "Re-authenticate with a valid API key and try again."},
	KindRateLimit:          {Severity: SeverityMedium, Hint: "Too many requests; wait a moment before retrying."},
	KindNetwork:            {Severity: SeverityMedium, Hint: "Check your network connection and retry."},
	KindNotFound:           {Severity: SeverityLow, Hint: "The item may have been removed already; refresh the list."},
	KindUnknown:            {Severity: SeverityLow, Hint: "Retry the operation; if it keeps failing, check the logs."},
}

// messageRules are checked in order; the first rule with a matching needle wins.
var messageRules = []struct {
	needles []string
	kind    Kind
}{
	{[]string{"401", "unauthorized", "invalid api key"}, KindAuthentication},
	{[]string{"403", "forbidden"}, KindAuthentication},
	{[]string{"429", "rate limit", "too many requests"}, KindRateLimit},
	{[]string{"404", "not found"}, KindNotFound},
	{[]string{"network", "timeout", "timed out", "connection refused", "econnreset", "failed to fetch"}, KindNetwork},
}

// Classify maps err to a Classification. Errors that already carry a Kind keep
// it; anything else is classified by message content.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Kind != "" && fe.Kind != KindUnknown {
		c := kindDefaults[fe.Kind]
		c.Kind = fe.Kind
		c.Message = Reason(err)
		return c
	}

	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies a bare message string.
func ClassifyMessage(msg string) Classification {
	lower := strings.ToLower(msg)
	kind := KindUnknown
	for _, rule := range messageRules {
		if containsAny(lower, rule.needles) {
			kind = rule.kind
			break
		}
	}

	c := kindDefaults[kind]
	c.Kind = kind
	c.Message = msg
	return c
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
