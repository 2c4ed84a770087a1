package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const maxSanitizePasses = 5

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
)

// StripMarkup removes every tag from raw and returns plain text. The strict
// policy escapes entities, so the result is decoded and fed back until it is
// stable; encoded tags such as "&lt;b&gt;" do not survive either.
func StripMarkup(raw string) string {
	policy := stripSanitizer()
	value := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses; i++ {
		cleaned := strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
		if cleaned == value {
			return cleaned
		}
		value = cleaned
	}
	return strings.TrimSpace(policy.Sanitize(value))
}

func stripSanitizer() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}
