package workflow

import (
	"regexp"

	"github.com/passthekeys/outbound-core/internal/domain"
)

// placeholderPattern matches {{dotted.path}} placeholders. Deliberately a
// regex substitutor, not a general expression language (§9 Design Notes).
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// interpolate substitutes {{field}} placeholders in s from payload. An
// unresolved placeholder is replaced with the empty string.
func interpolate(s string, payload map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := payload[field]
		if !ok {
			return ""
		}
		return toString(v)
	})
}

// interpolateConfig walks a JSONB config map and interpolates every string
// value, leaving other JSON types untouched.
func interpolateConfig(config domain.JSONB, payload map[string]interface{}) domain.JSONB {
	out := make(domain.JSONB, len(config))
	for k, v := range config {
		if s, ok := v.(string); ok {
			out[k] = interpolate(s, payload)
		} else {
			out[k] = v
		}
	}
	return out
}
