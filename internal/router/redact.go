package router

import "strings"

// RedactedValue replaces sensitive parameter values in audit output.
const RedactedValue = "***REDACTED***"

// sensitiveKeys are matched as case-insensitive substrings of parameter
// names, so api_key, auth_token and user_password are all caught.
var sensitiveKeys = []string{"password", "token", "api_key", "secret", "key"}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of params with sensitive values replaced.
// Redaction recurses into nested maps and into maps inside slices; the
// input is never mutated.
func Redact(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if isSensitiveKey(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	default:
		return v
	}
}
