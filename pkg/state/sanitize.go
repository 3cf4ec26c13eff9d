package state

import (
	"strings"
)

var sensitiveKeyPatterns = []string{
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"KEY",
	"CREDENTIAL",
	"API_KEY",
	"APIKEY",
	"AUTH",
	"PRIVATE",
	"CERT",
	"PASSPHRASE",
}

const redactedValue = "[REDACTED]"

// SanitizeEnv returns a copy of the environment map with values of
// sensitive-looking keys replaced by "[REDACTED]". The run record is
// world-readable; secrets must not land in it.
func SanitizeEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}

	result := make(map[string]string, len(env))
	for k, v := range env {
		if isSensitiveKey(k) {
			result[k] = redactedValue
		} else {
			result[k] = v
		}
	}
	return result
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
