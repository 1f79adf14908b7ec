package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values in log output.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns match credential formats that may leak into prompts or
// diagnostics: API keys for the text/image endpoints and generic
// key=value secret assignments. Compiled once at package init.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),        // OpenAI-style keys
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`), // Bearer tokens
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldFragments flag structured-log field names whose values must
// never be written out verbatim.
var sensitiveFieldFragments = []string{
	"api_key",
	"apikey",
	"token",
	"secret",
	"password",
}

// RedactSensitiveData scans a string and replaces detected credentials with
// the redaction placeholder. Pure function.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField reports whether a structured-log field name indicates a
// value that must be redacted, matching case-insensitively on fragments.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range sensitiveFieldFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
