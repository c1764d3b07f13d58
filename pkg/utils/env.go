package utils

import "strings"

// IsProduction reports whether a GO_ENV value denotes production
// GO_ENV=prod or production → true
func IsProduction(goEnv string) bool {
	env := strings.ToLower(strings.TrimSpace(goEnv))
	return env == "prod" || env == "production"
}

// NormalizeEnvironment maps GO_ENV to "prod" or the lower-cased value, defaulting to "dev"
func NormalizeEnvironment(goEnv string) string {
	if IsProduction(goEnv) {
		return "prod"
	}
	env := strings.ToLower(strings.TrimSpace(goEnv))
	if env == "" {
		return "dev"
	}
	return env
}

// SplitList splits a comma-separated list, trimming blanks
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	var result []string

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
