package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix marks environment variables that override config keys.
// Nesting uses a double underscore: CASCADE_RETRY__MAX_ATTEMPTS maps
// to retry.max_attempts.
const EnvPrefix = "CASCADE_"

// envVarPattern matches ${VAR}, ${VAR:-default}, and $VAR
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvString(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Handle ${VAR} and ${VAR:-default}
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]

			if idx := strings.Index(inner, ":-"); idx != -1 {
				if val := os.Getenv(inner[:idx]); val != "" {
					return val
				}
				return inner[idx+2:]
			}

			return os.Getenv(inner)
		}

		// Handle $VAR
		return os.Getenv(match[1:])
	})
}

// parseValue coerces strings produced by env expansion into bool,
// int, or float where possible.
func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	if intVal, err := strconv.Atoi(value); err == nil {
		return intVal
	}

	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}

	return value
}

// ExpandEnvVarsInData recursively expands environment references in
// string values of a decoded config map.
func ExpandEnvVarsInData(data any) any {
	switch v := data.(type) {
	case string:
		expanded := expandEnvString(v)
		if expanded != v {
			return parseValue(expanded)
		}
		return expanded

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = ExpandEnvVarsInData(value)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = ExpandEnvVarsInData(item)
		}
		return result

	default:
		return v
	}
}

// EnvOverrides collects CASCADE_-prefixed environment variables as
// dotted-key overrides.
func EnvOverrides() map[string]any {
	overrides := make(map[string]any)

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}

		key := strings.TrimPrefix(name, EnvPrefix)
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		if key == "" {
			continue
		}

		overrides[key] = parseValue(value)
	}

	return overrides
}

// LoadEnvFiles loads .env.local and .env into the process environment.
// Missing files are not an error.
func LoadEnvFiles() error {
	envFiles := []string{".env.local", ".env"}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return nil
}
