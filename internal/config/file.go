package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// LoadFile reads a flat YAML mapping of setting names to values. Keys are
// upper-cased so `rate_limit_enabled: true` and `RATE_LIMIT_ENABLED: true`
// are equivalent. Values may reference the environment as ${VAR:-default}.
func LoadFile(path string, lookup LookupFunc) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseFile(data, lookup)
}

// ParseFile parses the YAML content of a config file.
func ParseFile(data []byte, lookup LookupFunc) (map[string]string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	content := substituteEnvVars(string(data), lookup)

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("config file key %s: %w", key, err)
		}
		out[key] = s
	}
	return out, nil
}

// scalarString flattens a YAML value; sequences become comma separated lists.
func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, err := scalarString(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default}; $$ produces a literal $.
func substituteEnvVars(content string, lookup LookupFunc) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		if value, exists := lookup(submatches[1]); exists {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}
