package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches "$$", ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\$|\$\{([^}:]+)(?::-([^}]*))?\}`)

// LoadConfig loads configuration from a file path. Keys absent from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parseConfig(data)
}

func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return data, nil
}

// parseConfig parses YAML data on top of the defaults.
func parseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// substituteEnvVars expands ${VAR} and ${VAR:-default} from the
// environment. An unset variable without a default expands to "".
// "$$" is a literal dollar sign.
func substituteEnvVars(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	last := 0
	for _, m := range envVarPattern.FindAllStringSubmatchIndex(content, -1) {
		b.WriteString(content[last:m[0]])
		last = m[1]

		if m[2] < 0 {
			b.WriteByte('$')
			continue
		}
		if value, ok := os.LookupEnv(content[m[2]:m[3]]); ok {
			b.WriteString(value)
		} else if m[4] >= 0 {
			b.WriteString(content[m[4]:m[5]])
		}
	}
	b.WriteString(content[last:])
	return b.String()
}
