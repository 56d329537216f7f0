package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a commented amld config in the given format (toml or yaml).
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml":
		return tomlTemplate, nil
	case "yaml", "yml":
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tomlTemplate = `id = "amld"
addr = ":9300"
cors_origins = ["http://localhost:3000"]
# auth_token = "change-me"

[validation]
# "version" accepts only supported_versions, "none" accepts every parsed message
mode = "version"
supported_versions = [1]

[archive]
enabled = false
path = "amld.db"

[metrics]
enabled = true
`

const yamlTemplate = `id: amld
addr: ":9300"
cors_origins:
  - http://localhost:3000
# auth_token: change-me

validation:
  # "version" accepts only supported_versions, "none" accepts every parsed message
  mode: version
  supported_versions: [1]

archive:
  enabled: false
  path: amld.db

metrics:
  enabled: true
`
