package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTemplate writes a commented starter config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(darlingTemplate), 0o600)
}

const darlingTemplate = `# darling host configuration
source_location = "~/.local/share/darling/source"
cache_path = "~/.local/share/darling/installed.toml"
listen_addr = "127.0.0.1:9400"
cors_origins = ["http://localhost:3000"]
log_level = "info"
# bearer token for the status API; DARLING_API_TOKEN overrides it
# api_token = ""

# "local" runs package manager commands here, "ssh" runs them on [ssh].host
runner = "local"

[ssh]
host = ""
port = "22"
user = ""
key_path = "~/.ssh/id_ed25519"
known_hosts_path = ""
insecure_skip_host_key_checking = false
timeout = "10s"
`
