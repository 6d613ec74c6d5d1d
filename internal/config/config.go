package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/darling/pkg/tools"
)

const (
	EnvConfigPath = "DARLING_CONFIG"
	EnvAPIToken   = "DARLING_API_TOKEN"

	RunnerLocal = "local"
	RunnerSSH   = "ssh"
)

var ErrInvalidConfig = errors.New("config: invalid darling config")

// Config is the resolved host configuration.
type Config struct {
	// SourceLocation is the darling source tree the host module rebuilds.
	SourceLocation string
	// CachePath is the installed-package cache file.
	CachePath   string
	ListenAddr  string
	CorsOrigins []string
	Runner      string
	SSH         SSHConfig
	LogLevel    string
	// APIToken, when set, is required as a bearer token by the status API.
	APIToken string
}

type SSHConfig struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

type fileConfig struct {
	SourceLocation string        `toml:"source_location"`
	CachePath      string        `toml:"cache_path"`
	ListenAddr     string        `toml:"listen_addr"`
	CorsOrigins    []string      `toml:"cors_origins"`
	Runner         string        `toml:"runner"`
	LogLevel       string        `toml:"log_level"`
	APIToken       string        `toml:"api_token"`
	SSH            fileSSHConfig `toml:"ssh"`
}

type fileSSHConfig struct {
	Host                        string `toml:"host"`
	Port                        string `toml:"port"`
	User                        string `toml:"user"`
	KeyPath                     string `toml:"key_path"`
	KnownHostsPath              string `toml:"known_hosts_path"`
	InsecureSkipHostKeyChecking bool   `toml:"insecure_skip_host_key_checking"`
	Timeout                     string `toml:"timeout"`
}

// Default returns the configuration used when no file is present. Paths
// hang off $HOME.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("%w: home dir unavailable: %v", ErrInvalidConfig, err)
	}
	share := filepath.Join(home, ".local", "share", "darling")
	return Config{
		SourceLocation: filepath.Join(share, "source"),
		CachePath:      filepath.Join(share, "installed.toml"),
		ListenAddr:     "127.0.0.1:9400",
		CorsOrigins:    []string{"http://localhost:3000"},
		Runner:         RunnerLocal,
		SSH:            SSHConfig{Timeout: 10 * time.Second},
		LogLevel:       "info",
	}, nil
}

// DefaultPath returns $DARLING_CONFIG or ~/.config/darling/darling.toml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "darling.toml"
	}
	return filepath.Join(home, ".config", "darling", "darling.toml")
}

// Load overlays the file at path on Default. A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(path) == "" {
		applyEnv(&cfg)
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if errors.Is(err, os.ErrNotExist) {
		applyEnv(&cfg)
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load darling config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	if meta.IsDefined("source_location") {
		cfg.SourceLocation = expandHome(strings.TrimSpace(raw.SourceLocation))
	}
	if meta.IsDefined("cache_path") {
		cfg.CachePath = expandHome(strings.TrimSpace(raw.CachePath))
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("runner") {
		cfg.Runner = strings.ToLower(strings.TrimSpace(raw.Runner))
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}
	if meta.IsDefined("ssh") {
		cfg.SSH.Host = strings.TrimSpace(raw.SSH.Host)
		cfg.SSH.Port = strings.TrimSpace(raw.SSH.Port)
		cfg.SSH.User = strings.TrimSpace(raw.SSH.User)
		cfg.SSH.KeyPath = expandHome(strings.TrimSpace(raw.SSH.KeyPath))
		cfg.SSH.KnownHostsPath = expandHome(strings.TrimSpace(raw.SSH.KnownHostsPath))
		cfg.SSH.InsecureSkipHostKeyChecking = raw.SSH.InsecureSkipHostKeyChecking
	}
	if meta.IsDefined("ssh", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SSH.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse ssh.timeout: %w", err)
		}
		cfg.SSH.Timeout = d
	}
	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.SourceLocation) == "" {
		return fmt.Errorf("%w: source_location is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		return fmt.Errorf("%w: cache_path is required", ErrInvalidConfig)
	}
	switch cfg.Runner {
	case RunnerLocal:
	case RunnerSSH:
		if cfg.SSH.Host == "" || cfg.SSH.User == "" || cfg.SSH.KeyPath == "" {
			return fmt.Errorf("%w: ssh runner needs ssh.host, ssh.user and ssh.key_path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown runner %q", ErrInvalidConfig, cfg.Runner)
	}
	return nil
}

// CommandRunner returns the runner backends execute their commands through.
func (c Config) CommandRunner() tools.CommandRunner {
	if c.Runner == RunnerSSH {
		return tools.SSHRunner{
			Host:                        c.SSH.Host,
			Port:                        c.SSH.Port,
			User:                        c.SSH.User,
			KeyPath:                     c.SSH.KeyPath,
			KnownHostsPath:              c.SSH.KnownHostsPath,
			InsecureSkipHostKeyChecking: c.SSH.InsecureSkipHostKeyChecking,
			Timeout:                     c.SSH.Timeout,
		}
	}
	return tools.ExecRunner{}
}

func applyEnv(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv(EnvAPIToken)); token != "" {
		cfg.APIToken = token
	}
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
