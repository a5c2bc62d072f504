package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "deskport"
	// DefaultListeningPort is the TCP port advertised over mDNS when no user
	// override exists.
	DefaultListeningPort = 21118
	// configFileName is the persisted configuration file.
	configFileName = "config.json"
)

// AppConfig contains persistent local settings.
type AppConfig struct {
	PeerID        string `json:"peer_id"`
	Username      string `json:"username"`
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	ListeningPort int    `json:"listening_port"`
}

// ResolveDataDir returns the OS-aware app data directory.
//
// If DESKPORT_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv("DESKPORT_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// ConfigPath returns the full path to config.json for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// Load reads and unmarshals config.json from disk.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save marshals and writes config.json to disk.
func Save(path string, cfg *AppConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadOrCreate loads config.json from the resolved data directory, creating
// it with generated defaults on first run. Missing fields in an existing file
// are filled in and persisted.
func LoadOrCreate() (*AppConfig, string, error) {
	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, "", fmt.Errorf("create data directory %q: %w", dataDir, err)
	}

	path := ConfigPath(dataDir)
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
		cfg = &AppConfig{}
	}

	changed := false
	if cfg.PeerID == "" {
		cfg.PeerID = uuid.NewString()
		changed = true
	}
	if cfg.Username == "" {
		cfg.Username = localUsername()
		changed = true
	}
	if cfg.Hostname == "" {
		hostname, hostErr := os.Hostname()
		if hostErr != nil {
			hostname = cfg.PeerID
		}
		cfg.Hostname = hostname
		changed = true
	}
	if cfg.Platform == "" {
		cfg.Platform = runtime.GOOS
		changed = true
	}
	if cfg.ListeningPort <= 0 {
		cfg.ListeningPort = DefaultListeningPort
		changed = true
	}

	if changed {
		if err := Save(path, cfg); err != nil {
			return nil, "", err
		}
	}

	return cfg, path, nil
}

func localUsername() string {
	if current, err := user.Current(); err == nil && current.Username != "" {
		return current.Username
	}
	return os.Getenv("USER")
}
