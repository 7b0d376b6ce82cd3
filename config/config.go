// Package config loads the flat key/value settings surface ambient to a
// DATIS-style deployment: cloud TTS credentials, the default voice, the
// radio server port, and the TTS executable path. Settings are stored as
// JSON or YAML under os.UserConfigDir()/datis/config.{json,yaml}, in the
// same load-returns-defaults-on-error shape the client-side config
// package this one generalizes from uses.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Well-known keys read by the surrounding TTS/report-generation
// collaborators this module hands Station records to. The core driver
// never reads these itself.
const (
	KeyGCloudAccessKey = "gcloudAccessKey"
	KeyAWSAccessKey    = "awsAccessKey"
	KeyAWSPrivateKey   = "awsPrivateKey"
	KeyAWSRegion       = "awsRegion"
	KeyDefaultVoice    = "defaultVoice"
	KeySRSPort         = "srsPort"
	KeyExecutablePath  = "executablePath"
)

// Settings is a flat key/value configuration map.
type Settings map[string]string

// Default returns an empty Settings map; there are no sensible defaults
// for credentials or paths, unlike the client-side Config this package
// generalizes.
func Default() Settings { return Settings{} }

// Path returns the absolute path to the JSON config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "datis", "config.json"), nil
}

// YAMLPath returns the absolute path to the YAML config file.
func YAMLPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "datis", "config.yaml"), nil
}

// Load reads the JSON config file and returns it. If the file is missing
// or unreadable, an empty Settings map is returned, never an error.
func Load() Settings {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// LoadYAML reads the YAML config file and returns it, with the same
// defaults-on-error behavior as Load.
func LoadYAML() Settings {
	path, err := YAMLPath()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk as JSON, creating the directory if needed.
func Save(cfg Settings) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// SaveYAML writes cfg to disk as YAML, creating the directory if needed.
func SaveYAML(cfg Settings) error {
	path, err := YAMLPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
