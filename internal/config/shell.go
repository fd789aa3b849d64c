package config

import (
	"path/filepath"
	"time"
)

// Port discovery modes of the bootstrap coordinator.
const (
	PortModeFixed = "fixed"
	PortModeProbe = "probe"
	PortModeFile  = "file"
)

// ShellConfig is the root configuration of the desktop shell.
type ShellConfig struct {
	Backend   BackendConfig   `yaml:"backend"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Export    ExportConfig    `yaml:"export"`
	Log       LogConfig       `yaml:"log"`
}

// BackendConfig describes the child backend process.
type BackendConfig struct {
	Bin  string `yaml:"bin"  env:"QRF_BACKEND_BIN" env-default:"qrfactory-server"`
	Port int    `yaml:"port" env:"PORT"            env-default:"0"`
}

// BootstrapConfig holds backend startup settings.
type BootstrapConfig struct {
	PortMode     string        `yaml:"port_mode"     env:"BOOTSTRAP_PORT_MODE"     env-default:"file"`
	Timeout      time.Duration `yaml:"timeout"       env:"BOOTSTRAP_TIMEOUT"       env-default:"20s"`
	PollInterval time.Duration `yaml:"poll_interval" env:"BOOTSTRAP_POLL_INTERVAL" env-default:"300ms"`
	HealthPath   string        `yaml:"health_path"   env:"BOOTSTRAP_HEALTH_PATH"   env-default:"/api/health"`
	StopGrace    time.Duration `yaml:"stop_grace"    env:"BOOTSTRAP_STOP_GRACE"    env-default:"5s"`
}

// BridgeConfig holds the listen settings of the UI bridge.
type BridgeConfig struct {
	Network string `yaml:"network" env:"BRIDGE_NETWORK" env-default:"unix"`
	Address string `yaml:"address" env:"BRIDGE_ADDRESS"`
}

// ExportConfig holds the directory used by file-saving bridge calls.
type ExportConfig struct {
	Dir string `yaml:"dir" env:"EXPORT_DIR" env-default:"./exports"`
}

// BridgeAddress returns the configured bridge address, defaulting to a
// socket inside the data directory.
func (c *ShellConfig) BridgeAddress() string {
	if c.Bridge.Address != "" {
		return c.Bridge.Address
	}
	if c.Bridge.Network == "unix" {
		return filepath.Join(c.Database.Dir, "bridge.sock")
	}
	return "127.0.0.1:0"
}
