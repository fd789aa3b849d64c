package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	minBootstrapTimeout = time.Second
	maxBootstrapTimeout = 120 * time.Second
	maxCodeLength       = 64
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [0, 65535] (got %d)", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0 (got %d)", c.Server.MaxBodyBytes)
	}
	if c.Server.PublicBaseURL != "" {
		c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")
		if err := validateHTTPURL(c.Server.PublicBaseURL); err != nil {
			return fmt.Errorf("server.public_base_url: %w", err)
		}
	}

	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.QR.CodeLength <= 0 || len(c.QR.CodePrefix)+c.QR.CodeLength > maxCodeLength {
		return fmt.Errorf("qr: prefix + code_length must be in [1, %d] (got %d+%d)",
			maxCodeLength, len(c.QR.CodePrefix), c.QR.CodeLength)
	}
	if strings.ContainsAny(c.QR.CodePrefix, " \t\r\n") {
		return fmt.Errorf("qr.code_prefix must not contain whitespace")
	}

	if c.ScanLog.Buffer <= 0 {
		return fmt.Errorf("scanlog.buffer must be > 0 (got %d)", c.ScanLog.Buffer)
	}

	return c.Log.validate()
}

// Validate performs business-rule validation on the shell configuration.
func (c *ShellConfig) Validate() error {
	if c.Backend.Bin == "" {
		return fmt.Errorf("backend.bin is required")
	}
	if c.Backend.Port < 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port must be in [0, 65535] (got %d)", c.Backend.Port)
	}

	if err := c.Bootstrap.validate(c.Backend.Port); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	switch c.Bridge.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("bridge.network must be unix or tcp (got %q)", c.Bridge.Network)
	}

	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("export.dir is required")
	}

	return c.Log.validate()
}

func (b *BootstrapConfig) validate(port int) error {
	switch b.PortMode {
	case PortModeFixed:
		if port <= 0 {
			return fmt.Errorf("port_mode %q requires PORT > 0", b.PortMode)
		}
	case PortModeProbe, PortModeFile:
	default:
		return fmt.Errorf("port_mode must be one of fixed, probe, file (got %q)", b.PortMode)
	}

	if b.Timeout < minBootstrapTimeout || b.Timeout > maxBootstrapTimeout {
		return fmt.Errorf("timeout must be in [%v, %v] (got %v)", minBootstrapTimeout, maxBootstrapTimeout, b.Timeout)
	}
	if b.PollInterval <= 0 || b.PollInterval >= b.Timeout {
		return fmt.Errorf("poll_interval must be > 0 and < timeout (got %v)", b.PollInterval)
	}
	if !strings.HasPrefix(b.HealthPath, "/") {
		return fmt.Errorf("health_path must start with / (got %q)", b.HealthPath)
	}
	if b.StopGrace <= 0 {
		return fmt.Errorf("stop_grace must be > 0 (got %v)", b.StopGrace)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	if d.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	if d.File == "" {
		return fmt.Errorf("file is required")
	}
	if d.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must be >= 0 (got %v)", d.BusyTimeout)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", l.Format)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
