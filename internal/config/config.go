package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the root configuration of the backend server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	QR       QRConfig       `yaml:"qr"`
	ScanLog  ScanLogConfig  `yaml:"scanlog"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"0"`
	PortFile        string        `yaml:"port_file"        env:"PORT_FILE"`
	PublicBaseURL   string        `yaml:"public_base_url"  env:"PUBLIC_BASE_URL"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"SERVER_MAX_BODY_BYTES"   env-default:"2097152"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BaseURL returns the externally visible base URL for a bound port.
// PublicBaseURL wins when set.
func (s ServerConfig) BaseURL(port int) string {
	if s.PublicBaseURL != "" {
		return s.PublicBaseURL
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.Host, strconv.Itoa(port)))
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Dir         string        `yaml:"dir"          env:"APP_DB_DIR"      env-default:"./data"`
	File        string        `yaml:"file"         env:"DB_FILE"         env-default:"qrfactory.sqlite"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"DB_BUSY_TIMEOUT" env-default:"5s"`
}

// Path returns the full path of the database file.
func (d DatabaseConfig) Path() string {
	return filepath.Join(d.Dir, d.File)
}

// AuthConfig holds admin access settings.
type AuthConfig struct {
	AdminToken string `yaml:"admin_token" env:"ADMIN_TOKEN"`
}

// Enabled reports whether admin routes are gated.
func (a AuthConfig) Enabled() bool { return a.AdminToken != "" }

// QRConfig holds record code settings.
type QRConfig struct {
	RequireCode bool   `yaml:"require_code" env:"QR_REQUIRE_CODE" env-default:"false"`
	CodePrefix  string `yaml:"code_prefix"  env:"QR_CODE_PREFIX"  env-default:"QR"`
	CodeLength  int    `yaml:"code_length"  env:"QR_CODE_LENGTH"  env-default:"8"`
}

// ScanLogConfig holds scan log recorder settings.
type ScanLogConfig struct {
	Buffer int `yaml:"buffer" env:"SCANLOG_BUFFER" env-default:"256"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
