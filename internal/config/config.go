package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"docklite/pkg/logger"
)

// LegacyDataDir is the historical sites root. It is always tried as a
// fallback jail base after the configured data dir.
const LegacyDataDir = "/var/www/sites"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	DataDir    string `mapstructure:"data_dir"`
	SocketPath string `mapstructure:"socket_path"`
	LogLevel   string `mapstructure:"log_level"`
}

type ProxyConfig struct {
	Network      string `mapstructure:"network"`
	Entrypoint   string `mapstructure:"entrypoint"`
	CertResolver string `mapstructure:"cert_resolver"`
	APIEndpoint  string `mapstructure:"api_endpoint"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type AuthConfig struct {
	SessionSecret string `mapstructure:"session_secret"`
}

func Load() (*Config, error) {
	var cfg Config

	// Set defaults
	viper.SetDefault("server.port", 9444)
	viper.SetDefault("server.data_dir", LegacyDataDir)
	viper.SetDefault("server.socket_path", "")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("proxy.network", "docklite-proxy")
	viper.SetDefault("proxy.entrypoint", "websecure")
	viper.SetDefault("proxy.cert_resolver", "letsencrypt")
	viper.SetDefault("proxy.api_endpoint", "http://localhost:8080")
	viper.SetDefault("storage.db_path", "")

	if err := viper.UnmarshalKey("server", &cfg.Server); err != nil {
		return nil, fmt.Errorf("unable to decode server config: %w", err)
	}
	if err := viper.UnmarshalKey("proxy", &cfg.Proxy); err != nil {
		return nil, fmt.Errorf("unable to decode proxy config: %w", err)
	}
	if err := viper.UnmarshalKey("storage", &cfg.Storage); err != nil {
		return nil, fmt.Errorf("unable to decode storage config: %w", err)
	}
	if err := viper.UnmarshalKey("auth", &cfg.Auth); err != nil {
		return nil, fmt.Errorf("unable to decode auth config: %w", err)
	}

	if cfg.Server.DataDir == "" {
		cfg.Server.DataDir = LegacyDataDir
		logger.Debug("Config had empty data_dir, using legacy default", "data_dir", cfg.Server.DataDir)
	}
	if !filepath.IsAbs(cfg.Server.DataDir) {
		return nil, fmt.Errorf("server.data_dir must be an absolute path, got %q", cfg.Server.DataDir)
	}

	// Database lives next to the site data unless placed explicitly.
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(cfg.Server.DataDir, "docklite.db")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Proxy.Network == "" {
		return nil, fmt.Errorf("proxy.network is required")
	}
	if strings.Contains(cfg.Proxy.Network, "/") {
		return nil, fmt.Errorf("proxy.network should be a plain network name, got %q", cfg.Proxy.Network)
	}

	return &cfg, nil
}

// BaseDirs returns the jail roots in resolution priority order: the
// configured data dir first, then the legacy dir when it differs.
func (c *Config) BaseDirs() []string {
	bases := []string{c.Server.DataDir}
	if c.Server.DataDir != LegacyDataDir {
		bases = append(bases, LegacyDataDir)
	}
	return bases
}

// EnsureSessionSecret resolves the cookie signing secret. When the
// config does not provide one, a generated secret is persisted next to
// the site data so sessions survive restarts.
func (c *Config) EnsureSessionSecret() error {
	if c.Auth.SessionSecret != "" {
		return nil
	}

	secretPath := filepath.Join(c.Server.DataDir, ".session_secret")
	if raw, err := os.ReadFile(secretPath); err == nil && len(raw) > 0 {
		c.Auth.SessionSecret = strings.TrimSpace(string(raw))
		return nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate session secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if err := os.MkdirAll(c.Server.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.WriteFile(secretPath, []byte(secret), 0o600); err != nil {
		return fmt.Errorf("failed to persist session secret: %w", err)
	}

	logger.Info("Generated new session secret", "path", secretPath)
	c.Auth.SessionSecret = secret
	return nil
}
