// Package cli implements the projecty command-line client
package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the client configuration. Values come from config.toml in the
// config directory and PROJECTY_* environment variables.
type Config struct {
	v    *viper.Viper
	dir  string
	file string
}

// defaultConfigDir returns the platform config directory
func defaultConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, "projecty", "cli"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "projecty", "cli"), nil
}

// LoadConfig reads configPath, or config.toml in the default directory when
// configPath is empty. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	c := &Config{v: viper.New()}

	if configPath != "" {
		c.dir = filepath.Dir(configPath)
		c.file = configPath
	} else {
		dir, err := defaultConfigDir()
		if err != nil {
			return nil, err
		}
		c.dir = dir
		c.file = filepath.Join(dir, "config.toml")
	}

	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return nil, err
	}

	c.v.SetConfigType("toml")
	c.v.SetEnvPrefix("projecty")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	c.v.SetDefault("api.base_url", "http://localhost:8787")
	c.v.SetDefault("api.timeout", 30)
	c.v.SetDefault("output.format", "text")
	c.v.SetDefault("log.file", filepath.Join(c.dir, "projecty-cli.log"))

	c.v.SetConfigFile(c.file)
	if _, err := os.Stat(c.file); err == nil {
		if err := c.v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Config) BaseURL() string {
	return strings.TrimRight(c.v.GetString("api.base_url"), "/")
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.v.GetInt("api.timeout")) * time.Second
}

func (c *Config) OutputFormat() string {
	return c.v.GetString("output.format")
}

func (c *Config) LogFile() string {
	return expandPath(c.v.GetString("log.file"))
}

// CredentialsPath is where login stores the session token
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.dir, "credentials")
}

// Override sets key for this run only
func (c *Config) Override(key string, value any) {
	c.v.Set(key, value)
}

// Save sets key and writes the config file
func (c *Config) Save(key string, value any) error {
	c.v.Set(key, value)
	return c.v.WriteConfigAs(c.file)
}

// expandPath expands a leading ~ to the home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
