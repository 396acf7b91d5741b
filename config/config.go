// Package config loads the on-disk configuration for a kadroute node: the
// construction parameters of a routing table plus a CLI-only bootstrap peer
// list, backed by a JSON file under a directory overridable by an
// environment variable, with optional .env secrets layered on top.
package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"os/user"
	"path"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/openkad/kadroute/id"
	"github.com/openkad/kadroute/utils"
)

// DirEnvVar names the environment variable that overrides the config
// directory.
const DirEnvVar = "KADROUTE_DIR"

// savedConfig is the part of Config persisted to config.json.
type savedConfig struct {
	Self                       string
	BagSize                    int
	CacheSize                  int
	CacheTimeoutSeconds        int
	MaxFail                    uint32
	MaintenanceTimeoutsSeconds []int
	Bootstrap                  []string
}

// Config is the fully loaded, ready-to-use node configuration.
type Config struct {
	savedConfig
}

// Self parses the configured self id.
func (c *Config) Self() (id.Id, error) {
	return id.Parse(c.savedConfig.Self)
}

// CacheTimeout returns the configured offline-log failure window as a
// duration.
func (c *Config) CacheTimeout() time.Duration {
	return time.Duration(c.CacheTimeoutSeconds) * time.Second
}

func filePath() string {
	return path.Join(Dir(), "config.json")
}

// Load reads config.json from Dir, then layers any .env overrides (also
// read from Dir) for bootstrap peers on top, mirroring how the kutluhann example
// pulls runtime secrets out of a .env file instead of the checked-in JSON.
func (c *Config) Load() error {
	content, err := ioutil.ReadFile(filePath())
	if os.IsNotExist(err) {
		*c = *Default()
	} else if err != nil {
		return errors.Wrap(err, "config: reading config.json")
	} else if err := json.Unmarshal(content, c); err != nil {
		return errors.Wrap(err, "config: parsing config.json")
	}

	if err := godotenv.Load(path.Join(Dir(), ".env")); err == nil {
		if bootstrap := os.Getenv("KADROUTE_BOOTSTRAP"); bootstrap != "" {
			c.Bootstrap = append(c.Bootstrap, bootstrap)
		}
	}
	return nil
}

// Save writes the config back to config.json.
func (c *Config) Save() error {
	if err := utils.EnsureDirExists(Dir(), false); err != nil {
		return errors.Wrap(err, "config: creating config dir")
	}
	encoded, err := json.MarshalIndent(c.savedConfig, "", "\t")
	if err != nil {
		return errors.Wrap(err, "config: encoding config.json")
	}
	return ioutil.WriteFile(filePath(), encoded, 0600)
}

// Get loads and returns the config found at Dir, or a freshly defaulted one
// if none exists yet.
func Get() (*Config, error) {
	c := &Config{}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the directory config.json and .env are read from: the
// KADROUTE_DIR environment variable if set, otherwise $HOME/.kadroute.
func Dir() string {
	if envDir := os.Getenv(DirEnvVar); envDir != "" {
		return envDir
	}
	u, err := user.Current()
	if err != nil {
		return ".kadroute"
	}
	return path.Join(u.HomeDir, ".kadroute")
}

// Default returns a config filled with conservative defaults and a freshly
// generated self id. It does not persist anything; call Save explicitly.
func Default() *Config {
	self, err := id.Random()
	if err != nil {
		// crypto/rand failure is unrecoverable; a zero self id will simply
		// fail routingtable.New's validation downstream.
		self = id.Zero
	}
	return &Config{
		savedConfig{
			Self:                       self.String(),
			BagSize:                    20,
			CacheSize:                  1024,
			CacheTimeoutSeconds:        600,
			MaxFail:                    3,
			MaintenanceTimeoutsSeconds: []int{60, 300, 1800},
			Bootstrap:                  nil,
		},
	}
}
