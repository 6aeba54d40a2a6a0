// Package config reads the runner configuration file.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var ErrNoConfFile = errors.New("no configuration file specified")

// Config holds configuration read from a TOML file.
type Config struct {
	Bind        string `toml:"bind"`
	Workflow    string `toml:"workflow"`
	WorkDir     string `toml:"work_dir"`
	LogDir      string `toml:"log_dir"`
	DBPath      string `toml:"db_path"`
	LedgerPath  string `toml:"ledger_path"`
	PubKeyPath  string `toml:"pub_key_path"`
	PrivKeyPath string `toml:"priv_key_path"`
	MaxExecTime int    `toml:"max_exec_time"` // seconds per step

	Logging LoggingConf `toml:"logging"`
}

type LoggingConf struct {
	LogLevel string `toml:"log_level"`
}

// New reads configuration from a file and fills in defaults.
func New(file string) (*Config, error) {
	if file == "" {
		return nil, ErrNoConfFile
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil, err
	}

	conf := &Config{}
	if _, err := toml.DecodeFile(file, conf); err != nil {
		return nil, err
	}
	conf.setDefaults()
	return conf, nil
}

// Default returns a configuration with every field defaulted, for runs
// that have no config file at all.
func Default() *Config {
	conf := &Config{}
	conf.setDefaults()
	return conf
}

func (c *Config) setDefaults() {
	if c.Bind == "" {
		c.Bind = "0.0.0.0:8484"
	}
	if c.Workflow == "" {
		c.Workflow = "chainci.yaml"
	}
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.LogDir == "" {
		c.LogDir = "./logs"
	}
	if c.DBPath == "" {
		c.DBPath = "./chainci.db"
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "./ledger.json"
	}
	if c.PubKeyPath == "" {
		c.PubKeyPath = filepath.Join("keys", "chainci.pub")
	}
	if c.PrivKeyPath == "" {
		c.PrivKeyPath = filepath.Join("keys", "chainci.priv")
	}
	if c.MaxExecTime <= 0 {
		c.MaxExecTime = 300
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = "INFO"
	}
}
