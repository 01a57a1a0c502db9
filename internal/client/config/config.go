// Package config handles configuration for the command-line client:
// defaults, environment (.env and CRYPTOCLOUD_* variables), an optional
// JSON or YAML file and command-line flags, later sources winning.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/timex"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the client.
//
// MasterKey is a base64 32-byte key. When it is empty the client asks for
// a passphrase and derives the key from it with KeySalt.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	MasterKey          string
	KeySalt            string
	CipherSuite        string
	Timeout            time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.CipherSuite = "aes-256-gcm"
	c.Timeout = 30 * time.Second
}

// FileConfig is the on-disk shape of the client config file.
type FileConfig struct {
	ServerEndpointAddr *string         `json:"server" yaml:"server"`
	AccessToken        *string         `json:"access_token" yaml:"access_token"`
	MasterKey          *string         `json:"master_key" yaml:"master_key"`
	KeySalt            *string         `json:"key_salt" yaml:"key_salt"`
	CipherSuite        *string         `json:"cipher_suite" yaml:"cipher_suite"`
	Timeout            *timex.Duration `json:"timeout" yaml:"timeout"`
}

// Load builds the configuration from args (without the program name) and
// returns the remaining positional arguments: the command and its operands.
func Load(args []string, lookup func(string) (string, bool)) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fs := pflag.NewFlagSet("cryptocloud", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)

	var (
		configFile string
		flagCfg    Config
	)
	fs.StringVarP(&configFile, "config", "c", "", "path to a JSON or YAML config file")
	fs.StringVarP(&flagCfg.ServerEndpointAddr, "server", "a", "", "address and port of the server")
	fs.StringVarP(&flagCfg.AccessToken, "token", "t", "", "access token")
	fs.StringVarP(&flagCfg.MasterKey, "key", "k", "", "base64 master key")
	fs.StringVar(&flagCfg.KeySalt, "salt", "", "salt for passphrase key derivation")
	fs.StringVar(&flagCfg.CipherSuite, "cipher", "", "cipher suite: aes-256-gcm | chacha20-poly1305")
	fs.DurationVar(&flagCfg.Timeout, "timeout", 0, "per-command timeout")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, nil, err
	}
	if configFile != "" {
		if err := parseFile(cfg, configFile); err != nil {
			return nil, nil, err
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "server":
			cfg.ServerEndpointAddr = flagCfg.ServerEndpointAddr
		case "token":
			cfg.AccessToken = flagCfg.AccessToken
		case "key":
			cfg.MasterKey = flagCfg.MasterKey
		case "salt":
			cfg.KeySalt = flagCfg.KeySalt
		case "cipher":
			cfg.CipherSuite = flagCfg.CipherSuite
		case "timeout":
			cfg.Timeout = flagCfg.Timeout
		}
	})

	return cfg, fs.Args(), nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("CRYPTOCLOUD_SERVER"); ok {
		c.ServerEndpointAddr = v
	}
	if v, ok := lookup("CRYPTOCLOUD_TOKEN"); ok {
		c.AccessToken = v
	}
	if v, ok := lookup("CRYPTOCLOUD_MASTER_KEY"); ok {
		c.MasterKey = v
	}
	if v, ok := lookup("CRYPTOCLOUD_KEY_SALT"); ok {
		c.KeySalt = v
	}
	if v, ok := lookup("CRYPTOCLOUD_CIPHER"); ok {
		c.CipherSuite = v
	}
	if v, ok := lookup("CRYPTOCLOUD_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CRYPTOCLOUD_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

func parseFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ServerEndpointAddr != nil {
		c.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.AccessToken != nil {
		c.AccessToken = *fc.AccessToken
	}
	if fc.MasterKey != nil {
		c.MasterKey = *fc.MasterKey
	}
	if fc.KeySalt != nil {
		c.KeySalt = *fc.KeySalt
	}
	if fc.CipherSuite != nil {
		c.CipherSuite = *fc.CipherSuite
	}
	if fc.Timeout != nil {
		c.Timeout = fc.Timeout.Duration
	}
	return nil
}
