package config

import (
	"os"
	"time"

	"github.com/thand-io/zabbix-user/internal/common"
	"github.com/thand-io/zabbix-user/internal/zabbix"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`

	logger  *warningsLogger
	logFile *os.File
}

// ServerConfig describes how to reach and authenticate against the Zabbix
// frontend.
type ServerConfig struct {
	URL           string `mapstructure:"url"`
	LoginUser     string `mapstructure:"login_user"`
	LoginPassword string `mapstructure:"login_password"`
	APIToken      string `mapstructure:"api_token"`

	// Basic auth for a web server in front of the frontend
	HTTPLoginUser     string `mapstructure:"http_login_user"`
	HTTPLoginPassword string `mapstructure:"http_login_password"`

	ValidateCerts bool `mapstructure:"validate_certs"`
	// Zabbix time unit, plain numbers are seconds
	Timeout string `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" default:"info"`
	Format string `mapstructure:"format" default:"text"`
	Output string `mapstructure:"output" default:"stderr"`
}

func (c *ServerConfig) GetTimeout() time.Duration {
	if len(c.Timeout) == 0 {
		return zabbix.DefaultTimeout
	}
	timeout, err := common.ParseTimeUnit(c.Timeout)
	if err != nil || timeout <= 0 {
		return zabbix.DefaultTimeout
	}
	return timeout
}

func (c *ServerConfig) HasAPIToken() bool {
	return len(c.APIToken) > 0
}

// ClientOptions maps the server section onto the API client options.
func (c *ServerConfig) ClientOptions() zabbix.Options {
	return zabbix.Options{
		URL:           c.URL,
		Timeout:       c.GetTimeout(),
		ValidateCerts: c.ValidateCerts,
		HTTPUser:      c.HTTPLoginUser,
		HTTPPassword:  c.HTTPLoginPassword,
	}
}

func (c *ServerConfig) Credentials() zabbix.Credentials {
	return zabbix.Credentials{
		User:     c.LoginUser,
		Password: c.LoginPassword,
		Token:    c.APIToken,
	}
}
