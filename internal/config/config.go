package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/thand-io/zabbix-user/internal/common"
)

const (
	configName = "zabbix-user"
	envPrefix  = "ZABBIX"
)

// Settings whose values never make it into logs.
var secretKeys = map[string]bool{
	"server.login_password":      true,
	"server.api_token":           true,
	"server.http_login_password": true,
}

// The log file the standard logger currently writes to, if any.
var (
	activeLogFile   *os.File
	activeLogFileMu sync.Mutex
)

// Option adjusts settings before the configuration is read. Values set by an
// option take precedence over the config file and the environment.
type Option func(v *viper.Viper)

// WithLogLevel overrides logging.level, so it is in effect while Load sets
// up logging.
func WithLogLevel(level string) Option {
	return func(v *viper.Viper) {
		v.Set("logging.level", level)
	}
}

func DefaultConfig() *Config {

	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logrus.Fatalf("error unmarshaling default config: %v", err)
	}

	return &config
}

// Load loads the configuration from various sources
func Load(configFile string, options ...Option) (*Config, error) {
	loadEnvFile()

	v := viper.New()

	setupViperConfig(v, configFile)
	bindEnvironmentVariables(v)

	for _, option := range options {
		option(v)
	}

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() {
	if err := gotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}
}

// setupViperConfig configures viper with file paths and defaults
func setupViperConfig(v *viper.Viper, configFile string) {
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/" + configName)

	if home, err := os.UserHomeDir(); err == nil && len(home) > 0 {
		v.AddConfigPath(filepath.Join(home, ".config", configName))
	}

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "")
	v.SetDefault("server.login_user", "")
	v.SetDefault("server.login_password", "")
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.http_login_user", "")
	v.SetDefault("server.http_login_password", "")
	v.SetDefault("server.validate_certs", true)
	v.SetDefault("server.timeout", "10")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// bindEnvironmentVariables binds the short ZABBIX_* names. AutomaticEnv
// already covers the section prefixed ones (ZABBIX_SERVER_LOGIN_USER).
func bindEnvironmentVariables(v *viper.Viper) {

	v.BindEnv("server.url", "ZABBIX_SERVER_URL", "ZABBIX_URL")
	v.BindEnv("server.login_user", "ZABBIX_LOGIN_USER", "ZABBIX_SERVER_LOGIN_USER")
	v.BindEnv("server.login_password", "ZABBIX_LOGIN_PASSWORD", "ZABBIX_SERVER_LOGIN_PASSWORD")
	v.BindEnv("server.api_token", "ZABBIX_API_TOKEN", "ZABBIX_SERVER_API_TOKEN")
	v.BindEnv("server.http_login_user", "ZABBIX_HTTP_LOGIN_USER")
	v.BindEnv("server.http_login_password", "ZABBIX_HTTP_LOGIN_PASSWORD")
	v.BindEnv("server.validate_certs", "ZABBIX_VALIDATE_CERTS")
	v.BindEnv("server.timeout", "ZABBIX_TIMEOUT")

	v.BindEnv("logging.level", "ZABBIX_LOGGING_LEVEL")
	v.BindEnv("logging.format", "ZABBIX_LOGGING_FORMAT")
	v.BindEnv("logging.output", "ZABBIX_LOGGING_OUTPUT")
}

// readAndUnmarshalConfig reads the configuration file and unmarshals it
func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// setupLogging configures the logging system based on the config
func setupLogging(config *Config, v *viper.Viper) error {
	logrusLevel, err := logrus.ParseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}

	logrus.SetLevel(logrusLevel)

	output, err := openLogOutput(config.Logging.Output)
	if err != nil {
		return err
	}
	logrus.SetOutput(output)

	file, _ := output.(*os.File)
	if file == os.Stderr || file == os.Stdout {
		file = nil
	}
	config.logFile = file
	replaceActiveLogFile(file)

	// Hooks are process wide; a reload replaces the previous buffer
	config.logger = newWarningsLogger(defaultWarningsBufferSize)
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	logrus.AddHook(config.logger)

	switch strings.ToLower(config.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		logrus.WithFields(logrus.Fields{
			"format": config.Logging.Format,
		}).Warn("Unknown log format")
	}

	// Dump out the config settings if in debug mode
	if logrusLevel >= logrus.DebugLevel {
		settings := redactedSettings(v)
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			logrus.Debugf("Config '%s': %v", key, settings[key])
		}
	}

	return nil
}

func openLogOutput(output string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}

	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}
	return file, nil
}

// replaceActiveLogFile records file as the current log file and closes the
// one it replaces.
func replaceActiveLogFile(file *os.File) {
	activeLogFileMu.Lock()
	defer activeLogFileMu.Unlock()

	if activeLogFile != nil && activeLogFile != file {
		activeLogFile.Close()
	}
	activeLogFile = file
}

// Close releases the log file opened for logging.output. Logging falls back
// to stderr.
func (c *Config) Close() error {
	if c.logFile == nil {
		return nil
	}

	activeLogFileMu.Lock()
	defer activeLogFileMu.Unlock()

	file := c.logFile
	c.logFile = nil

	if activeLogFile != file {
		// Already closed when a later Load replaced it
		return nil
	}

	logrus.SetOutput(os.Stderr)
	activeLogFile = nil
	return file.Close()
}

// redactedSettings flattens every setting into dotted keys, masking secrets.
func redactedSettings(v *viper.Viper) map[string]any {
	result := make(map[string]any)
	for _, key := range v.AllKeys() {
		value := v.Get(key)
		if secretKeys[key] {
			if str, ok := value.(string); ok && len(str) > 0 {
				value = "********"
			}
		}
		result[key] = value
	}
	return result
}

// Validate checks that the server section can be used to connect.
func (c *Config) Validate() error {
	var result *multierror.Error

	if len(c.Server.URL) == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"server.url is required (flag --server-url or ZABBIX_SERVER_URL)"))
	} else if !common.IsValidServerURL(c.Server.URL) {
		result = multierror.Append(result, fmt.Errorf(
			"server.url must be an absolute http or https URL; got %q", c.Server.URL))
	}

	if !c.Server.HasAPIToken() && len(c.Server.LoginUser) == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"either server.api_token or server.login_user must be set"))
	}

	if len(c.Server.Timeout) > 0 {
		if _, err := common.ParseTimeUnit(c.Server.Timeout); err != nil {
			result = multierror.Append(result, fmt.Errorf("server.timeout: %w", err))
		}
	}

	return result.ErrorOrNil()
}
