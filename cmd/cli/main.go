package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thand-io/zabbix-user/internal/config"
	"github.com/thand-io/zabbix-user/internal/zabbix"
)

// Global configuration instance
var cfg *config.Config

// errResultFailed marks a run whose failure was already reported in the
// printed result.
var errResultFailed = errors.New("user reconciliation failed")

// loadConfig loads the configuration based on the --config flag or default locations
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")

	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	var options []config.Option
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		options = append(options, config.WithLogLevel(logrus.DebugLevel.String()))
	}

	return config.Load(configFile, options...)
}

func preRunConfigE(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig(cmd)

	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serverURL, err := cmd.Flags().GetString("server-url"); err == nil && len(serverURL) > 0 {
		cfg.Server.URL = serverURL
	}

	if loginUser, err := cmd.Flags().GetString("login-user"); err == nil && len(loginUser) > 0 {
		cfg.Server.LoginUser = loginUser
	}

	if prompt, err := cmd.Flags().GetBool("prompt-password"); err == nil && prompt {
		password, err := promptPassword(cfg.Server.LoginUser)
		if err != nil {
			return err
		}
		cfg.Server.LoginPassword = password
	}

	return nil
}

// connect validates the server settings and returns an authenticated client.
func connect(ctx context.Context) (*zabbix.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	client, err := zabbix.Connect(ctx, cfg.Server.ClientOptions(), cfg.Server.Credentials())
	if err != nil {
		if zabbix.IsAuthError(err) {
			return nil, fmt.Errorf("failed to connect to Zabbix server: %w (check the login credentials or API token)", err)
		}
		return nil, fmt.Errorf("failed to connect to Zabbix server: %w", err)
	}

	if !client.IsAuthenticated() {
		return nil, fmt.Errorf("failed to connect to Zabbix server: no credentials were accepted")
	}

	logrus.WithFields(logrus.Fields{
		"run":      cfg.GetRunID(),
		"endpoint": client.Endpoint(),
	}).Debug("Connected to Zabbix API")

	return client, nil
}

// disconnect closes the login session, if any. Errors only get logged.
func disconnect(client *zabbix.Client) {
	if err := client.Logout(context.Background()); err != nil {
		logrus.WithError(err).Warn("Failed to logout from Zabbix API")
	}
}

var rootCmd = &cobra.Command{
	Use:   "zabbix-user",
	Short: "Manage Zabbix users through the Zabbix API",
	Long: `Create, update and delete Zabbix users idempotently.

If no config file is specified, zabbix-user looks for zabbix-user.yaml in the following locations:
  - ./zabbix-user.yaml
  - ./config/zabbix-user.yaml
  - /etc/zabbix-user/zabbix-user.yaml
  - ~/.config/zabbix-user/zabbix-user.yaml`,
	PersistentPreRunE: preRunConfigE,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default is ./zabbix-user.yaml)")
	rootCmd.PersistentFlags().String("server-url", "", "Zabbix frontend URL (e.g., https://zabbix.example.com)")
	rootCmd.PersistentFlags().String("login-user", "", "Zabbix user to authenticate as")
	rootCmd.PersistentFlags().Bool("prompt-password", false, "Prompt for the login password")

}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()

	if cfg != nil {
		if closeErr := cfg.Close(); closeErr != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+closeErr.Error())
		}
	}

	if err != nil {
		if !errors.Is(err, errResultFailed) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		}
		return 1
	}
	return 0
}
