package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thand-io/zabbix-user/internal/common"
)

var getCmd = &cobra.Command{
	Use:   "get ALIAS",
	Short: "Show a user as stored on the Zabbix server",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringP("output", "o", "text", "Output format: json, yaml or text")
	getCmd.Flags().StringP("query", "q", "", "jq expression applied to the user, e.g. '.usrgrps'")

	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {

	output, _ := cmd.Flags().GetString("output")
	output = strings.ToLower(output)

	switch output {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("unknown output format %q, expected json, yaml or text", output)
	}

	ctx, stop := common.WithInterrupt(cmd.Context())
	defer stop()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer disconnect(client)

	user, err := client.GetUser(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get user '%s': %w", args[0], err)
	}

	if user == nil {
		return fmt.Errorf("user '%s' does not exist", args[0])
	}

	if query, _ := cmd.Flags().GetString("query"); len(query) > 0 {
		results, err := queryUser(query, user)
		if err != nil {
			return err
		}
		return writeQueryResults(cmd.OutOrStdout(), output, results)
	}

	switch output {
	case "json":
		return writeJSON(cmd.OutOrStdout(), user)
	case "yaml":
		return writeYAML(cmd.OutOrStdout(), user)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderUser(user))
	return nil
}
