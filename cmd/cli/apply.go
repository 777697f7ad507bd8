package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thand-io/zabbix-user/internal/common"
	"github.com/thand-io/zabbix-user/internal/models"
	"github.com/thand-io/zabbix-user/internal/users"
)

var applyCmd = &cobra.Command{
	Use:   "apply [PARAMS_FILE]",
	Short: "Create, update or delete a user to match the given parameters",
	Long: `Reconcile a single Zabbix user.

Parameters are read from a YAML or JSON file (use - for stdin) and can be
overridden with flags. The result is printed as JSON.

Example params file:
  alias: jdoe
  user_name: John
  user_surname: Doe
  user_password: Pa55w0rd
  user_type: 1
  user_groups:
    - usrgrpid: 7
  user_medias:
    - mediatypeid: 1
      sendto: [jdoe@example.com]`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().String("params", "", "YAML or JSON file with the user parameters")
	applyCmd.Flags().String("alias", "", "User alias (login name)")
	applyCmd.Flags().String("state", "", "present or absent")
	applyCmd.Flags().String("name", "", "First name")
	applyCmd.Flags().String("surname", "", "Last name")
	applyCmd.Flags().Int("type", 0, "User type: 1 user, 2 admin, 3 super admin")
	applyCmd.Flags().String("password", "", "Password, only used when creating the user")
	applyCmd.Flags().StringArray("group", nil, "User group id (repeatable)")
	applyCmd.Flags().Bool("check", false, "Report changes without applying them")
	applyCmd.Flags().Bool("diff", false, "Include before and after state in the result")

	rootCmd.AddCommand(applyCmd)
}

// buildParams reads the params file, if any, and applies flag overrides.
func buildParams(cmd *cobra.Command, args []string) (*models.UserParams, error) {

	path, _ := cmd.Flags().GetString("params")
	if len(args) > 0 {
		if len(path) > 0 && path != args[0] {
			return nil, fmt.Errorf("params file given both as argument and --params")
		}
		path = args[0]
	}

	params := &models.UserParams{}

	switch path {
	case "":
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read params from stdin: %w", err)
		}
		parsed, err := common.ReadDataToInterface(data, models.UserParams{})
		if err != nil {
			return nil, fmt.Errorf("failed to parse params: %w", err)
		}
		params = parsed
	default:
		parsed, err := common.ReadFileToInterface(path, models.UserParams{})
		if err != nil {
			return nil, fmt.Errorf("failed to parse params: %w", err)
		}
		params = parsed
	}

	flags := cmd.Flags()

	if flags.Changed("alias") {
		params.Alias, _ = flags.GetString("alias")
	}
	if flags.Changed("state") {
		state, _ := flags.GetString("state")
		params.State = models.State(strings.ToLower(state))
	}
	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		params.Name = &name
	}
	if flags.Changed("surname") {
		surname, _ := flags.GetString("surname")
		params.Surname = &surname
	}
	if flags.Changed("type") {
		value, _ := flags.GetInt("type")
		userType := models.FlexInt(value)
		params.Type = &userType
	}
	if flags.Changed("password") {
		params.Password, _ = flags.GetString("password")
	}
	if flags.Changed("group") {
		ids, _ := flags.GetStringArray("group")
		params.Groups = make(models.UserGroups, 0, len(ids))
		for _, id := range common.FilterEmpty(ids...) {
			params.Groups = append(params.Groups, models.UserGroup{UsrgrpID: models.FlexString(strings.TrimSpace(id))})
		}
	}
	if flags.Changed("check") {
		params.CheckMode, _ = flags.GetBool("check")
	}
	if flags.Changed("diff") {
		params.Diff, _ = flags.GetBool("diff")
	}

	return params, nil
}

func runApply(cmd *cobra.Command, args []string) error {

	ctx, stop := common.WithInterrupt(cmd.Context())
	defer stop()

	var result *models.Result

	params, err := buildParams(cmd, args)
	if err != nil {
		result = models.NewFailedResult("%s", err)
	} else if client, err := connect(ctx); err != nil {
		result = models.NewFailedResult("%s", err)
	} else {
		result = users.NewManager(client).Ensure(ctx, params)
		disconnect(client)
	}

	result.Warnings = cfg.Warnings()

	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if result.ExitCode() != 0 {
		return errResultFailed
	}

	return nil
}
