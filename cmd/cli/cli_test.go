package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thand-io/zabbix-user/internal/models"
	"github.com/thand-io/zabbix-user/internal/testing/mocks/zabbixserver"
)

func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			_ = slice.Replace([]string{})
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

// runCLI executes the root command and returns stdout and the exit code.
func runCLI(t *testing.T, args ...string) (string, int) {
	t.Helper()

	for _, cmd := range []*cobra.Command{rootCmd, applyCmd, getCmd} {
		resetFlags(cmd.Flags())
		resetFlags(cmd.PersistentFlags())
	}

	var stdout bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	code := Execute()
	return stdout.String(), code
}

func setupServer(t *testing.T) *zabbixserver.Server {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("ZABBIX_SERVER_URL", "")
	t.Setenv("ZABBIX_API_TOKEN", "")
	t.Setenv("ZABBIX_LOGIN_PASSWORD", zabbixserver.DefaultPassword)

	return zabbixserver.New(t, zabbixserver.DefaultVersion)
}

func serverArgs(server *zabbixserver.Server, args ...string) []string {
	return append(args, "--server-url", server.URL, "--login-user", zabbixserver.DefaultUser)
}

func decodeResult(t *testing.T, output string) *models.Result {
	t.Helper()
	var result models.Result
	require.NoError(t, json.Unmarshal([]byte(output), &result), output)
	return &result
}

func writeParams(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const paramsYAML = `
alias: jdoe
user_name: John
user_surname: Doe
user_password: Pa55w0rd
user_type: 2
user_groups:
  - usrgrpid: 7
user_medias:
  - mediatypeid: 1
    sendto:
      - jdoe@example.com
`

func TestApplyFromParamsFile(t *testing.T) {
	server := setupServer(t)
	path := writeParams(t, paramsYAML)

	output, code := runCLI(t, serverArgs(server, "apply", path)...)
	require.Equal(t, 0, code, output)

	result := decodeResult(t, output)
	assert.True(t, result.Changed)
	assert.Equal(t, "Successfully created user 'jdoe'.", result.Result)
	require.NotNil(t, server.User("jdoe"))
	assert.Equal(t, "2", server.User("jdoe").Fields["type"])

	output, code = runCLI(t, serverArgs(server, "apply", "--params", path)...)
	require.Equal(t, 0, code, output)

	result = decodeResult(t, output)
	assert.False(t, result.Changed)
	assert.Equal(t, "No changes to the user 'jdoe' required.", result.Result)

	// The login session is closed after each run
	assert.Zero(t, server.ActiveSessions())
}

func TestApplyFlagsOverrideFile(t *testing.T) {
	server := setupServer(t)
	path := writeParams(t, paramsYAML)

	output, code := runCLI(t, serverArgs(server, "apply", path, "--alias", "jsmith", "--group", "9", "--group", "12", "--diff")...)
	require.Equal(t, 0, code, output)

	result := decodeResult(t, output)
	assert.True(t, result.Changed)
	require.NotNil(t, result.Diff)
	assert.Equal(t, "jsmith", result.Diff.After["alias"])

	stored := server.User("jsmith")
	require.NotNil(t, stored)
	assert.Equal(t, []string{"9", "12"}, stored.Groups)
	assert.Nil(t, server.User("jdoe"))
}

func TestApplyCheckMode(t *testing.T) {
	server := setupServer(t)

	output, code := runCLI(t, serverArgs(server, "apply",
		"--alias", "jdoe", "--password", "Pa55w0rd", "--group", "7", "--check")...)
	require.Equal(t, 0, code, output)

	result := decodeResult(t, output)
	assert.True(t, result.Changed)
	assert.Zero(t, server.UserCount())
	assert.Empty(t, server.MutatingCalls())
}

func TestApplyWarnsWithoutGroups(t *testing.T) {
	server := setupServer(t)

	output, code := runCLI(t, serverArgs(server, "apply", "--alias", "jdoe", "--password", "Pa55w0rd")...)
	require.Equal(t, 0, code, output)

	result := decodeResult(t, output)
	assert.True(t, result.Changed)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "without user_groups")
}

func TestApplyAbsent(t *testing.T) {
	server := setupServer(t)
	server.SeedUser("jdoe", nil, []string{"7"}, nil)

	output, code := runCLI(t, serverArgs(server, "apply", "--alias", "jdoe", "--state", "absent")...)
	require.Equal(t, 0, code, output)
	assert.True(t, decodeResult(t, output).Changed)
	assert.Nil(t, server.User("jdoe"))

	output, code = runCLI(t, serverArgs(server, "apply", "--alias", "jdoe", "--state", "absent")...)
	require.Equal(t, 0, code, output)
	assert.False(t, decodeResult(t, output).Changed)
}

func TestApplyInvalidParams(t *testing.T) {
	server := setupServer(t)

	output, code := runCLI(t, serverArgs(server, "apply", "--alias", "jdoe")...)
	assert.Equal(t, 1, code)

	result := decodeResult(t, output)
	assert.True(t, result.Failed)
	assert.Contains(t, result.Msg, "user_password is required")
}

func TestApplyRejectsExplicitZeroType(t *testing.T) {
	server := setupServer(t)

	output, code := runCLI(t, serverArgs(server, "apply",
		"--alias", "jdoe", "--password", "Pa55w0rd", "--group", "7", "--type", "0")...)
	assert.Equal(t, 1, code)

	result := decodeResult(t, output)
	assert.True(t, result.Failed)
	assert.Contains(t, result.Msg, "user_type must be one of 1, 2, 3; got 0")
	assert.Zero(t, server.UserCount())
}

func TestVerboseDumpsSettings(t *testing.T) {
	server := setupServer(t)
	logPath := filepath.Join(t.TempDir(), "zabbix-user.log")
	t.Setenv("ZABBIX_LOGGING_OUTPUT", logPath)

	_, code := runCLI(t, serverArgs(server, "-v", "apply", "--alias", "jdoe", "--state", "absent")...)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Config 'logging.level': debug")
	assert.Contains(t, string(data), "Config 'server.login_password': ********")
}

func TestApplyMissingServer(t *testing.T) {
	setupServer(t)

	output, code := runCLI(t, "apply", "--alias", "jdoe", "--state", "absent")
	assert.Equal(t, 1, code)

	result := decodeResult(t, output)
	assert.True(t, result.Failed)
	assert.Contains(t, result.Msg, "server.url is required")
}

func TestApplyUnreadableParamsFile(t *testing.T) {
	server := setupServer(t)

	output, code := runCLI(t, serverArgs(server, "apply", filepath.Join(t.TempDir(), "missing.yaml"))...)
	assert.Equal(t, 1, code)
	assert.True(t, decodeResult(t, output).Failed)
	assert.Empty(t, server.Calls())
}

func TestGetUser(t *testing.T) {
	server := setupServer(t)
	server.SeedUser("jdoe", map[string]string{"name": "John", "surname": "Doe"}, []string{"7"}, nil)

	output, code := runCLI(t, serverArgs(server, "get", "jdoe", "--output", "json")...)
	require.Equal(t, 0, code, output)

	var user models.User
	require.NoError(t, json.Unmarshal([]byte(output), &user))
	assert.Equal(t, "jdoe", user.Alias)
	assert.Equal(t, []string{"7"}, user.Groups)

	output, code = runCLI(t, serverArgs(server, "get", "jdoe", "-o", "yaml")...)
	require.Equal(t, 0, code, output)
	assert.Contains(t, output, "alias: jdoe")

	output, code = runCLI(t, serverArgs(server, "get", "jdoe")...)
	require.Equal(t, 0, code, output)
	assert.Contains(t, output, "John Doe")
	assert.Contains(t, output, "Zabbix user")

	_, code = runCLI(t, serverArgs(server, "get", "ghost")...)
	assert.Equal(t, 1, code)

	_, code = runCLI(t, serverArgs(server, "get", "jdoe", "-o", "xml")...)
	assert.Equal(t, 1, code)
}

func TestGetUserQuery(t *testing.T) {
	server := setupServer(t)
	server.SeedUser("jdoe", map[string]string{"name": "John"}, []string{"7", "9"}, nil)

	output, code := runCLI(t, serverArgs(server, "get", "jdoe", "-q", ".usrgrps[]")...)
	require.Equal(t, 0, code, output)
	assert.Equal(t, "7\n9\n", output)

	output, code = runCLI(t, serverArgs(server, "get", "jdoe", "-o", "json", "-q", "{alias: $alias, name}")...)
	require.Equal(t, 0, code, output)

	var projected map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &projected))
	assert.Equal(t, map[string]string{"alias": "jdoe", "name": "John"}, projected)

	_, code = runCLI(t, serverArgs(server, "get", "jdoe", "-q", ".[")...)
	assert.Equal(t, 1, code)
}

func TestVersion(t *testing.T) {
	output, code := runCLI(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, output, "zabbix-user")
}
