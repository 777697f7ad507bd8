package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thand-io/zabbix-user/internal/models"
	"github.com/thand-io/zabbix-user/internal/testing/mocks/zabbixserver"
	"github.com/thand-io/zabbix-user/internal/zabbix"
)

func newTestManager(t *testing.T, apiVersion string) (*Manager, *zabbixserver.Server) {
	t.Helper()

	server := zabbixserver.New(t, apiVersion)

	client, err := zabbix.Connect(context.Background(), zabbix.Options{
		URL:           server.URL,
		ValidateCerts: true,
	}, zabbix.Credentials{
		User:     zabbixserver.DefaultUser,
		Password: zabbixserver.DefaultPassword,
	})
	require.NoError(t, err)

	server.ResetCalls()
	return NewManager(client), server
}

func stringPtr(value string) *string {
	return &value
}

func newParams(alias string) *models.UserParams {
	return &models.UserParams{
		Alias:    alias,
		Password: "Pa55w0rd",
		Name:     stringPtr("John"),
		Surname:  stringPtr("Doe"),
		Groups:   models.UserGroups{{UsrgrpID: "7"}},
	}
}

func paramsWithMedia(alias string) *models.UserParams {
	params := newParams(alias)
	params.Medias = []models.Media{
		{MediaTypeID: "3", SendTo: models.SendTo{"+15550100"}},
		{MediaTypeID: "1", SendTo: models.SendTo{"ops@example.com", "jdoe@example.com"}},
	}
	return params
}

func TestEnsureCreatesUser(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)

	result := manager.Ensure(context.Background(), newParams("jdoe"))

	require.False(t, result.Failed, result.Msg)
	assert.True(t, result.Changed)
	assert.Equal(t, "Successfully created user 'jdoe'.", result.Result)
	require.NotNil(t, result.User)
	assert.Equal(t, "jdoe", result.User.Alias)
	assert.Equal(t, []string{"7"}, result.User.Groups)

	stored := server.User("jdoe")
	require.NotNil(t, stored)
	assert.Equal(t, "Pa55w0rd", stored.Password)
	assert.Equal(t, "John", stored.Fields["name"])
	assert.Equal(t, "Doe", stored.Fields["surname"])
	assert.Equal(t, "1", stored.Fields["type"])
	assert.Equal(t, []string{"7"}, stored.Groups)
}

func TestEnsureIsIdempotentAcrossVersions(t *testing.T) {
	for _, apiVersion := range []string{"4.0.0", "5.0.10", "5.2.0", "5.4.3", "6.0.0", "6.4.1", "7.0.0"} {
		t.Run(apiVersion, func(t *testing.T) {
			manager, server := newTestManager(t, apiVersion)

			first := manager.Ensure(context.Background(), paramsWithMedia("jdoe"))
			require.False(t, first.Failed, first.Msg)
			assert.True(t, first.Changed)

			second := manager.Ensure(context.Background(), paramsWithMedia("jdoe"))
			require.False(t, second.Failed, second.Msg)
			assert.False(t, second.Changed)
			assert.Equal(t, "No changes to the user 'jdoe' required.", second.Result)

			assert.Equal(t, []string{"user.create"}, server.MutatingCalls())
		})
	}
}

func TestEnsureReadsBackMedia(t *testing.T) {
	manager, _ := newTestManager(t, zabbixserver.DefaultVersion)

	params := paramsWithMedia("jdoe")
	disabled := models.FlexBool(false)
	severity := models.FlexInt(12)
	params.Medias[1].Active = &disabled
	params.Medias[1].Severity = &severity

	result := manager.Ensure(context.Background(), params)
	require.False(t, result.Failed, result.Msg)
	require.NotNil(t, result.User)
	require.Len(t, result.User.Medias, 2)

	sms := result.User.Medias[0]
	assert.Equal(t, models.SendTo{"+15550100"}, sms.SendTo)
	assert.True(t, sms.IsActive())
	assert.Equal(t, models.DefaultMediaSeverity, sms.GetSeverity())
	assert.Equal(t, models.DefaultMediaPeriod, sms.Period)

	email := result.User.Medias[1]
	assert.ElementsMatch(t, []string{"ops@example.com", "jdoe@example.com"}, []string(email.SendTo))
	assert.False(t, email.IsActive())
	assert.Equal(t, 12, email.GetSeverity())
}

func TestEnsureUpdatesChangedUser(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)
	server.SeedUser("jdoe", map[string]string{
		"name":    "Johnny",
		"surname": "Doe",
		"lang":    "de_DE",
	}, []string{"7"}, nil)

	result := manager.Ensure(context.Background(), newParams("jdoe"))

	require.False(t, result.Failed, result.Msg)
	assert.True(t, result.Changed)
	assert.Equal(t, "Successfully updated user 'jdoe'.", result.Result)

	stored := server.User("jdoe")
	require.NotNil(t, stored)
	assert.Equal(t, "John", stored.Fields["name"])
	assert.Equal(t, models.DefaultLang, stored.Fields["lang"])
	assert.Empty(t, stored.Password, "password must not be sent on update")
	assert.Equal(t, []string{"user.get", "user.update", "user.get"}, server.Calls())
}

func TestEnsureReplacesGroups(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)
	server.SeedUser("jdoe", map[string]string{"name": "John", "surname": "Doe"}, []string{"7", "9"}, nil)

	params := newParams("jdoe")
	params.Groups = models.UserGroups{{UsrgrpID: "9"}, {UsrgrpID: "12"}}

	result := manager.Ensure(context.Background(), params)
	require.False(t, result.Failed, result.Msg)
	assert.True(t, result.Changed)
	assert.Equal(t, []string{"9", "12"}, server.User("jdoe").Groups)
}

func TestEnsureGroupOrderDoesNotMatter(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)
	server.SeedUser("jdoe", map[string]string{"name": "John", "surname": "Doe"}, []string{"12", "7"}, nil)

	params := newParams("jdoe")
	params.Groups = models.UserGroups{{UsrgrpID: "7"}, {UsrgrpID: "12"}}

	result := manager.Ensure(context.Background(), params)
	require.False(t, result.Failed, result.Msg)
	assert.False(t, result.Changed)
	assert.Empty(t, server.MutatingCalls())
}

func TestEnsureIgnoresUnsetOptionalFields(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)
	server.SeedUser("jdoe", map[string]string{"name": "John", "surname": "Smith"}, []string{"9"},
		[]map[string]any{{"mediatypeid": "1", "sendto": []any{"jdoe@example.com"}, "active": "0", "severity": "63", "period": models.DefaultMediaPeriod}})

	params := &models.UserParams{
		Alias:    "jdoe",
		Password: "Pa55w0rd",
		Name:     stringPtr("John"),
	}

	result := manager.Ensure(context.Background(), params)
	require.False(t, result.Failed, result.Msg)
	assert.False(t, result.Changed)
	assert.Empty(t, server.MutatingCalls())

	stored := server.User("jdoe")
	assert.Equal(t, "Smith", stored.Fields["surname"])
	assert.Equal(t, []string{"9"}, stored.Groups)
	assert.Len(t, stored.Medias, 1)
}

func TestEnsureEquivalentTimeUnits(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)
	server.SeedUser("jdoe", map[string]string{
		"name":       "John",
		"surname":    "Doe",
		"autologout": "900",
		"refresh":    "30",
	}, []string{"7"}, nil)

	params := newParams("jdoe")
	params.Autologout = "15m"
	params.Refresh = "PT30S"

	result := manager.Ensure(context.Background(), params)
	require.False(t, result.Failed, result.Msg)
	assert.False(t, result.Changed)
}

func TestEnsureCheckMode(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		manager, server := newTestManager(t, zabbixserver.DefaultVersion)

		params := newParams("jdoe")
		params.CheckMode = true

		result := manager.Ensure(context.Background(), params)
		require.False(t, result.Failed, result.Msg)
		assert.True(t, result.Changed)
		assert.Zero(t, server.UserCount())
		assert.Empty(t, server.MutatingCalls())
	})

	t.Run("update", func(t *testing.T) {
		manager, server := newTestManager(t, zabbixserver.DefaultVersion)
		server.SeedUser("jdoe", map[string]string{"name": "Old"}, []string{"7"}, nil)

		params := newParams("jdoe")
		params.CheckMode = true

		result := manager.Ensure(context.Background(), params)
		require.False(t, result.Failed, result.Msg)
		assert.True(t, result.Changed)
		assert.Equal(t, "Old", server.User("jdoe").Fields["name"])
		assert.Empty(t, server.MutatingCalls())
	})

	t.Run("delete", func(t *testing.T) {
		manager, server := newTestManager(t, zabbixserver.DefaultVersion)
		server.SeedUser("jdoe", nil, []string{"7"}, nil)

		result := manager.Ensure(context.Background(), &models.UserParams{
			Alias:     "jdoe",
			State:     models.StateAbsent,
			CheckMode: true,
		})
		require.False(t, result.Failed, result.Msg)
		assert.True(t, result.Changed)
		assert.Equal(t, 1, server.UserCount())
		assert.Empty(t, server.MutatingCalls())
	})
}

func TestEnsureAbsent(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)

	missing := manager.Ensure(context.Background(), &models.UserParams{Alias: "ghost", State: models.StateAbsent})
	require.False(t, missing.Failed, missing.Msg)
	assert.False(t, missing.Changed)
	assert.Equal(t, "User 'ghost' does not exist.", missing.Result)

	server.SeedUser("jdoe", nil, []string{"7"}, nil)

	removed := manager.Ensure(context.Background(), &models.UserParams{Alias: "jdoe", State: models.StateAbsent})
	require.False(t, removed.Failed, removed.Msg)
	assert.True(t, removed.Changed)
	assert.Equal(t, "Successfully deleted user 'jdoe'.", removed.Result)
	assert.Nil(t, server.User("jdoe"))

	again := manager.Ensure(context.Background(), &models.UserParams{Alias: "jdoe", State: models.StateAbsent})
	assert.False(t, again.Changed)
}

func TestEnsurePresentThenAbsentRestoresServer(t *testing.T) {
	for _, apiVersion := range []string{"5.0.0", "5.4.0", "6.4.0"} {
		t.Run(apiVersion, func(t *testing.T) {
			manager, server := newTestManager(t, apiVersion)
			ctx := context.Background()
			initial := server.UserCount()

			created := manager.Ensure(ctx, paramsWithMedia("jdoe"))
			require.False(t, created.Failed, created.Msg)
			assert.True(t, created.Changed)
			assert.Equal(t, initial+1, server.UserCount())

			absent := paramsWithMedia("jdoe")
			absent.State = models.StateAbsent
			removed := manager.Ensure(ctx, absent)
			require.False(t, removed.Failed, removed.Msg)
			assert.True(t, removed.Changed)

			assert.Equal(t, initial, server.UserCount())
			assert.Nil(t, server.User("jdoe"))
		})
	}
}

func TestEnsureDiff(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)

	params := newParams("jdoe")
	params.Diff = true

	created := manager.Ensure(context.Background(), params)
	require.False(t, created.Failed, created.Msg)
	require.NotNil(t, created.Diff)
	assert.Empty(t, created.Diff.Before)
	assert.Equal(t, "jdoe", created.Diff.After["alias"])
	assert.Equal(t, []any{"7"}, created.Diff.After["usrgrps"])
	assert.NotContains(t, created.Diff.After, "passwd")

	params = newParams("jdoe")
	params.Name = stringPtr("Jonathan")
	params.Diff = true

	updated := manager.Ensure(context.Background(), params)
	require.False(t, updated.Failed, updated.Msg)
	require.NotNil(t, updated.Diff)
	assert.Equal(t, "John", updated.Diff.Before["name"])
	assert.Equal(t, "Jonathan", updated.Diff.After["name"])

	server.ResetCalls()
	removed := manager.Ensure(context.Background(), &models.UserParams{Alias: "jdoe", State: models.StateAbsent, Diff: true})
	require.False(t, removed.Failed, removed.Msg)
	require.NotNil(t, removed.Diff)
	assert.Equal(t, "jdoe", removed.Diff.Before["alias"])
	assert.Empty(t, removed.Diff.After)
}

func TestEnsureInvalidParams(t *testing.T) {
	manager, server := newTestManager(t, zabbixserver.DefaultVersion)

	params := newParams("jdoe")
	params.Password = ""
	params.Theme = "solarized"

	result := manager.Ensure(context.Background(), params)
	assert.True(t, result.Failed)
	assert.Contains(t, result.Msg, "user_password is required")
	assert.Contains(t, result.Msg, "user_theme must be one of")
	assert.Empty(t, server.Calls())
}

func TestEnsureServerFailures(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		manager, server := newTestManager(t, zabbixserver.DefaultVersion)
		server.FailMethod("user.create", "database is locked")

		result := manager.Ensure(context.Background(), newParams("jdoe"))
		assert.True(t, result.Failed)
		assert.False(t, result.Changed)
		assert.Contains(t, result.Msg, "Failed to create the user 'jdoe'")
		assert.Contains(t, result.Msg, "database is locked")
	})

	t.Run("delete", func(t *testing.T) {
		manager, server := newTestManager(t, zabbixserver.DefaultVersion)
		server.SeedUser("jdoe", nil, []string{"7"}, nil)
		server.FailMethod("user.delete", "no permissions")

		result := manager.Ensure(context.Background(), &models.UserParams{Alias: "jdoe", State: models.StateAbsent})
		assert.True(t, result.Failed)
		assert.Contains(t, result.Msg, "Failed to remove the user 'jdoe'")
	})
}

type failingAPI struct {
	err error
}

func (f *failingAPI) GetUser(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func (f *failingAPI) CreateUser(context.Context, *models.UserParams) (string, error) {
	return "", f.err
}

func (f *failingAPI) UpdateUser(context.Context, string, *models.UserParams) error {
	return f.err
}

func (f *failingAPI) DeleteUser(context.Context, string) error {
	return f.err
}

func TestEnsureLookupFailure(t *testing.T) {
	manager := NewManager(&failingAPI{err: errors.New("connection refused")})

	result := manager.Ensure(context.Background(), newParams("jdoe"))
	assert.True(t, result.Failed)
	assert.Equal(t, "Failed to check if the user 'jdoe' exists. Msg: connection refused", result.Msg)
	assert.Equal(t, 1, result.ExitCode())
}

func TestEnsureNilParams(t *testing.T) {
	manager := NewManager(&failingAPI{})
	assert.True(t, manager.Ensure(context.Background(), nil).Failed)
}
