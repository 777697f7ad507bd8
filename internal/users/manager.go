// Package users reconciles a single Zabbix user account with its desired
// state.
package users

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/thand-io/zabbix-user/internal/models"
)

// API is the part of the Zabbix client the manager depends on.
type API interface {
	GetUser(ctx context.Context, alias string) (*models.User, error)
	CreateUser(ctx context.Context, params *models.UserParams) (string, error)
	UpdateUser(ctx context.Context, userID string, params *models.UserParams) error
	DeleteUser(ctx context.Context, userID string) error
}

type Manager struct {
	api API
}

func NewManager(api API) *Manager {
	return &Manager{api: api}
}

// Ensure brings the user named by params.Alias into the requested state.
// Failures are reported on the result rather than returned.
func (m *Manager) Ensure(ctx context.Context, params *models.UserParams) *models.Result {

	if params == nil {
		return models.NewFailedResult("No user parameters given.")
	}

	if err := params.Prepare(); err != nil {
		return models.NewFailedResult("Invalid parameters for the user '%s'. Msg: %s",
			params.Alias, flatten(err))
	}

	logger := logrus.WithFields(logrus.Fields{
		"alias":      params.Alias,
		"state":      params.GetState(),
		"check_mode": params.CheckMode,
	})

	current, err := m.api.GetUser(ctx, params.Alias)
	if err != nil {
		logger.WithError(err).Error("Failed to look up user")
		return models.NewFailedResult("Failed to check if the user '%s' exists. Msg: %s",
			params.Alias, err)
	}

	if params.GetState() == models.StateAbsent {
		return m.remove(ctx, logger, params, current)
	}

	if current == nil {
		return m.create(ctx, logger, params)
	}

	return m.update(ctx, logger, params, current)
}

func (m *Manager) create(ctx context.Context, logger *logrus.Entry, params *models.UserParams) *models.Result {

	if len(params.Groups) == 0 {
		logger.Warn("Creating a user without user_groups; Zabbix may reject it")
	}

	after := projectDesired(params, nil)

	if params.CheckMode {
		logger.Info("Would create user")
		result := models.NewChangedResult("User '%s' would be created.", params.Alias)
		return m.withDiff(logger, result, params, nil, &after)
	}

	userID, err := m.api.CreateUser(ctx, params)
	if err != nil {
		logger.WithError(err).Error("Failed to create user")
		return models.NewFailedResult("Failed to create the user '%s'. Msg: %s", params.Alias, err)
	}

	logger.WithField("userid", userID).Info("Created user")

	result := models.NewChangedResult("Successfully created user '%s'.", params.Alias)
	result.User = m.refresh(ctx, logger, params.Alias)
	return m.withDiff(logger, result, params, nil, &after)
}

func (m *Manager) update(ctx context.Context, logger *logrus.Entry, params *models.UserParams, current *models.User) *models.Result {

	logger = logger.WithField("userid", current.UserID)

	before := projectCurrent(current, params)
	after := projectDesired(params, current)

	if before.Equal(after) {
		logger.Debug("User is up to date")
		result := models.NewUnchangedResult("No changes to the user '%s' required.", params.Alias)
		result.User = current
		return m.withDiff(logger, result, params, &before, &after)
	}

	if beforeMap, err := stateToMap(&before); err == nil {
		if afterMap, err := stateToMap(&after); err == nil {
			logger = logger.WithField("fields", strings.Join(changedFields(beforeMap, afterMap), ","))
		}
	}

	if params.CheckMode {
		logger.Info("Would update user")
		result := models.NewChangedResult("User '%s' would be updated.", params.Alias)
		result.User = current
		return m.withDiff(logger, result, params, &before, &after)
	}

	if err := m.api.UpdateUser(ctx, current.UserID, params); err != nil {
		logger.WithError(err).Error("Failed to update user")
		return models.NewFailedResult("Failed to update the user '%s'. Msg: %s", params.Alias, err)
	}

	logger.Info("Updated user")

	result := models.NewChangedResult("Successfully updated user '%s'.", params.Alias)
	result.User = m.refresh(ctx, logger, params.Alias)
	return m.withDiff(logger, result, params, &before, &after)
}

func (m *Manager) remove(ctx context.Context, logger *logrus.Entry, params *models.UserParams, current *models.User) *models.Result {

	if current == nil {
		logger.Debug("User is already absent")
		return models.NewUnchangedResult("User '%s' does not exist.", params.Alias)
	}

	logger = logger.WithField("userid", current.UserID)
	before := projectCurrent(current, nil)

	if params.CheckMode {
		logger.Info("Would delete user")
		result := models.NewChangedResult("User '%s' would be deleted.", params.Alias)
		return m.withDiff(logger, result, params, &before, nil)
	}

	if err := m.api.DeleteUser(ctx, current.UserID); err != nil {
		logger.WithError(err).Error("Failed to delete user")
		return models.NewFailedResult("Failed to remove the user '%s'. Msg: %s", params.Alias, err)
	}

	logger.Info("Deleted user")

	result := models.NewChangedResult("Successfully deleted user '%s'.", params.Alias)
	return m.withDiff(logger, result, params, &before, nil)
}

// refresh reads the user back after a change. A failure only costs the
// result its user, so it is logged and swallowed.
func (m *Manager) refresh(ctx context.Context, logger *logrus.Entry, alias string) *models.User {
	user, err := m.api.GetUser(ctx, alias)
	if err != nil {
		logger.WithError(err).Warn("Failed to read user back after change")
		return nil
	}
	return user
}

func (m *Manager) withDiff(logger *logrus.Entry, result *models.Result, params *models.UserParams, before, after *userState) *models.Result {
	if !params.Diff {
		return result
	}

	diff, err := newDiff(before, after)
	if err != nil {
		logger.WithError(err).Warn("Failed to render diff")
		return result
	}

	result.Diff = diff
	return result
}

// flatten joins a multierror into a single line.
func flatten(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	var parts []string
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if len(line) == 0 || strings.HasSuffix(line, "occurred:") {
			continue
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, "; ")
}
