package zabbix

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/thand-io/zabbix-user/internal/models"
)

var userOutputFields = []string{
	"name",
	"surname",
	"autologin",
	"autologout",
	"lang",
	"refresh",
	"rows_per_page",
	"theme",
	"url",
}

var mediaOutputFields = []string{
	"mediatypeid",
	"sendto",
	"active",
	"severity",
	"period",
}

type wireGroup struct {
	UsrgrpID models.FlexString `json:"usrgrpid"`
}

type wireMedia struct {
	MediaTypeID models.FlexString `json:"mediatypeid"`
	SendTo      models.SendTo     `json:"sendto"`
	Active      models.FlexString `json:"active"`
	Severity    models.FlexString `json:"severity"`
	Period      string            `json:"period"`
}

type wireUser struct {
	UserID      models.FlexString `json:"userid"`
	Alias       string            `json:"alias"`
	Username    string            `json:"username"`
	Name        string            `json:"name"`
	Surname     string            `json:"surname"`
	Type        models.FlexString `json:"type"`
	RoleID      models.FlexString `json:"roleid"`
	Autologin   models.FlexString `json:"autologin"`
	Autologout  string            `json:"autologout"`
	Lang        string            `json:"lang"`
	Refresh     string            `json:"refresh"`
	RowsPerPage models.FlexString `json:"rows_per_page"`
	Theme       string            `json:"theme"`
	URL         string            `json:"url"`
	Usrgrps     []wireGroup       `json:"usrgrps"`
	Medias      []wireMedia       `json:"medias"`
}

func (w *wireUser) toUser() *models.User {
	alias := w.Username
	if len(alias) == 0 {
		alias = w.Alias
	}

	userType := w.RoleID
	if len(userType) == 0 {
		userType = w.Type
	}

	user := &models.User{
		UserID:      w.UserID.String(),
		Alias:       alias,
		Name:        w.Name,
		Surname:     w.Surname,
		Type:        models.UserType(atoi(userType)),
		Autologin:   w.Autologin == "1",
		Autologout:  w.Autologout,
		Lang:        w.Lang,
		Refresh:     w.Refresh,
		RowsPerPage: atoi(w.RowsPerPage),
		Theme:       models.Theme(w.Theme),
		URL:         w.URL,
		Groups:      make([]string, 0, len(w.Usrgrps)),
		Medias:      make([]models.Media, 0, len(w.Medias)),
	}

	for _, group := range w.Usrgrps {
		user.Groups = append(user.Groups, group.UsrgrpID.String())
	}

	for _, media := range w.Medias {
		// Zabbix stores 0 for an enabled media
		active := models.FlexBool(media.Active != "1")
		severity := models.FlexInt(atoi(media.Severity))
		user.Medias = append(user.Medias, models.Media{
			MediaTypeID: media.MediaTypeID,
			SendTo:      media.SendTo,
			Active:      &active,
			Severity:    &severity,
			Period:      media.Period,
		})
	}

	return user
}

func atoi(value models.FlexString) int {
	parsed, err := strconv.Atoi(value.String())
	if err != nil {
		return 0
	}
	return parsed
}

func flag(value bool) string {
	if value {
		return "1"
	}
	return "0"
}

// GetUser looks a user up by alias. It returns nil without an error when no
// such user exists.
func (c *Client) GetUser(ctx context.Context, alias string) (*models.User, error) {

	f, err := c.features(ctx)
	if err != nil {
		return nil, err
	}

	output := append([]string{"userid", f.aliasField(), f.typeField()}, userOutputFields...)

	params := map[string]any{
		"output": output,
		"filter": map[string]any{
			f.aliasField(): alias,
		},
		"selectUsrgrps": []string{"usrgrpid"},
		"selectMedias":  mediaOutputFields,
	}

	var users []wireUser
	if err := c.Call(ctx, "user.get", params, &users); err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, nil
	}

	if len(users) > 1 {
		logrus.WithFields(logrus.Fields{
			"alias": alias,
			"count": len(users),
		}).Warn("More than one user matched the alias, using the first")
	}

	return users[0].toUser(), nil
}

// userPayload builds the user.create/user.update parameters. Optional
// attributes that were not set are left out so the server keeps its value.
func userPayload(f features, params *models.UserParams) map[string]any {

	payload := map[string]any{
		f.aliasField():  params.Alias,
		f.typeField():   strconv.Itoa(int(params.GetType())),
		"autologin":     flag(bool(params.Autologin)),
		"autologout":    params.Autologout,
		"lang":          params.Lang,
		"refresh":       params.Refresh,
		"rows_per_page": strconv.Itoa(int(params.RowsPerPage)),
		"theme":         string(params.Theme),
		"url":           params.RedirectURL,
	}

	if params.Name != nil {
		payload["name"] = *params.Name
	}

	if params.Surname != nil {
		payload["surname"] = *params.Surname
	}

	if params.Groups != nil {
		groups := make([]map[string]string, 0, len(params.Groups))
		for _, id := range params.Groups.IDs() {
			groups = append(groups, map[string]string{"usrgrpid": id})
		}
		payload["usrgrps"] = groups
	}

	if params.Medias != nil {
		medias := make([]map[string]any, 0, len(params.Medias))
		for _, media := range params.Medias {
			medias = append(medias, map[string]any{
				"mediatypeid": media.MediaTypeID.String(),
				"sendto":      []string(media.SendTo),
				"active":      flag(!media.IsActive()),
				"severity":    strconv.Itoa(media.GetSeverity()),
				"period":      media.Period,
			})
		}
		payload[f.mediasField()] = medias
	}

	return payload
}

type userIDsResult struct {
	UserIDs []models.FlexString `json:"userids"`
}

// CreateUser creates the user described by params and returns its id.
func (c *Client) CreateUser(ctx context.Context, params *models.UserParams) (string, error) {

	f, err := c.features(ctx)
	if err != nil {
		return "", err
	}

	payload := userPayload(f, params)
	payload["passwd"] = params.Password

	var result userIDsResult
	if err := c.Call(ctx, "user.create", payload, &result); err != nil {
		return "", err
	}

	if len(result.UserIDs) == 0 {
		return "", fmt.Errorf("user.create returned no user id")
	}

	return result.UserIDs[0].String(), nil
}

// UpdateUser updates an existing user. The password is never sent.
func (c *Client) UpdateUser(ctx context.Context, userID string, params *models.UserParams) error {

	f, err := c.features(ctx)
	if err != nil {
		return err
	}

	payload := userPayload(f, params)
	payload["userid"] = userID

	return c.Call(ctx, "user.update", payload, nil)
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	var result userIDsResult
	if err := c.Call(ctx, "user.delete", []string{userID}, &result); err != nil {
		return err
	}
	return nil
}
