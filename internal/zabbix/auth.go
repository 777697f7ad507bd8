package zabbix

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Login opens a session with user.login. The session is closed by Logout.
func (c *Client) Login(ctx context.Context, user, password string) error {

	f, err := c.features(ctx)
	if err != nil {
		return err
	}

	params := map[string]any{
		f.loginUserField(): user,
		"password":         password,
	}

	var token string
	if err := c.Call(ctx, "user.login", params, &token); err != nil {
		return fmt.Errorf("failed to login as %s: %w", user, err)
	}

	if len(token) == 0 {
		return fmt.Errorf("failed to login as %s: empty session id", user)
	}

	c.token = token
	c.session = true

	logrus.WithFields(logrus.Fields{
		"client": c.id.String(),
		"user":   user,
	}).Debug("Logged in to Zabbix API")

	return nil
}

// UseToken authenticates with an API token. Token sessions are not closed
// by Logout.
func (c *Client) UseToken(token string) {
	c.token = token
	c.session = false
}

func (c *Client) IsAuthenticated() bool {
	return len(c.token) > 0
}

// Logout closes a session opened by Login. It is a no-op otherwise.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session {
		return nil
	}

	var ok bool
	if err := c.Call(ctx, "user.logout", nil, &ok); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	c.token = ""
	c.session = false

	logrus.WithField("client", c.id.String()).Debug("Logged out of Zabbix API")
	return nil
}
