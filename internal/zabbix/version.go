package zabbix

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
)

var (
	// user.type was replaced by user roles
	versionUserRoles = version.Must(version.NewVersion("5.2"))
	// alias was renamed to username, user_medias to medias
	versionUsername = version.Must(version.NewVersion("5.4"))
	// API tokens may be sent in the Authorization header
	versionBearerAuth = version.Must(version.NewVersion("6.4"))
)

// features are the version dependent details of the wire format.
type features struct {
	UseRoles    bool
	UseUsername bool
	UseBearer   bool
}

func (f features) aliasField() string {
	if f.UseUsername {
		return "username"
	}
	return "alias"
}

func (f features) typeField() string {
	if f.UseRoles {
		return "roleid"
	}
	return "type"
}

func (f features) mediasField() string {
	if f.UseUsername {
		return "medias"
	}
	return "user_medias"
}

func (f features) loginUserField() string {
	if f.UseUsername {
		return "username"
	}
	return "user"
}

func featuresFor(v *version.Version) features {
	return features{
		UseRoles:    v.GreaterThanOrEqual(versionUserRoles),
		UseUsername: v.GreaterThanOrEqual(versionUsername),
		UseBearer:   v.GreaterThanOrEqual(versionBearerAuth),
	}
}

// Version returns the API version of the server. The value is fetched once
// per client; apiinfo.version never requires authentication.
func (c *Client) Version(ctx context.Context) (*version.Version, error) {
	if c.version != nil {
		return c.version, nil
	}

	var raw string
	if err := c.Call(ctx, "apiinfo.version", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get API version: %w", err)
	}

	parsed, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API version %q: %w", raw, err)
	}

	logrus.WithFields(logrus.Fields{
		"client":  c.id.String(),
		"version": parsed.String(),
	}).Debug("Detected Zabbix API version")

	c.version = parsed
	return parsed, nil
}

func (c *Client) features(ctx context.Context) (features, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return features{}, err
	}
	return featuresFor(v), nil
}
