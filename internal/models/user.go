package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

func (s State) IsValid() bool {
	return s == StatePresent || s == StateAbsent
}

// UserType is the privilege level of a Zabbix user. On Zabbix 5.2 and
// later the same numbers identify the built-in user roles.
type UserType int

const (
	UserTypeUser       UserType = 1
	UserTypeAdmin      UserType = 2
	UserTypeSuperAdmin UserType = 3
)

func (t UserType) IsValid() bool {
	return t >= UserTypeUser && t <= UserTypeSuperAdmin
}

func (t UserType) String() string {
	switch t {
	case UserTypeUser:
		return "Zabbix user"
	case UserTypeAdmin:
		return "Zabbix admin"
	case UserTypeSuperAdmin:
		return "Zabbix super admin"
	default:
		return fmt.Sprintf("unknown (%d)", int(t))
	}
}

type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeBlue    Theme = "blue-theme"
	ThemeDark    Theme = "dark-theme"
)

func (t Theme) IsValid() bool {
	switch t {
	case ThemeDefault, ThemeBlue, ThemeDark:
		return true
	}
	return false
}

// UserGroup references a Zabbix user group by id.
type UserGroup struct {
	UsrgrpID FlexString `json:"usrgrpid"`
}

// UnmarshalJSON also accepts a bare id in place of the object.
func (g *UserGroup) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var raw struct {
			UsrgrpID FlexString `json:"usrgrpid"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		g.UsrgrpID = raw.UsrgrpID
		return nil
	}
	return json.Unmarshal(data, &g.UsrgrpID)
}

// UserGroups is a list of group references. A single object is accepted in
// place of a list.
type UserGroups []UserGroup

func (g *UserGroups) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []UserGroup
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*g = list
		return nil
	}

	var single UserGroup
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*g = UserGroups{single}
	return nil
}

// IDs returns the group ids in input order.
func (g UserGroups) IDs() []string {
	ids := make([]string, 0, len(g))
	for _, group := range g {
		ids = append(ids, group.UsrgrpID.String())
	}
	return ids
}

// User is the server side view of a Zabbix user account.
type User struct {
	UserID      string   `json:"userid,omitempty" yaml:"userid,omitempty"`
	Alias       string   `json:"alias" yaml:"alias"`
	Name        string   `json:"name" yaml:"name"`
	Surname     string   `json:"surname" yaml:"surname"`
	Type        UserType `json:"type" yaml:"type"`
	Autologin   bool     `json:"autologin" yaml:"autologin"`
	Autologout  string   `json:"autologout" yaml:"autologout"`
	Lang        string   `json:"lang" yaml:"lang"`
	Refresh     string   `json:"refresh" yaml:"refresh"`
	RowsPerPage int      `json:"rows_per_page" yaml:"rows_per_page"`
	Theme       Theme    `json:"theme" yaml:"theme"`
	URL         string   `json:"url" yaml:"url"`
	Groups      []string `json:"usrgrps" yaml:"usrgrps"`
	Medias      []Media  `json:"medias" yaml:"medias"`
}

func (u *User) GetName() string {
	full := strings.TrimSpace(strings.Join([]string{u.Name, u.Surname}, " "))
	if len(full) > 0 {
		return full
	}
	return u.Alias
}
