package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/thand-io/zabbix-user/internal/common"
)

const (
	DefaultAutologout  = "15m"
	DefaultLang        = "en_GB"
	DefaultRefresh     = "30s"
	DefaultRowsPerPage = 50

	maxRowsPerPage = 999999
)

// UserParams is the desired state of one Zabbix user. Name, surname, groups
// and medias are optional: when left nil they are neither compared nor sent,
// so an existing value on the server is kept. Every other attribute has a
// default and is always enforced.
type UserParams struct {
	Alias       string     `json:"alias"`
	State       State      `json:"state,omitempty"`
	Autologin   FlexBool   `json:"autologin,omitempty"`
	Autologout  string     `json:"autologout,omitempty"`
	Lang        string     `json:"lang,omitempty"`
	Name        *string    `json:"user_name,omitempty"`
	Surname     *string    `json:"user_surname,omitempty"`
	Password    string     `json:"user_password,omitempty"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	Refresh     string     `json:"refresh,omitempty"`
	RowsPerPage FlexInt    `json:"rows_per_page,omitempty"`
	Theme       Theme      `json:"user_theme,omitempty"`
	Type        *FlexInt   `json:"user_type,omitempty"`
	Groups      UserGroups `json:"user_groups,omitempty"`
	Medias      []Media    `json:"user_medias,omitempty"`

	// Report what would change without calling any mutating API method.
	CheckMode bool `json:"check_mode,omitempty"`
	// Include before/after state in the result.
	Diff bool `json:"diff,omitempty"`
}

// UnmarshalJSON accepts plain numbers for the scalar string attributes, so
// unquoted YAML such as "autologout: 0" or a numeric password decodes.
func (p *UserParams) UnmarshalJSON(data []byte) error {
	type plain UserParams
	aux := struct {
		*plain
		Autologout  scalarString  `json:"autologout,omitempty"`
		Lang        scalarString  `json:"lang,omitempty"`
		Name        *scalarString `json:"user_name,omitempty"`
		Surname     *scalarString `json:"user_surname,omitempty"`
		Password    scalarString  `json:"user_password,omitempty"`
		RedirectURL scalarString  `json:"redirect_url,omitempty"`
		Refresh     scalarString  `json:"refresh,omitempty"`
	}{
		plain:       (*plain)(p),
		Autologout:  scalarString(p.Autologout),
		Lang:        scalarString(p.Lang),
		Name:        (*scalarString)(p.Name),
		Surname:     (*scalarString)(p.Surname),
		Password:    scalarString(p.Password),
		RedirectURL: scalarString(p.RedirectURL),
		Refresh:     scalarString(p.Refresh),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Autologout = string(aux.Autologout)
	p.Lang = string(aux.Lang)
	p.Password = string(aux.Password)
	p.RedirectURL = string(aux.RedirectURL)
	p.Refresh = string(aux.Refresh)
	p.Name = aux.Name.ptr()
	p.Surname = aux.Surname.ptr()
	return nil
}

// scalarString takes a JSON string verbatim or the literal text of a number.
type scalarString string

func (s *scalarString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = scalarString(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", string(data))
	}
	*s = scalarString(n.String())
	return nil
}

func (s *scalarString) ptr() *string {
	if s == nil {
		return nil
	}
	value := string(*s)
	return &value
}

func (p *UserParams) GetState() State {
	if len(p.State) == 0 {
		return StatePresent
	}
	return p.State
}

func (p *UserParams) GetType() UserType {
	if p.Type == nil {
		return UserTypeUser
	}
	return UserType(*p.Type)
}

// SetDefaults applies the defaults for every attribute that has one.
func (p *UserParams) SetDefaults() {
	p.Alias = strings.TrimSpace(p.Alias)

	if len(p.State) == 0 {
		p.State = StatePresent
	}
	if len(p.Autologout) == 0 {
		p.Autologout = DefaultAutologout
	}
	if len(p.Lang) == 0 {
		p.Lang = DefaultLang
	}
	if len(p.Refresh) == 0 {
		p.Refresh = DefaultRefresh
	}
	if p.RowsPerPage == 0 {
		p.RowsPerPage = DefaultRowsPerPage
	}
	if len(p.Theme) == 0 {
		p.Theme = ThemeDefault
	}
	if p.Type == nil {
		userType := FlexInt(UserTypeUser)
		p.Type = &userType
	}
	for i := range p.Medias {
		p.Medias[i].SetDefaults()
	}
}

// Validate reports every problem with the parameters at once.
func (p *UserParams) Validate() error {
	var result *multierror.Error

	if len(p.Alias) == 0 {
		result = multierror.Append(result, fmt.Errorf("alias is required"))
	}

	if !p.GetState().IsValid() {
		result = multierror.Append(result, fmt.Errorf(
			"state must be one of present, absent; got %q", p.State))
	}

	// Only the alias matters when removing a user
	if p.GetState() == StateAbsent {
		return result.ErrorOrNil()
	}

	if len(p.Password) == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"user_password is required when state is present"))
	}

	if !p.GetType().IsValid() {
		result = multierror.Append(result, fmt.Errorf(
			"user_type must be one of 1, 2, 3; got %d", int(p.GetType())))
	}

	if !p.Theme.IsValid() {
		result = multierror.Append(result, fmt.Errorf(
			"user_theme must be one of default, blue-theme, dark-theme; got %q", p.Theme))
	}

	if p.RowsPerPage < 1 || p.RowsPerPage > maxRowsPerPage {
		result = multierror.Append(result, fmt.Errorf(
			"rows_per_page must be between 1 and %d; got %d", maxRowsPerPage, p.RowsPerPage))
	}

	if err := common.ValidateTimeUnitRange(p.Autologout, 90*time.Second, 24*time.Hour, true); err != nil {
		result = multierror.Append(result, fmt.Errorf("autologout: %w", err))
	}

	if err := common.ValidateTimeUnitRange(p.Refresh, 0, time.Hour, true); err != nil {
		result = multierror.Append(result, fmt.Errorf("refresh: %w", err))
	}

	if p.Groups != nil && len(p.Groups) == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"user_groups must not be empty when set; omit it to keep the current groups"))
	}

	for i, group := range p.Groups {
		if !common.IsAllDigits(group.UsrgrpID.String()) {
			result = multierror.Append(result, fmt.Errorf(
				"user_groups[%d]: usrgrpid must be a numeric id; got %q", i, group.UsrgrpID))
		}
	}

	for i, media := range p.Medias {
		if !common.IsAllDigits(media.MediaTypeID.String()) {
			result = multierror.Append(result, fmt.Errorf(
				"user_medias[%d]: mediatypeid must be a numeric id; got %q", i, media.MediaTypeID))
		}
		if len(common.FilterEmpty(media.SendTo...)) == 0 {
			result = multierror.Append(result, fmt.Errorf(
				"user_medias[%d]: sendto is required", i))
		}
		if severity := media.GetSeverity(); severity < 0 || severity > MaxMediaSeverity {
			result = multierror.Append(result, fmt.Errorf(
				"user_medias[%d]: severity must be between 0 and %d; got %d", i, MaxMediaSeverity, severity))
		}
	}

	return result.ErrorOrNil()
}

// Prepare applies defaults, validates and normalises time units. It is the
// single entry point callers use before reconciling.
func (p *UserParams) Prepare() error {
	p.SetDefaults()

	if err := p.Validate(); err != nil {
		return err
	}

	if p.GetState() == StateAbsent {
		return nil
	}

	autologout, err := common.NormalizeTimeUnit(p.Autologout)
	if err != nil {
		return fmt.Errorf("autologout: %w", err)
	}
	p.Autologout = autologout

	refresh, err := common.NormalizeTimeUnit(p.Refresh)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	p.Refresh = refresh

	for i := range p.Medias {
		p.Medias[i].SendTo = common.FilterEmpty(p.Medias[i].SendTo...)

		if p.Medias[i].MediaTypeID != EmailMediaTypeID {
			continue
		}
		for _, address := range p.Medias[i].SendTo {
			if !common.IsValidEmail(address) {
				logrus.WithFields(logrus.Fields{
					"alias":  p.Alias,
					"sendto": address,
					"media":  i,
				}).Warn("E-mail media recipient does not look like an e-mail address")
			}
		}
	}

	return nil
}
