package users

import (
	"cmp"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/thand-io/zabbix-user/internal/common"
	"github.com/thand-io/zabbix-user/internal/models"
)

// userState is the comparable shape of a user. Desired parameters and the
// server's view are both projected into it.
type userState struct {
	Alias       string       `json:"alias"`
	Name        *string      `json:"name,omitempty"`
	Surname     *string      `json:"surname,omitempty"`
	Type        string       `json:"type"`
	Autologin   string       `json:"autologin"`
	Autologout  string       `json:"autologout"`
	Lang        string       `json:"lang"`
	Refresh     string       `json:"refresh"`
	RowsPerPage string       `json:"rows_per_page"`
	Theme       string       `json:"theme"`
	URL         string       `json:"url"`
	Groups      []string     `json:"usrgrps,omitempty"`
	Medias      []mediaState `json:"medias,omitempty"`
}

type mediaState struct {
	MediaTypeID string   `json:"mediatypeid"`
	SendTo      []string `json:"sendto"`
	Active      string   `json:"active"`
	Severity    string   `json:"severity"`
	Period      string   `json:"period"`
}

func compareMedia(a, b mediaState) int {
	return cmp.Or(
		cmp.Compare(a.MediaTypeID, b.MediaTypeID),
		cmp.Compare(strings.Join(a.SendTo, ","), strings.Join(b.SendTo, ",")),
		cmp.Compare(a.Period, b.Period),
		cmp.Compare(a.Severity, b.Severity),
		cmp.Compare(a.Active, b.Active),
	)
}

func projectMedias(medias []models.Media) []mediaState {
	result := make([]mediaState, 0, len(medias))
	for _, media := range medias {
		sendTo := common.SortedUnique(common.FilterEmpty(media.SendTo...))
		if sendTo == nil {
			sendTo = []string{}
		}
		result = append(result, mediaState{
			MediaTypeID: media.MediaTypeID.String(),
			SendTo:      sendTo,
			Active:      strconv.FormatBool(media.IsActive()),
			Severity:    strconv.Itoa(media.GetSeverity()),
			Period:      strings.TrimSpace(media.Period),
		})
	}
	slices.SortFunc(result, compareMedia)
	return result
}

func projectGroups(ids []string) []string {
	groups := common.SortedUnique(ids)
	if groups == nil {
		groups = []string{}
	}
	return groups
}

// projectDesired builds the state params ask for. Time units that mean the
// same duration as the current value take the current spelling so "15m" and
// "900" do not cause an update.
func projectDesired(params *models.UserParams, current *models.User) userState {
	state := userState{
		Alias:       params.Alias,
		Name:        params.Name,
		Surname:     params.Surname,
		Type:        strconv.Itoa(int(params.GetType())),
		Autologin:   strconv.FormatBool(bool(params.Autologin)),
		Autologout:  params.Autologout,
		Lang:        params.Lang,
		Refresh:     params.Refresh,
		RowsPerPage: strconv.Itoa(int(params.RowsPerPage)),
		Theme:       string(params.Theme),
		URL:         params.RedirectURL,
	}

	if params.Groups != nil {
		state.Groups = projectGroups(params.Groups.IDs())
	}

	if params.Medias != nil {
		state.Medias = projectMedias(params.Medias)
	}

	if current != nil {
		if sameTimeUnit(state.Autologout, current.Autologout) {
			state.Autologout = current.Autologout
		}
		if sameTimeUnit(state.Refresh, current.Refresh) {
			state.Refresh = current.Refresh
		}
	}

	return state
}

// projectCurrent builds the state of user as stored on the server. With a
// non-nil params, attributes params leave unset are dropped so they are not
// compared.
func projectCurrent(user *models.User, params *models.UserParams) userState {
	name := user.Name
	surname := user.Surname

	state := userState{
		Alias:       user.Alias,
		Name:        &name,
		Surname:     &surname,
		Type:        strconv.Itoa(int(user.Type)),
		Autologin:   strconv.FormatBool(user.Autologin),
		Autologout:  user.Autologout,
		Lang:        user.Lang,
		Refresh:     user.Refresh,
		RowsPerPage: strconv.Itoa(user.RowsPerPage),
		Theme:       string(user.Theme),
		URL:         user.URL,
		Groups:      projectGroups(user.Groups),
		Medias:      projectMedias(user.Medias),
	}

	if params == nil {
		return state
	}

	if params.Name == nil {
		state.Name = nil
	}
	if params.Surname == nil {
		state.Surname = nil
	}
	if params.Groups == nil {
		state.Groups = nil
	}
	if params.Medias == nil {
		state.Medias = nil
	}

	return state
}

func sameTimeUnit(a, b string) bool {
	if a == b {
		return true
	}
	left, err := common.ParseTimeUnit(a)
	if err != nil {
		return false
	}
	right, err := common.ParseTimeUnit(b)
	if err != nil {
		return false
	}
	return left == right
}

func (s userState) Equal(other userState) bool {
	return reflect.DeepEqual(s, other)
}

// changedFields lists the keys whose values differ between two flattened
// states, sorted.
func changedFields(before, after map[string]any) []string {
	var fields []string
	for key, value := range after {
		if !reflect.DeepEqual(before[key], value) {
			fields = append(fields, key)
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			fields = append(fields, key)
		}
	}
	slices.Sort(fields)
	return fields
}
