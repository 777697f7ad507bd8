package users

import (
	"github.com/thand-io/zabbix-user/internal/common"
	"github.com/thand-io/zabbix-user/internal/models"
)

func stateToMap(state *userState) (map[string]any, error) {
	if state == nil {
		return map[string]any{}, nil
	}
	return common.ConvertInterfaceToMap(state)
}

// newDiff flattens before and after. A nil state renders as an empty map,
// which is how a missing user is shown.
func newDiff(before, after *userState) (*models.Diff, error) {
	beforeMap, err := stateToMap(before)
	if err != nil {
		return nil, err
	}
	afterMap, err := stateToMap(after)
	if err != nil {
		return nil, err
	}
	return &models.Diff{
		Before: beforeMap,
		After:  afterMap,
	}, nil
}
