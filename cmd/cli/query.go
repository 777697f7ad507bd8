package cli

import (
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/thand-io/zabbix-user/internal/common"
	"github.com/thand-io/zabbix-user/internal/models"
)

// queryUser evaluates a jq expression against the JSON form of user. The
// alias is bound to $alias.
func queryUser(expression string, user *models.User) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq expression: %s, error: %w", expression, err)
	}

	code, err := gojq.Compile(query, gojq.WithVariables([]string{"$alias"}))
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %s, error: %w", expression, err)
	}

	input, err := common.ConvertInterfaceToMap(user)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.Run(input, user.Alias)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if errVal, isErr := result.(error); isErr {
			return nil, fmt.Errorf("jq evaluation error: %w", errVal)
		}
		results = append(results, result)
	}

	return results, nil
}
