package common

import (
	"encoding/json"
)

// ConvertInterfaceToMap flattens a struct into a map using its json tags.
func ConvertInterfaceToMap(from any) (map[string]any, error) {
	if from == nil {
		return nil, nil
	}

	data, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}
