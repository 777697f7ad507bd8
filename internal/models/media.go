package models

import (
	"encoding/json"
	"strings"
)

const (
	DefaultMediaSeverity = 63
	DefaultMediaPeriod   = "1-7,00:00-24:00"

	// Media type id of the built-in e-mail media type
	EmailMediaTypeID = "1"

	// Severities are a bit mask over the six trigger severities.
	MaxMediaSeverity = 63
)

// SendTo holds media recipients. A single string is accepted in place of a
// list since Zabbix only uses lists for e-mail media.
type SendTo []string

func (s *SendTo) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = SendTo{single}
	return nil
}

// Media is a notification channel of a user.
type Media struct {
	MediaTypeID FlexString `json:"mediatypeid" yaml:"mediatypeid"`
	SendTo      SendTo     `json:"sendto" yaml:"sendto"`
	Active      *FlexBool  `json:"active,omitempty" yaml:"active,omitempty"`
	Severity    *FlexInt   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Period      string     `json:"period,omitempty" yaml:"period,omitempty"`
}

// SetDefaults fills in active, severity and period when they were omitted.
func (m *Media) SetDefaults() {
	if m.Active == nil {
		active := FlexBool(true)
		m.Active = &active
	}
	if m.Severity == nil {
		severity := FlexInt(DefaultMediaSeverity)
		m.Severity = &severity
	}
	if len(strings.TrimSpace(m.Period)) == 0 {
		m.Period = DefaultMediaPeriod
	}
}

func (m *Media) IsActive() bool {
	return m.Active == nil || bool(*m.Active)
}

func (m *Media) GetSeverity() int {
	if m.Severity == nil {
		return DefaultMediaSeverity
	}
	return int(*m.Severity)
}
