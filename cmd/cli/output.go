package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/thand-io/zabbix-user/internal/models"
	"gopkg.in/yaml.v3"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// writeQueryResults prints each jq result. Text output prints strings bare,
// like jq -r.
func writeQueryResults(w io.Writer, output string, results []any) error {
	for _, result := range results {
		var err error
		switch output {
		case "yaml":
			err = writeYAML(w, result)
		case "text":
			if str, ok := result.(string); ok {
				_, err = fmt.Fprintln(w, str)
			} else {
				err = writeJSON(w, result)
			}
		default:
			err = writeJSON(w, result)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func renderUser(user *models.User) string {
	var b strings.Builder

	b.WriteString(nameStyle.Render(user.GetName()))
	b.WriteString("\n")

	field := func(label, value string) {
		if len(value) == 0 {
			value = "-"
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label), value)
	}

	field("User ID", user.UserID)
	field("Alias", user.Alias)
	field("Name", user.Name)
	field("Surname", user.Surname)
	field("Type", typeBadgeStyle.Render(user.Type.String()))
	field("Autologin", fmt.Sprintf("%t", user.Autologin))
	field("Autologout", user.Autologout)
	field("Language", user.Lang)
	field("Refresh", user.Refresh)
	field("Rows per page", fmt.Sprintf("%d", user.RowsPerPage))
	field("Theme", string(user.Theme))
	field("URL", user.URL)
	field("Groups", strings.Join(user.Groups, ", "))

	if len(user.Medias) == 0 {
		field("Media", "none")
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString(labelStyle.Render("Media"))
	b.WriteString("\n")
	for _, media := range user.Medias {
		line := fmt.Sprintf("  type %s -> %s (severity %d, %s)",
			media.MediaTypeID, strings.Join(media.SendTo, ", "), media.GetSeverity(), media.Period)
		if media.IsActive() {
			b.WriteString(mediaActiveStyle.Render(line))
		} else {
			b.WriteString(mediaDisabledStyle.Render(line))
			b.WriteString(" ")
			b.WriteString(warningStyle.Render("disabled"))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
