package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// promptPassword asks for the login password with a masked input. It needs
// an interactive terminal.
func promptPassword(user string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("--prompt-password needs an interactive terminal; set ZABBIX_LOGIN_PASSWORD instead")
	}

	title := "Zabbix password"
	if len(user) > 0 {
		title = fmt.Sprintf("Zabbix password for %s", user)
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(func(s string) error {
					if len(s) == 0 {
						return fmt.Errorf("password is required")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("password prompt cancelled: %w", err)
	}

	return password, nil
}
