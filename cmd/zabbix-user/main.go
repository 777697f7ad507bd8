package main

import (
	"os"

	"github.com/thand-io/zabbix-user/cmd/cli"
)

func main() {
	os.Exit(cli.Execute())
}
