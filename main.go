package main

import (
	"os"

	"github.com/crm-portal/portal-agent/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
