package main

import (
	"os"

	appLog "agendaconsole/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("agendaconsole failed", err)
		os.Exit(1)
	}
}
