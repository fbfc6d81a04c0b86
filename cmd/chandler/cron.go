package main

import (
	"fmt"
	"os"

	"github.com/quayside/chandler/pkg/cron"
)

// installCron rewrites the managed cron.d file with the maintenance
// schedule: a nightly full backup cycle (which also prunes) and data-only
// dumps through the day. The whole file is regenerated, so re-installing
// never duplicates entries.
func installCron(a *app) error {
	binary, err := os.Executable()
	if err != nil || binary == "" {
		binary = "/usr/local/bin/chandler"
	}

	entries := []cron.Entry{
		{
			Schedule: "30 3 * * *",
			User:     "root",
			Command:  fmt.Sprintf("%s backup --config %s", binary, configPath),
		},
		{
			Schedule: "30 9,15,21 * * *",
			User:     "root",
			Command:  fmt.Sprintf("%s backup --mode data --config %s", binary, configPath),
		},
	}
	return cron.NewManager("").Install(entries)
}
