// Package main is the entrypoint for the studentauth CLI.
package main

import (
	"os"

	"github.com/student-auth/studentauth/internal/cli"
)

var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New().Execute())
}
