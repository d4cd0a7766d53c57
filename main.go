package main

import (
	_ "github.com/joho/godotenv/autoload"

	"docklite/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
