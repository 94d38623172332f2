// Package main provides the entry point for the ribocollate CLI tool.
package main

import (
	"github.com/riboseqorg/ribocollate/cmd/ribocollate/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
