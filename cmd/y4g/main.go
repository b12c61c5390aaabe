package main

import (
	"fmt"
	"os"
)

const Version = "v0.1.0"

var (
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := NewApp(versionWithMeta())
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func versionWithMeta() string {
	v := Version
	if commit := GitCommit; commit != "" {
		if len(commit) > 8 {
			commit = commit[:8]
		}
		v += "-" + commit
	}
	if GitDate != "" {
		v += "-" + GitDate
	}
	return v
}
