package internal

import "fmt"

// set at build time with -ldflags
var Version = ""
var Commit = ""

func PrintableVersion() string {
	if Version == "" {
		return "dev"
	}
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
