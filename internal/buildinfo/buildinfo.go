// Package buildinfo holds version data stamped in at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/cardvault/internal/buildinfo.Version=1.2.0"
package buildinfo

import (
	"fmt"
	"io"
	"strings"
)

var (
	Version = "N/A"
	Commit  = "N/A"
	Date    = "N/A"
)

// String returns Version with a single "v" prefix, or "dev" when unset.
func String() string {
	if Version == "" || Version == "N/A" {
		return "dev"
	}
	return "v" + strings.TrimPrefix(Version, "v")
}

func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", String())
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}
