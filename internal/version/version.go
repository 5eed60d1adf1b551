package version

import "fmt"

// These variables are populated at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the version with its build metadata.
func Info() string {
	return fmt.Sprintf("early-mcp %s (commit %s, built %s)", Version, Commit, Date)
}
