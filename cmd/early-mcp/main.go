// early-mcp exposes the Early (Timeular) time-tracking API as MCP tools over
// stdio.
package main

import "github.com/vthunder/early-mcp/internal/cli"

func main() {
	cli.Main()
}
