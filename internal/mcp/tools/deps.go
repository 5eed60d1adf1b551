// Package tools provides MCP tool registration with dependency injection.
package tools

import (
	"context"

	"github.com/vthunder/early-mcp/internal/integrations/early"
)

// ClientSource hands out the authenticated API client. *early.Session is
// the production implementation.
type ClientSource interface {
	Client(ctx context.Context) (*early.Client, error)
}

// Dependencies holds all services that MCP tools may need.
type Dependencies struct {
	Session ClientSource
}
