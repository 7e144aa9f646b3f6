package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepFlow workout execution server. Query routines, active workout sessions, and session progress, and compute rest-time recommendations. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListRoutines, Handler: h.listRoutines},
		server.ServerTool{Tool: toolGetRoutine, Handler: h.getRoutine},
		server.ServerTool{Tool: toolListActiveSessions, Handler: h.listActiveSessions},
		server.ServerTool{Tool: toolGetSessionProgress, Handler: h.getSessionProgress},
		server.ServerTool{Tool: toolSuggestRestTime, Handler: h.suggestRestTime},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveSessions, Handler: h.activeSessionsResource},
		server.ServerResource{Resource: resRoutineCatalog, Handler: h.routineCatalogResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resActiveSessions = mcp.NewResource(
	"repflow://active_sessions",
	"Active Sessions",
	mcp.WithResourceDescription("All in-flight workout sessions for the user: position, completed exercises, rest and pause state"),
	mcp.WithMIMEType("application/json"),
)

var resRoutineCatalog = mcp.NewResource(
	"repflow://routines",
	"Routine Catalog",
	mcp.WithResourceDescription("The user's authored routines with exercise counts"),
	mcp.WithMIMEType("application/json"),
)
