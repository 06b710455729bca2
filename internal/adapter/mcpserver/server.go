// Package mcpserver exposes the router's tools over MCP stdio, so desktop
// agent hosts can call them without the WebSocket gateway.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"toolgate/internal/domain"
	"toolgate/internal/router"
)

// Server bridges the router onto an MCP stdio server.
type Server struct {
	router *router.Router
	packs  domain.PackStore
	mcpSrv *server.MCPServer
	logger *slog.Logger
}

// New creates an MCP server exposing every tool the registry knows. Pack
// tools are exposed too; calls to tools of inactive packs come back as
// permission errors from the router, same as on every other transport.
func New(rt *router.Router, packs domain.PackStore, version string, logger *slog.Logger) *Server {
	s := &Server{
		router: rt,
		packs:  packs,
		mcpSrv: server.NewMCPServer("toolgate", version),
		logger: logger,
	}

	for _, info := range rt.Registry().List(context.Background(), packs) {
		s.addTool(info.Name)
	}
	return s
}

func (s *Server) addTool(name string) {
	schema := json.RawMessage(`{"type":"object"}`)
	description := name
	var handler domain.ToolHandler
	if h, ok := s.router.Registry().Core(name); ok {
		handler = h
	} else if _, h, ok := s.router.Registry().PackTool(name); ok {
		handler = h
	}
	if handler != nil {
		if d := handler.Description(); d != "" {
			description = d
		}
		if p := handler.Schema().Parameters; len(p) > 0 {
			schema = p
		}
	}

	tool := mcp.NewToolWithRawSchema(name, description, schema)
	s.mcpSrv.AddTool(tool, s.callHandler(name))
}

func (s *Server) callHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Caller identity is ambient: the host process decides which user
		// the stdio session acts as via domain.ContextWithCallerID.
		env := s.router.Route(ctx, name, req.GetArguments(), 0)

		data, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("marshal envelope: %w", err)
		}
		if !env.Success {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// ServeStdio blocks serving MCP over stdin/stdout until EOF or error.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp stdio server started")
	return server.ServeStdio(s.mcpSrv)
}
