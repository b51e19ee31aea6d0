package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// serverInstructions tells connecting clients what this server is for
// and which surfaces are available.
const serverInstructions = "AFIQ answers questions about AFI/DAFI regulatory " +
	"documents from an indexed corpus. Use the ask tool for grounded answers " +
	"with citations. The afiq://rules resource exposes the active heuristic " +
	"rule set and afiq://corpus the corpus statistics, when configured."

// Server exposes the ask pipeline over the Model Context Protocol.
// The ask tool is always registered; the rules and corpus resources are
// registered only when the corresponding port is wired.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates an MCP server over the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "afiq",
		Version: Version,
	}
	opts := &mcp.ServerOptions{
		Instructions: serverInstructions,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, opts),
	}

	s.registerTools()
	if ports.Rules != nil {
		s.registerRulesResource()
	}
	if ports.Store != nil {
		s.registerCorpusResource()
	}

	return s, nil
}

// Run serves over stdio until the context is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("MCP server %s listening on stdio", Version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves over streamable HTTP on addr, shutting down gracefully
// when the context is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("MCP server shutting down")
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	logger.Info("MCP server %s listening on %s", Version, addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
