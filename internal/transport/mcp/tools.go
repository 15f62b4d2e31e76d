// Package mcp exposes catalog search as a Model Context Protocol tool.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
)

// ToolSearchServices is the name of the search tool.
const ToolSearchServices = "search_services"

// Searcher runs a validated search request.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// Handlers serves the MCP tools.
type Handlers struct {
	search Searcher
	policy request.Policy
	logger *zap.Logger
}

type serviceHit struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description,omitempty"`
	ShortDescription *string  `json:"short_description,omitempty"`
	Status           string   `json:"status"`
	OrganizationName *string  `json:"organization_name,omitempty"`
	Similarity       float64  `json:"similarity"`
	Distance         *float64 `json:"distance,omitempty"`
}

// NewServer creates an MCP server with every tool registered.
func NewServer(name, version string, search Searcher, policy request.Policy, log *zap.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(name, version)
	RegisterTools(server, search, policy, log)
	return server
}

// RegisterTools registers the search tool with the server.
func RegisterTools(server *mcpserver.MCPServer, search Searcher, policy request.Policy, log *zap.Logger) *Handlers {
	h := &Handlers{search: search, policy: policy, logger: log}

	server.AddTool(mcp.Tool{
		Name: ToolSearchServices,
		Description: "Search the service catalog by meaning. " +
			"Pass latitude and longitude together to keep only services with a location nearby.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What the person is looking for, in natural language",
				},
				"limit": map[string]any{
					"type":        "number",
					"description": fmt.Sprintf("Maximum number of results (default: %d)", policy.DefaultLimit),
				},
				"latitude": map[string]any{
					"type":        "number",
					"description": "Latitude of the search origin in degrees",
				},
				"longitude": map[string]any{
					"type":        "number",
					"description": "Longitude of the search origin in degrees",
				},
			},
			Required: []string{"query"},
		},
	}, h.SearchServices)

	return h
}

// SearchServices handles the search_services tool.
func (h *Handlers) SearchServices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	args := req.GetArguments()
	limit, err := intArg(args, "limit")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lat, err := numberArg(args, "latitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lng, err := numberArg(args, "longitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sr, err := request.New(query, limit, lat, lng, h.policy)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := h.search.Search(ctx, &sr)
	if err != nil {
		h.logger.Error("mcp search failed", zap.Error(err))
		if domain.IsEmbeddingError(err) {
			return mcp.NewToolResultError("Failed to generate embedding"), nil
		}
		if errors.Is(err, domain.ErrPoolUnavailable) {
			return mcp.NewToolResultError("Search failed: database busy, try again"), nil
		}
		return mcp.NewToolResultError("Search failed"), nil
	}

	hits := make([]serviceHit, len(results))
	for i := range results {
		r := &results[i]
		hits[i] = serviceHit{
			ID:               r.ID(),
			Name:             r.Name(),
			Description:      r.Description(),
			ShortDescription: r.ShortDescription(),
			Status:           r.Status(),
			OrganizationName: r.OrganizationName(),
			Similarity:       r.Similarity(),
			Distance:         r.Distance(),
		}
	}

	out, err := json.Marshal(hits)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// numberArg reads an optional numeric argument. A missing key and JSON null
// are both absent; anything other than a number is rejected.
func numberArg(args map[string]any, key string) (*float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
		v = f
	default:
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func intArg(args map[string]any, key string) (*int, error) {
	f, err := numberArg(args, key)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil, fmt.Errorf("%s must be a whole number", key)
	}
	v := int(*f)
	return &v, nil
}
