// Package mcpadapter exposes read-only contract tools over the Model Context
// Protocol so assistants can look up finished explanations.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/core/ports"
)

// ContractQueries is the read side the tools need.
type ContractQueries interface {
	ports.ContractReader
	Compare(ctx context.Context, identity domain.Identity, idA, idB string) (*domain.Comparison, error)
}

type Server struct {
	contracts ContractQueries
	identity  domain.Identity
}

// NewServer binds every tool call to identity; the stdio transport has no
// per-request credentials.
func NewServer(contracts ContractQueries, identity domain.Identity) *Server {
	return &Server{contracts: contracts, identity: identity}
}

func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("document-explainer", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool("list_contracts",
		mcp.WithDescription("List the caller's analysed documents, newest first unless sort says otherwise."),
		mcp.WithString("status",
			mcp.Description("Only return documents in this status."),
			mcp.Enum(string(domain.StatusAnalyzing), string(domain.StatusCompleted), string(domain.StatusFailed)),
		),
		mcp.WithString("document_type",
			mcp.Description("Only return documents of this category."),
			mcp.Enum(
				string(domain.DocumentTypePersonal), string(domain.DocumentTypeEmployment),
				string(domain.DocumentTypeFinancial), string(domain.DocumentTypeBusiness),
				string(domain.DocumentTypePolicy), string(domain.DocumentTypeTechnical),
				string(domain.DocumentTypeOther),
			),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive search in the document name."),
		),
		mcp.WithString("sort",
			mcp.Description("created_date, updated_date or contract_name; prefix with - for descending."),
		),
	), s.listContracts)

	srv.AddTool(mcp.NewTool("get_contract_analysis",
		mcp.WithDescription("Return the plain-language explanation of one completed document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contract id.")),
	), s.getContractAnalysis)

	srv.AddTool(mcp.NewTool("compare_contracts",
		mcp.WithDescription("Line up two completed explanations by theme."),
		mcp.WithString("a", mcp.Required(), mcp.Description("First contract id.")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second contract id.")),
	), s.compareContracts)

	return srv
}

func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCPServer(version))
}

type contractSummary struct {
	ID           string                `json:"id"`
	ContractName string                `json:"contract_name"`
	DocumentType domain.DocumentType   `json:"document_type"`
	Status       domain.ContractStatus `json:"status"`
	UpdatedDate  time.Time             `json:"updated_date"`
}

func (s *Server) listContracts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := domain.ContractFilter{
		Status:       domain.ContractStatus(request.GetString("status", "")),
		DocumentType: domain.DocumentType(request.GetString("document_type", "")),
		NameQuery:    request.GetString("query", ""),
	}
	sort := domain.ParseContractSort(request.GetString("sort", ""))

	items, err := s.contracts.List(ctx, s.identity, filter, sort)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list contracts: %v", err)), nil
	}
	out := make([]contractSummary, 0, len(items))
	for _, c := range items {
		out = append(out, contractSummary{
			ID:           c.ID,
			ContractName: c.ContractName,
			DocumentType: c.DocumentType,
			Status:       c.Status,
			UpdatedDate:  c.UpdatedDate,
		})
	}
	return jsonResult(out)
}

func (s *Server) getContractAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	contract, err := s.contracts.Get(ctx, s.identity, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get contract: %v", err)), nil
	}
	if contract.Status != domain.StatusCompleted || contract.AnalysisData == nil {
		return mcp.NewToolResultError(fmt.Sprintf("contract %s is %s, no analysis available", id, contract.Status)), nil
	}
	return jsonResult(contract.AnalysisData)
}

func (s *Server) compareContracts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := request.RequireString("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := request.RequireString("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comparison, err := s.contracts.Compare(ctx, s.identity, a, b)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("compare contracts: %v", err)), nil
	}
	return jsonResult(comparison)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
