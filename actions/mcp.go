package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP exposes every registered action kind as an MCP tool on srv, so
// an MCP client can dispatch actions directly instead of driving the step
// loop, per SPEC_FULL.md §2's `cmd/browser-use --mcp` surface. Grounded on
// `docpipe.RegisterMCP`/`domkeeper.RegisterMCP`'s pattern (one
// registerXTool(srv) call per tool, input schema via a local
// properties/required builder). Those wrap registration through
// `kit.RegisterMCPTool`, a shared-library helper this module doesn't carry;
// its decode→endpoint→marshal shape is inlined here directly against
// `srv.AddTool` instead.
func (r *Registry) RegisterMCP(srv *mcp.Server) {
	for _, kind := range r.Kinds() {
		spec, ok := r.Get(kind)
		if !ok {
			continue
		}
		registerActionTool(srv, r, spec)
	}
}

func registerActionTool(srv *mcp.Server, r *Registry, spec *Spec) {
	tool := &mcp.Tool{
		Name:        string(spec.Kind),
		Description: spec.Description,
		InputSchema: actionInputSchema(spec.Required),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		out, err := r.Execute(ctx, Action{Kind: spec.Kind, Params: params})
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil
	})
}

// actionInputSchema builds a permissive JSON-schema object listing required
// as the schema's "required" array; property types aren't constrained since
// an action's params are a loosely-typed map (kinds.go's Action).
func actionInputSchema(required []string) map[string]any {
	properties := map[string]any{}
	for _, name := range required {
		properties[name] = map[string]any{}
	}
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
