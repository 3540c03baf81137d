package engine

import (
	"context"

	"charm.land/fantasy"

	"github.com/agentship/agentship/internal/toolbuilder"
)

// toolbuilderAdapter wraps a toolbuilder.Tool as a fantasy.AgentTool, the
// same adapter shape kit's own local tools use, so the native engine's
// tool set (function, agent, and MCP declarations alike, once built by
// internal/toolbuilder) can all be handed to fantasy uniformly.
type toolbuilderAdapter struct {
	tool toolbuilder.Tool
}

func (a toolbuilderAdapter) Info() fantasy.ToolInfo {
	properties := make(map[string]any, len(a.tool.Parameters))
	var required []string
	for _, p := range a.tool.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return fantasy.ToolInfo{
		Name:        a.tool.Name,
		Description: a.tool.Description,
		Parameters:  properties,
		Required:    required,
	}
}

func (a toolbuilderAdapter) ProviderOptions() fantasy.ProviderOptions { return nil }
func (toolbuilderAdapter) SetProviderOptions(fantasy.ProviderOptions) {}

func (a toolbuilderAdapter) Run(ctx context.Context, call fantasy.ToolCall) (fantasy.ToolResponse, error) {
	args := parseArguments(call.Input)
	result, err := a.tool.Invoke(ctx, args)
	if err != nil {
		return fantasy.NewTextErrorResponse(err.Error()), nil
	}
	return fantasy.NewTextResponse(result), nil
}

var _ fantasy.AgentTool = toolbuilderAdapter{}
