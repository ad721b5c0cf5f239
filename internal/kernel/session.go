package kernel

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/toolplugin"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// runSession resolves a's agent profile, builds its Session state, and
// drives model/tool turns until the session reaches a terminal status. It
// returns the final assistant message's text.
func (k *Kernel) runSession(ctx context.Context, a orcmodels.Activation) (string, error) {
	profile, ok := k.Registry.Get(a.AgentPath)
	if !ok {
		return "", fmt.Errorf("kernel: no agent profile registered at %s", a.AgentPath)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx, span := startSessionSpan(ctx, a.ID, a.AgentID)
	defer span.End()

	session := &orcmodels.Session{
		ActivationID: a.ID,
		AgentID:      a.AgentID,
		Status:       orcmodels.SessionRunning,
		Cancel:       cancel,
	}
	if a.Input != "" {
		session.History = append(session.History, orcmodels.Message{Role: orcmodels.RoleUser, Content: a.Input})
	}

	k.mu.Lock()
	k.sessions[a.ID] = session
	k.agentPathOf[a.ID] = a.AgentPath
	k.mu.Unlock()
	k.Metrics.ActiveSessions.Inc()
	defer k.Metrics.ActiveSessions.Dec()

	tc := k.buildToolContext(a, profile)
	toolset := k.buildToolset(profile)
	descriptors := descriptorsFor(toolset)

	var termErr error

	for {
		if ctx.Err() != nil {
			session.Status = orcmodels.SessionAborted
			break
		}

		chunks, err := k.Provider.Chat(ctx, a.ID, provider.ChatConfig{
			Model:        effectiveModel(profile, a),
			SystemPrompt: profile.SystemPrompt,
			Tools:        descriptors,
		}, session.History)
		if err != nil {
			session.Status = orcmodels.SessionError
			termErr = err
			break
		}

		text, toolCalls, turnErr := k.drainTurn(ctx, session, chunks)
		if turnErr != nil {
			session.Status = orcmodels.SessionError
			termErr = turnErr
			break
		}
		if ctx.Err() != nil {
			session.Status = orcmodels.SessionAborted
			break
		}

		if text != "" {
			session.History = append(session.History, orcmodels.Message{Role: orcmodels.RoleModel, Content: text})
		}

		if len(toolCalls) == 0 {
			session.Status = orcmodels.SessionCompleted
			break
		}

		k.executeToolCalls(ctx, tc, toolset, session, toolCalls)
	}

	if ender, ok := k.Provider.(provider.SessionEnder); ok {
		ender.EndSession(a.ID)
	}

	switch session.Status {
	case orcmodels.SessionAborted:
		k.EventLog.Append(orcmodels.EventAbort, a.AgentID, a.ID, map[string]any{})
	case orcmodels.SessionError:
		k.EventLog.Append(orcmodels.EventError, a.AgentID, a.ID, map[string]any{"error": termErr.Error()})
	default:
		k.EventLog.Append(orcmodels.EventComplete, a.AgentID, a.ID, map[string]any{
			"status": string(session.Status),
			"tokens": session.TokenCount,
			"output": lastModelText(session.History),
		})
	}
	k.Metrics.SessionsTotal.WithLabelValues(string(session.Status)).Inc()

	return lastModelText(session.History), nil
}

// drainTurn consumes chunks until ChunkDone/ChunkError, accumulating text
// and buffering tool calls in emitted order without executing them yet, per
// invariant: tool calls within one turn execute only after the turn ends.
func (k *Kernel) drainTurn(ctx context.Context, session *orcmodels.Session, chunks <-chan provider.StreamChunk) (string, []orcmodels.ToolCallRecord, error) {
	var textBuilder strings.Builder
	var toolCalls []orcmodels.ToolCallRecord

	for chunk := range chunks {
		switch chunk.Kind {
		case provider.ChunkText:
			textBuilder.WriteString(chunk.Text)
		case provider.ChunkToolCall:
			id := chunk.ToolCallID
			if id == "" {
				id = uuid.NewString()
			}
			toolCalls = append(toolCalls, orcmodels.ToolCallRecord{
				ID:   id,
				Name: chunk.ToolName,
				Args: chunk.ToolArgs,
			})
		case provider.ChunkDone:
			session.TokenCount += chunk.TokenCount
			k.addTokens(chunk.TokenCount)
			return textBuilder.String(), toolCalls, nil
		case provider.ChunkError:
			return "", nil, chunk.Err
		}
	}
	return textBuilder.String(), toolCalls, nil
}

// executeToolCalls runs each buffered tool call serially, in the order the
// model emitted them, appending a tool message per result so the next turn
// sees every outcome.
func (k *Kernel) executeToolCalls(ctx context.Context, tc *toolplugin.ToolContext, toolset map[string]toolplugin.Plugin, session *orcmodels.Session, calls []orcmodels.ToolCallRecord) {
	var emittedIDs []string
	for _, call := range calls {
		emittedIDs = append(emittedIDs, call.ID)

		k.EventLog.Append(orcmodels.EventToolCall, session.AgentID, session.ActivationID, map[string]any{
			"tool": call.Name, "call_id": call.ID,
		})

		result := k.runOneTool(ctx, tc, toolset, call)
		call.Result = result

		outcome := "ok"
		if strings.HasPrefix(result, "Error:") {
			outcome = "tool_error"
		}
		k.Metrics.ToolExecutions.WithLabelValues(call.Name, outcome).Inc()
		k.EventLog.Append(orcmodels.EventToolResult, session.AgentID, session.ActivationID, map[string]any{
			"tool": call.Name, "call_id": call.ID, "outcome": outcome,
		})

		session.ToolCalls = append(session.ToolCalls, call)
		session.History = append(session.History, orcmodels.Message{
			Role:        orcmodels.RoleTool,
			Content:     result,
			ToolCallRef: call.ID,
		})
	}

	if len(session.History) > 0 {
		for i := len(session.History) - 1; i >= 0 && len(emittedIDs) > 0; i-- {
			if session.History[i].Role == orcmodels.RoleModel {
				session.History[i].ToolCallsEmitted = emittedIDs
				break
			}
		}
	}
}

func (k *Kernel) runOneTool(ctx context.Context, tc *toolplugin.ToolContext, toolset map[string]toolplugin.Plugin, call orcmodels.ToolCallRecord) string {
	plugin, ok := toolset[call.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %s", call.Name)
	}

	if err := toolplugin.ValidateArgs(plugin.Descriptor(), call.Args); err != nil {
		return fmt.Sprintf("Error: %s", err)
	}

	ctx, span := startToolSpan(ctx, call.Name)
	defer span.End()

	out, err := plugin.Execute(ctx, tc, call.Args)
	if err != nil {
		return fmt.Sprintf("Error: %s", err)
	}
	return out
}

func (k *Kernel) buildToolContext(a orcmodels.Activation, profile orcmodels.AgentProfile) *toolplugin.ToolContext {
	mcpClients := make(map[string]toolplugin.MCPCaller)
	for _, ref := range profile.MCPServers {
		if client, ok := k.MCP.Clients()[ref.Name]; ok {
			mcpClients[ref.Name] = client
		}
	}

	depth := a.SpawnDepth
	return &toolplugin.ToolContext{
		VFS:                 k.VFS,
		Registry:            k.Registry,
		EventLog:            k.EventLog,
		Blackboard:          k.Blackboard,
		PubSub:              k.PubSub,
		Memory:              k.Memory,
		Tasks:               k.Tasks,
		Logger:              k.Logger,
		MCPServers:          mcpClients,
		CurrentAgentID:      a.AgentID,
		CurrentActivationID: a.ID,
		ParentAgentID:       parentAgentID(a),
		ParentAgentPath:     k.agentPathForActivation(a.ParentID),
		SpawnDepth:          depth,
		MaxDepth:            k.cfg.MaxDepth,
		MaxFanout:           k.cfg.MaxFanout,
		ChildCount:          k.childCount(a.ID),
		PreferredModel:      profile.Model,
		OnSpawn: func(req toolplugin.SpawnRequest) (string, error) {
			return k.Enqueue(orcmodels.Activation{
				AgentPath:  req.AgentPath,
				Input:      req.Input,
				ParentID:   a.ID,
				SpawnDepth: depth + 1,
				Priority:   req.Priority,
			})
		},
		OnRunSessionAndReturn: func(req toolplugin.SpawnRequest) (string, error) {
			return k.runSessionAndReturn(context.WithoutCancel(context.Background()), req, a.ID, depth+1)
		},
		IncrementChildCount: k.incrementChildCount(a.ID),
	}
}

// buildToolset returns the concrete set of tools this profile's session may
// call: every registered built-in allowed by ToolAllowList (no list means
// every built-in is allowed), plus the profile's own custom tools
// synthesized as ephemeral-agent-backed plugins.
func (k *Kernel) buildToolset(profile orcmodels.AgentProfile) map[string]toolplugin.Plugin {
	allow := make(map[string]bool, len(profile.ToolAllowList))
	for _, name := range profile.ToolAllowList {
		allow[name] = true
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	out := make(map[string]toolplugin.Plugin, len(k.tools))
	for name, plugin := range k.tools {
		if len(allow) == 0 || allow[name] {
			out[name] = plugin
		}
	}
	for _, ct := range profile.CustomTools {
		out[ct.Name] = toolplugin.CustomTool{Def: ct}
	}
	return out
}

func descriptorsFor(toolset map[string]toolplugin.Plugin) []orcmodels.ToolDescriptor {
	out := make([]orcmodels.ToolDescriptor, 0, len(toolset))
	for _, plugin := range toolset {
		out = append(out, plugin.Descriptor())
	}
	return out
}

func parentAgentID(a orcmodels.Activation) string {
	if a.ParentID == "" {
		return ""
	}
	return a.ParentID
}

func effectiveModel(profile orcmodels.AgentProfile, a orcmodels.Activation) string {
	if profile.Model != "" {
		return profile.Model
	}
	return "default"
}

func lastModelText(history []orcmodels.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == orcmodels.RoleModel {
			return history[i].Content
		}
	}
	return ""
}
