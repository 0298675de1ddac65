package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/zenclock/internal/models"
	"github.com/joescharf/zenclock/internal/orchestrator"
	"github.com/joescharf/zenclock/internal/store"
)

// Controller is the part of the orchestrator the tools drive.
type Controller interface {
	Submit(ctx context.Context, cmd orchestrator.Command) ([]models.Event, error)
	Latest() models.Snapshot
}

// Server exposes the orchestrator and history as MCP tools.
type Server struct {
	ctrl    Controller
	store   store.Store
	version string
}

// NewServer creates the MCP server wrapper. The store may be nil when history
// is disabled.
func NewServer(ctrl Controller, s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{ctrl: ctrl, store: s, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("zenclock", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.startSessionTool())
	srv.AddTool(s.controlSessionTool())
	srv.AddTool(s.startBreathingTool())
	srv.AddTool(s.stopBreathingTool())
	srv.AddTool(s.audioTool())
	srv.AddTool(s.snapshotTool())
	srv.AddTool(s.historyTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func modeNames() []string {
	names := make([]string, len(models.Modes))
	for i, m := range models.Modes {
		names[i] = string(m)
	}
	return names
}

// submit runs cmds in order and returns the snapshot and events as JSON.
func (s *Server) submit(ctx context.Context, cmds ...orchestrator.Command) (*mcp.CallToolResult, error) {
	var events []models.Event
	for _, cmd := range cmds {
		evs, err := s.ctrl.Submit(ctx, cmd)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		events = append(events, evs...)
	}
	return jsonResult(orchestrator.Update{Snapshot: s.ctrl.Latest(), Events: events})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// zen_start_session
func (s *Server) startSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_start_session",
		mcp.WithDescription("Start a focus session. With only a mode, the saved preset for that mode is used. Passing durations starts a one-off session with exactly those values."),
		mcp.WithString("mode", mcp.Description("Session mode"), mcp.Enum(modeNames()...)),
		mcp.WithNumber("work_minutes", mcp.Description("Work phase length in minutes")),
		mcp.WithNumber("break_minutes", mcp.Description("Break length in minutes")),
		mcp.WithNumber("long_break_minutes", mcp.Description("Long break length in minutes (pomodoro)")),
		mcp.WithNumber("sessions_until_long_break", mcp.Description("Work sessions before a long break (pomodoro)")),
		mcp.WithNumber("break_ratio", mcp.Description("Suggested break as a fraction of elapsed time (flowtime)")),
	)
	return tool, s.handleStartSession
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := models.SessionRequest{
		Mode:                   models.Mode(request.GetString("mode", "")),
		WorkMinutes:            request.GetFloat("work_minutes", 0),
		BreakMinutes:           request.GetFloat("break_minutes", 0),
		LongBreakMinutes:       request.GetFloat("long_break_minutes", 0),
		SessionsUntilLongBreak: request.GetInt("sessions_until_long_break", 0),
		BreakRatio:             request.GetFloat("break_ratio", 0),
	}
	if req.Mode != "" && !req.Mode.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode: %s", req.Mode)), nil
	}

	switch {
	case req.HasDurations():
		cfg := req.Config()
		if cfg.Mode == "" {
			cfg.Mode = s.ctrl.Latest().Timer.Mode
		}
		return s.submit(ctx, orchestrator.StartSession{Config: cfg})
	case req.Mode != "":
		return s.submit(ctx, orchestrator.SwitchMode{Mode: req.Mode}, orchestrator.StartSession{})
	default:
		return s.submit(ctx, orchestrator.StartSession{})
	}
}

// zen_control_session
func (s *Server) controlSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_control_session",
		mcp.WithDescription("Pause, resume or reset the current session, or switch to another mode's preset."),
		mcp.WithString("action", mcp.Required(), mcp.Description("Control action"),
			mcp.Enum("pause", "resume", "reset", "switch_mode")),
		mcp.WithString("mode", mcp.Description("Target mode for switch_mode"), mcp.Enum(modeNames()...)),
	)
	return tool, s.handleControlSession
}

func (s *Server) handleControlSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: action"), nil
	}

	switch action {
	case "pause":
		return s.submit(ctx, orchestrator.PauseSession{})
	case "resume":
		return s.submit(ctx, orchestrator.ResumeSession{})
	case "reset":
		return s.submit(ctx, orchestrator.ResetSession{})
	case "switch_mode":
		mode := models.Mode(request.GetString("mode", ""))
		if !mode.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("switch_mode needs a valid mode, got %q", mode)), nil
		}
		return s.submit(ctx, orchestrator.SwitchMode{Mode: mode})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
}

// zen_start_breathing
func (s *Server) startBreathingTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_start_breathing",
		mcp.WithDescription("Start a guided breathing exercise (inhale, hold, exhale, pause). Without arguments the configured pattern is used."),
		mcp.WithNumber("inhale_seconds", mcp.Description("Inhale length in seconds")),
		mcp.WithNumber("hold_seconds", mcp.Description("Hold length in seconds")),
		mcp.WithNumber("exhale_seconds", mcp.Description("Exhale length in seconds")),
		mcp.WithNumber("cycles", mcp.Description("Number of breathing cycles")),
	)
	return tool, s.handleStartBreathing
}

func (s *Server) handleStartBreathing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := models.BreathingRequest{
		InhaleSeconds: request.GetFloat("inhale_seconds", 0),
		HoldSeconds:   request.GetFloat("hold_seconds", 0),
		ExhaleSeconds: request.GetFloat("exhale_seconds", 0),
		Cycles:        request.GetInt("cycles", 0),
	}
	return s.submit(ctx, orchestrator.StartBreathing{Config: req.Config()})
}

// zen_stop_breathing
func (s *Server) stopBreathingTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_stop_breathing",
		mcp.WithDescription("Stop the breathing exercise."),
	)
	return tool, s.handleStopBreathing
}

func (s *Server) handleStopBreathing(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.submit(ctx, orchestrator.StopBreathing{})
}

// zen_audio
func (s *Server) audioTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_audio",
		mcp.WithDescription("Control ambient audio. Volume changes, muting and playback all fade smoothly."),
		mcp.WithString("action", mcp.Required(), mcp.Description("Audio action"),
			mcp.Enum("volume", "mute", "unmute", "play", "stop")),
		mcp.WithNumber("volume", mcp.Description("Volume from 0 to 1, for the volume action")),
		mcp.WithString("sound", mcp.Description("Sound to play, for the play action")),
	)
	return tool, s.handleAudio
}

func (s *Server) handleAudio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: action"), nil
	}

	switch action {
	case "volume":
		v, err := request.RequireFloat("volume")
		if err != nil {
			return mcp.NewToolResultError("missing required parameter: volume"), nil
		}
		return s.submit(ctx, orchestrator.SetVolume{Volume: v})
	case "mute":
		return s.submit(ctx, orchestrator.SetMuted{Muted: true})
	case "unmute":
		return s.submit(ctx, orchestrator.SetMuted{Muted: false})
	case "play":
		sound := request.GetString("sound", "")
		if sound == "" {
			return mcp.NewToolResultError("missing required parameter: sound"), nil
		}
		return s.submit(ctx, orchestrator.PlaySound{Sound: sound})
	case "stop":
		return s.submit(ctx, orchestrator.StopSound{})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
}

// zen_snapshot
func (s *Server) snapshotTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_snapshot",
		mcp.WithDescription("Get the current timer, breathing and audio state."),
	)
	return tool, s.handleSnapshot
}

func (s *Server) handleSnapshot(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ctrl.Latest())
}

// zen_history
func (s *Server) historyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("zen_history",
		mcp.WithDescription("List recorded phase transitions, completed sessions and playback failures, newest first."),
		mcp.WithString("source", mcp.Description("Filter by source"), mcp.Enum("timer", "breathing", "audio")),
		mcp.WithString("kind", mcp.Description("Filter by event kind"),
			mcp.Enum("phase_completed", "session_completed", "playback_failed")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
	)
	return tool, s.handleHistory
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("history is disabled"), nil
	}

	filter := store.HistoryFilter{
		Source: models.EventSource(request.GetString("source", "")),
		Kind:   models.EventKind(request.GetString("kind", "")),
		Limit:  request.GetInt("limit", 20),
	}
	entries, err := s.store.ListHistory(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list history: %v", err)), nil
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	return jsonResult(entries)
}
