package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"pippin/internal/entity"
	"pippin/internal/usecase"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	serverName = "pippin"
	layerName  = "MCPServer"
)

type handlerFunc func(ctx context.Context, request mcp.CallToolRequest) (any, error)

// Server exposes the automation verbs as MCP tools. Tool results carry the
// same JSON objects the CLI prints.
type Server struct {
	service   *usecase.Service
	logger    *zap.Logger
	mcpServer *mcpserver.MCPServer
	handlers  map[string]handlerFunc
}

type Params struct {
	Service *usecase.Service
	Logger  *zap.Logger
	Version string
}

func NewServer(params Params) *Server {
	s := &Server{
		service: params.Service,
		logger:  params.Logger.With(zap.String(logg.Layer, layerName)),
		mcpServer: mcpserver.NewMCPServer(
			serverName,
			params.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithRecovery(),
		),
		handlers: make(map[string]handlerFunc),
	}

	s.registerTools()

	return s
}

// Serve blocks until the stream closes or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Debug("Serving MCP over stdio", zap.Int(logg.Count, len(s.handlers)))

	return mcpserver.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// Tools lists the registered tool names.
func (s *Server) Tools() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}

	return names
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("inspect",
		mcp.WithDescription("Return the simplified accessibility tree of the current screen."),
		mcp.WithBoolean("all", mcp.Description("Keep structural containers and hidden elements.")),
		mcp.WithBoolean("flat", mcp.Description("Return a flat list instead of a tree.")),
		mcp.WithNumber("depth", mcp.Description("Limit the tree depth.")),
	), s.inspect)

	s.addTool(mcp.NewTool("context",
		mcp.WithDescription("Describe device, foreground app and screen in one object."),
		mcp.WithBoolean("brief", mcp.Description("Omit the UI tree.")),
		mcp.WithBoolean("include_logs", mcp.Description("Include recent app log lines.")),
	), s.context)

	s.addTool(mcp.NewTool("tap",
		mcp.WithDescription("Tap an element by identifier or label, or tap a point."),
		mcp.WithString("query", mcp.Description("Identifier, label or role:label of the element.")),
		mcp.WithNumber("x", mcp.Description("X coordinate, used when query is empty or not found.")),
		mcp.WithNumber("y", mcp.Description("Y coordinate, used when query is empty or not found.")),
		mcp.WithBoolean("strict", mcp.Description("Exact identifier or label match only.")),
	), s.tap)

	s.addTool(mcp.NewTool("type",
		mcp.WithDescription("Type text into the focused field."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to type.")),
		mcp.WithBoolean("submit", mcp.Description("Press return afterwards.")),
	), s.typeText)

	s.addTool(mcp.NewTool("scroll",
		mcp.WithDescription("Swipe once, or repeatedly until an element is on screen."),
		mcp.WithString("direction", mcp.Required(), mcp.Enum("up", "down", "left", "right")),
		mcp.WithString("until_visible", mcp.Description("Element to scroll to.")),
		mcp.WithBoolean("strict", mcp.Description("Exact identifier or label match only.")),
	), s.scroll)

	s.addTool(mcp.NewTool("assert",
		mcp.WithDescription("Check an element state once."),
		mcp.WithString("query", mcp.Required()),
		mcp.WithString("state", mcp.Required(), mcp.Description("exists, visible, hidden or text=<value>.")),
		mcp.WithBoolean("strict", mcp.Description("Exact identifier or label match only.")),
	), s.assert)

	s.addTool(mcp.NewTool("wait",
		mcp.WithDescription("Poll until an element reaches a state."),
		mcp.WithString("query", mcp.Required()),
		mcp.WithString("state", mcp.Enum("exists", "visible", "hidden"), mcp.DefaultString("visible")),
		mcp.WithNumber("timeout", mcp.Description("Seconds to wait, 10 by default.")),
		mcp.WithBoolean("strict", mcp.Description("Exact identifier or label match only.")),
		mcp.WithBoolean("scroll", mcp.Description("Scroll down between polls.")),
	), s.wait)
}

func (s *Server) addTool(tool mcp.Tool, handler handlerFunc) {
	s.handlers[tool.Name] = handler
	s.mcpServer.AddTool(tool, s.wrap(tool.Name, handler))
}

// wrap turns command errors into tool errors so the agent sees the same
// "FAIL: <TAG>: <message>" line the CLI prints.
func (s *Server) wrap(name string, handler handlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := handler(ctx, request)
		if err != nil {
			s.logger.Debug("Tool failed", zap.String(logg.Command, name), zap.Error(err))

			return mcp.NewToolResultError(fmt.Sprintf("FAIL: %s: %s", apperr.Tag(err), apperr.Message(err))), nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("FAIL: ERR_COMMAND_FAILED: encode %s result: %v", name, err)), nil
		}

		return mcp.NewToolResultText(string(payload)), nil
	}
}

func (s *Server) inspect(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	opts := entity.InspectOptions{
		InteractiveOnly: !request.GetBool("all", false),
		Flat:            request.GetBool("flat", false),
	}

	if depth, ok := number(request, "depth"); ok {
		d := int(depth)
		opts.MaxDepth = &d
	}

	return s.service.Vision.Inspect(ctx, opts)
}

func (s *Server) context(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	return s.service.Vision.Context(ctx, entity.ContextOptions{
		Brief:       request.GetBool("brief", false),
		IncludeLogs: request.GetBool("include_logs", false),
	})
}

func (s *Server) tap(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	req := entity.TapRequest{
		Query:  request.GetString("query", ""),
		Strict: request.GetBool("strict", false),
	}

	x, okX := number(request, "x")
	y, okY := number(request, "y")
	if okX && okY {
		req.X, req.Y = &x, &y
	}

	return s.service.Interaction.Tap(ctx, req)
}

func (s *Server) typeText(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return nil, apperr.InvalidReqError("type", "text", err)
	}

	return s.service.Interaction.TypeText(ctx, text, request.GetBool("submit", false))
}

func (s *Server) scroll(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	return s.service.Interaction.Scroll(ctx, entity.ScrollCommand{
		Direction:    request.GetString("direction", ""),
		UntilVisible: request.GetString("until_visible", ""),
		Strict:       request.GetBool("strict", false),
	})
}

func (s *Server) assert(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	return s.service.Verification.Assert(ctx, entity.AssertRequest{
		Query:  request.GetString("query", ""),
		State:  request.GetString("state", ""),
		Strict: request.GetBool("strict", false),
	})
}

func (s *Server) wait(ctx context.Context, request mcp.CallToolRequest) (any, error) {
	req := entity.WaitRequest{
		Query:  request.GetString("query", ""),
		State:  request.GetString("state", string(entity.AssertVisible)),
		Strict: request.GetBool("strict", false),
		Scroll: request.GetBool("scroll", false),
	}

	if timeout, ok := number(request, "timeout"); ok {
		req.Timeout = time.Duration(timeout * float64(time.Second))
	}

	return s.service.Verification.Wait(ctx, req)
}

// number reports whether a numeric argument was supplied at all.
func number(request mcp.CallToolRequest, key string) (float64, bool) {
	switch v := request.GetArguments()[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
