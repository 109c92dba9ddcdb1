// internal/server/server.go
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/rs/zerolog"

	"nutrition-tracker/internal/models"
	"nutrition-tracker/internal/nutrition"
	"nutrition-tracker/internal/tracker"
)

// LedgerArchive is the read side of the meal archive.
type LedgerArchive interface {
	GetLedgers(ctx context.Context, limit int) ([]*models.ArchivedLedger, error)
	LoadLedger(ctx context.Context, id string) (*models.ArchivedLedger, error)
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

// ToolServer answers line-delimited tool calls against one session.
type ToolServer struct {
	session *tracker.Session
	archive LedgerArchive
	logger  zerolog.Logger
	tools   map[string]toolHandler
	reloads chan *nutrition.Table
}

// Response is written once per request line.
type Response struct {
	Result *protocol.CallToolResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// NewToolServer creates a server over session. archive may be nil.
func NewToolServer(session *tracker.Session, archive LedgerArchive, logger zerolog.Logger) *ToolServer {
	s := &ToolServer{
		session: session,
		archive: archive,
		logger:  logger,
		reloads: make(chan *nutrition.Table, 1),
	}
	s.registerTools()
	return s
}

// ReplaceFoods hands a reloaded table to the serving goroutine. It may be
// called from any goroutine; only the newest pending table is kept.
func (s *ToolServer) ReplaceFoods(table *nutrition.Table) {
	for {
		select {
		case s.reloads <- table:
			return
		default:
		}
		select {
		case <-s.reloads:
		default:
		}
	}
}

// Serve reads requests from in until EOF or ctx is done, writing one
// response per line to out.
func (s *ToolServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case table := <-s.reloads:
			if err := s.session.Apply(tracker.ReplaceFoods{Table: table}); err != nil {
				s.logger.Error().Err(err).Msg("failed to replace foods")
			}
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("failed to read requests: %w", err)
			}
			return nil
		case line := <-lines:
			if len(line) == 0 {
				continue
			}
			if err := enc.Encode(s.handleLine(ctx, line)); err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
		}
	}
}

func (s *ToolServer) handleLine(ctx context.Context, line []byte) Response {
	var request protocol.CallToolRequest
	if err := json.Unmarshal(line, &request); err != nil {
		return Response{Error: fmt.Sprintf("invalid JSON: %v", err)}
	}

	result, err := s.Call(ctx, &request)
	if err != nil {
		s.logger.Debug().Err(err).Str("tool", request.Name).Msg("tool call failed")
		return Response{Error: err.Error()}
	}
	return Response{Result: result}
}

// Call routes one request to its tool.
func (s *ToolServer) Call(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	handler, ok := s.tools[req.Name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
	return handler(ctx, req)
}

func (s *ToolServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
