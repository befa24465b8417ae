package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kodexlab/kodex/internal/chunkmap"
	"github.com/kodexlab/kodex/internal/indexer"
	"github.com/kodexlab/kodex/internal/retriever"
	"github.com/kodexlab/kodex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeTargetMissing      = -32001 // Indexing target path does not exist
	ErrorCodeIndexingInProgress = -32002 // Another indexing run is already active
	ErrorCodeNotIndexed         = -32003 // Root has never been indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, _ := args["path"].(string)
	absRoot, err := resolveRoot(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	force := getBoolDefault(args, "force", false)

	sess, err := s.sessionFor(ctx, absRoot)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats, err := sess.indexer.Run(ctx, absRoot, indexer.Options{Force: force})
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"path": absRoot,
		})
	case errors.Is(err, types.ErrTargetMissing):
		return nil, newMCPError(ErrorCodeTargetMissing, "target path does not exist", map[string]interface{}{
			"path": absRoot,
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Cached answers and the loaded chunk map describe the previous run.
	sess.retriever.InvalidateCache()

	response := map[string]interface{}{
		"indexed":         true,
		"total_files":     stats.TotalFiles,
		"files_processed": stats.Processed,
		"files_skipped":   stats.Skipped,
		"files_failed":    stats.Failed,
		"files_deleted":   stats.Deleted,
		"chunks_created":  stats.ChunksCreated,
		"chunks_removed":  stats.ChunksRemoved,
		"total_chunks":    stats.TotalChunks,
		"degraded":        stats.Degraded,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		if len(stats.ErrorMessages) > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = len(stats.ErrorMessages)
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, _ := args["path"].(string)
	absRoot, err := resolveRoot(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	query, _ := args["query"].(string)
	limit := getIntDefault(args, "limit", 0)
	area := getStringDefault(args, "area", "")
	minScore := getFloatDefault(args, "min_score", 0)
	compact := getBoolDefault(args, "compact", false)

	if area != "" && !types.Area(area).Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid area", map[string]interface{}{
			"param":   "area",
			"value":   area,
			"allowed": []string{"backend", "frontend", "infra", "docs", "other"},
		})
	}

	sess, err := s.sessionFor(ctx, absRoot)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp, err := sess.retriever.Search(ctx, retriever.Request{
		Query:    query,
		K:        limit,
		Area:     types.Area(area),
		MinScore: minScore,
		Compact:  compact,
	})
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", map[string]interface{}{
			"param": "query",
		})
	case errors.Is(err, types.ErrNotIndexed):
		return nil, newMCPError(ErrorCodeNotIndexed, "root not indexed", map[string]interface{}{
			"path":    absRoot,
			"message": "Use the index_codebase tool to index this root first.",
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"degraded":    resp.Degraded,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	if compact {
		response["results"] = resp.Compact
		response["count"] = len(resp.Compact)
	} else {
		response["results"] = resp.Results
		response["count"] = len(resp.Results)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, _ := args["path"].(string)
	absRoot, err := resolveRoot(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	sess, err := s.sessionFor(ctx, absRoot)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	manifest, err := chunkmap.ReadManifest(sess.home.ManifestPath())
	if errors.Is(err, types.ErrNotIndexed) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    absRoot,
			"message": "Root not indexed. Use the index_codebase tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read manifest", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": true,
		"path":    absRoot,
		"index": map[string]interface{}{
			"embedding_model": manifest.EmbeddingModel,
			"dimension":       manifest.Dimension,
			"built_at":        formatTimestamp(manifest.BuiltAt),
			"revision":        manifest.Revision,
		},
		"statistics": map[string]interface{}{
			"total_files":     manifest.TotalFiles,
			"processed_files": manifest.ProcessedFiles,
			"skipped_files":   manifest.SkippedFiles,
			"failed_files":    manifest.FailedFiles,
			"deleted_files":   manifest.DeletedFiles,
			"total_chunks":    manifest.TotalChunks,
		},
	}

	if stats, err := sess.store.Stats(ctx); err == nil {
		response["store"] = map[string]interface{}{
			"chunks":   stats.Count,
			"location": stats.Location,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
