package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a codebase incrementally to make it searchable. Unchanged files are skipped by content hash.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the root directory to index",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, reprocess every file regardless of recorded content hashes",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search an indexed codebase with hybrid semantic and keyword scoring. Results are grouped by file with the best-matching line ranges.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed root directory",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of result files (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"area": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one codebase area",
					"enum":        []string{"backend", "frontend", "infra", "docs", "other"},
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum file score threshold, boundary inclusive (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"compact": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return only file paths and snippet line ranges",
					"default":     false,
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report indexing status and statistics for a root directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a root directory",
				},
			},
			Required: []string{"path"},
		},
	}
}
