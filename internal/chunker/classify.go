package chunker

import (
	"path/filepath"
	"strings"

	"github.com/kodexlab/kodex/pkg/types"
)

// areaRule maps a path substring to an area. Rules are checked in order and
// the first match wins; unmatched paths classify as "other".
type areaRule struct {
	substr string
	area   types.Area
}

var areaRules = []areaRule{
	{"frontend/", types.AreaFrontend},
	{"ui/", types.AreaFrontend},
	{"web/", types.AreaFrontend},
	{"client/", types.AreaFrontend},
	{"components/", types.AreaFrontend},
	{"terraform", types.AreaInfra},
	{"deploy", types.AreaInfra},
	{"docker", types.AreaInfra},
	{"k8s", types.AreaInfra},
	{"kubernetes", types.AreaInfra},
	{"infra", types.AreaInfra},
	{".github/", types.AreaInfra},
	{"ops/", types.AreaInfra},
	{"docs/", types.AreaDocs},
	{"doc/", types.AreaDocs},
	{"readme", types.AreaDocs},
	{"backend/", types.AreaBackend},
	{"server/", types.AreaBackend},
	{"api/", types.AreaBackend},
	{"internal/", types.AreaBackend},
	{"cmd/", types.AreaBackend},
	{"pkg/", types.AreaBackend},
	{"services/", types.AreaBackend},
}

// ClassifyArea derives the coarse area of a file from its relative path.
func ClassifyArea(relPath string) types.Area {
	lower := strings.ToLower(relPath)
	for _, rule := range areaRules {
		if strings.Contains(lower, rule.substr) {
			return rule.area
		}
	}
	return types.AreaOther
}

// languageByExt is the extension lookup table for language classification.
var languageByExt = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".swift": "swift",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "shell",
	".bash":  "shell",
	".md":    "markdown",
	".rst":   "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "css",
	".tf":    "terraform",
	".proto": "protobuf",
	".txt":   "text",
}

// ClassifyLanguage derives the language tag from the file extension. Unknown
// extensions classify as "unknown".
func ClassifyLanguage(relPath string) string {
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(relPath))]; ok {
		return lang
	}
	return "unknown"
}
