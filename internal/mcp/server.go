package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/miniwriter/internal/draftsync"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"draft_new": {
		def:     draftNewToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNew },
	},
	"draft_get": {
		def:     draftGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"draft_edit": {
		def:     draftEditToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEdit },
	},
	"draft_list": {
		def:     draftListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"draft_submit": {
		def:     draftSubmitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubmit },
	},
	"draft_discard": {
		def:     draftDiscardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiscard },
	},
	"draft_preview": {
		def:     draftPreviewToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePreview },
	},
	"queue_list": {
		def:     queueListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueueList },
	},
	"queue_flush": {
		def:     queueFlushToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQueueFlush },
	},
	"sync_status": {
		def:     syncStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with MiniWriter tools registered.
// Tools listed in the controller's DisabledTools config are skipped.
func NewServer(ctrl *draftsync.Controller, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"miniwriter",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(ctrl)

	disabled := make(map[string]bool)
	for _, name := range ctrl.Config().DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(ctrl *draftsync.Controller, version string) error {
	return server.ServeStdio(NewServer(ctrl, version))
}
