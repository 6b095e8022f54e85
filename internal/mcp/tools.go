package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var draftNewToolDef = mcp.NewTool("draft_new",
	mcp.WithDescription("Create a local draft with a temporary identity. Optional fields are applied as a first edit. Never touches the network."),
	mcp.WithString("title", mcp.Description("Page title")),
	mcp.WithString("content", mcp.Description("Markdown body")),
	mcp.WithString("parent_route", mcp.Description("Parent page route, defaults to the configured parent")),
	mcp.WithBoolean("published", mcp.Description("Published flag")),
	mcp.WithArray("tags", mcp.Description("Tags"), stringItems),
)

var draftGetToolDef = mcp.NewTool("draft_get",
	mcp.WithDescription("Open a draft by route or temporary id. A route with no local draft is fetched from the remote."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Route (leading /) or temporary id")),
)

var draftEditToolDef = mcp.NewTool("draft_edit",
	mcp.WithDescription("Edit a local draft and mark it dirty. Only given fields change."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Route or temporary id")),
	mcp.WithString("title", mcp.Description("Page title")),
	mcp.WithString("date", mcp.Description("Page date")),
	mcp.WithString("content", mcp.Description("Markdown body")),
	mcp.WithString("parent_route", mcp.Description("Parent page route")),
	mcp.WithBoolean("published", mcp.Description("Published flag")),
	mcp.WithArray("tags", mcp.Description("Replacement tag list"), stringItems),
)

var draftListToolDef = mcp.NewTool("draft_list",
	mcp.WithDescription("List remote pages merged with local drafts, newest first, with sync annotations."),
)

var draftSubmitToolDef = mcp.NewTool("draft_submit",
	mcp.WithDescription("Submit a draft to the remote. Offline or unreachable submits are queued. Conflicts are resolved per on_conflict."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Route or temporary id")),
	mcp.WithString("on_conflict",
		mcp.Description("Conflict decision"),
		mcp.Enum("abandon", "overwrite", "duplicate"),
	),
)

var draftDiscardToolDef = mcp.NewTool("draft_discard",
	mcp.WithDescription("Delete a local draft and its queued save. The remote page is untouched."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Route or temporary id")),
)

var draftPreviewToolDef = mcp.NewTool("draft_preview",
	mcp.WithDescription("Render a local draft's markdown body to HTML."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Route or temporary id")),
)

var queueListToolDef = mcp.NewTool("queue_list",
	mcp.WithDescription("List pending saves in replay order."),
)

var queueFlushToolDef = mcp.NewTool("queue_flush",
	mcp.WithDescription("Replay pending saves in order, stopping at the first conflict or transport failure."),
)

var syncStatusToolDef = mcp.NewTool("sync_status",
	mcp.WithDescription("Report connectivity, queue size and dirty drafts."),
)
