package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/draftsync"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/merge"
	"github.com/hpungsan/miniwriter/internal/preview"
	"github.com/hpungsan/miniwriter/internal/resolve"
	"github.com/hpungsan/miniwriter/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	ctrl *draftsync.Controller
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctrl *draftsync.Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// Request types for each tool

// NewRequest represents the arguments for draft_new.
type NewRequest struct {
	Title       *string   `json:"title,omitempty"`
	Content     *string   `json:"content,omitempty"`
	ParentRoute *string   `json:"parent_route,omitempty"`
	Published   *bool     `json:"published,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// IDRequest addresses a single draft.
type IDRequest struct {
	ID string `json:"id"`
}

// EditRequest represents the arguments for draft_edit.
type EditRequest struct {
	ID          string    `json:"id"`
	Title       *string   `json:"title,omitempty"`
	Date        *string   `json:"date,omitempty"`
	Content     *string   `json:"content,omitempty"`
	ParentRoute *string   `json:"parent_route,omitempty"`
	Published   *bool     `json:"published,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// SubmitRequest represents the arguments for draft_submit.
type SubmitRequest struct {
	ID         string `json:"id"`
	OnConflict string `json:"on_conflict,omitempty"`
}

// ListOutput is the result of draft_list.
type ListOutput struct {
	Items []merge.Item `json:"items"`
	Count int          `json:"count"`
}

// QueueOutput is the result of queue_list.
type QueueOutput struct {
	Entries []store.Entry `json:"entries"`
	Count   int           `json:"count"`
}

// DiscardOutput is the result of draft_discard.
type DiscardOutput struct {
	ID        string `json:"id"`
	Discarded bool   `json:"discarded"`
}

// PreviewOutput is the result of draft_preview.
type PreviewOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

func parseID(id string) (draft.Identity, error) {
	ident := draft.ParseIdentity(strings.TrimSpace(id))
	if ident.IsZero() {
		return ident, errors.NewInvalidRequest("id is required")
	}
	return ident, nil
}

// Handler implementations

// HandleNew handles the draft_new tool call.
func (h *Handlers) HandleNew(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NewRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	d, err := h.ctrl.NewDraft(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	changes := draftsync.Changes{
		Title:       input.Title,
		Content:     input.Content,
		ParentRoute: input.ParentRoute,
		Published:   input.Published,
		Tags:        input.Tags,
	}
	if !changes.IsEmpty() {
		if d, err = h.ctrl.Edit(ctx, d.Identity(), changes); err != nil {
			return errorResult(err), nil
		}
	}

	return successResult(d)
}

// HandleGet handles the draft_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := parseID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	d, err := h.ctrl.Open(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(d)
}

// HandleEdit handles the draft_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := parseID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	d, err := h.ctrl.Edit(ctx, id, draftsync.Changes{
		Title:       input.Title,
		Date:        input.Date,
		Content:     input.Content,
		ParentRoute: input.ParentRoute,
		Published:   input.Published,
		Tags:        input.Tags,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(d)
}

// HandleList handles the draft_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := h.ctrl.List(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ListOutput{Items: items, Count: len(items)})
}

// HandleSubmit handles the draft_submit tool call.
func (h *Handlers) HandleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SubmitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := parseID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	decision := resolve.Abandon
	if input.OnConflict != "" {
		if decision, err = resolve.ParseDecision(input.OnConflict); err != nil {
			return errorResult(err), nil
		}
	}

	out, err := h.ctrl.SubmitWith(ctx, id, resolve.Fixed(decision))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(out)
}

// HandleDiscard handles the draft_discard tool call.
func (h *Handlers) HandleDiscard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := parseID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.ctrl.Discard(ctx, id); err != nil {
		return errorResult(err), nil
	}

	return successResult(DiscardOutput{ID: id.String(), Discarded: true})
}

// HandlePreview handles the draft_preview tool call.
func (h *Handlers) HandlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := parseID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	d, err := h.ctrl.Open(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(PreviewOutput{
		ID:    d.Identity().String(),
		Title: d.Title,
		HTML:  string(preview.Markdown(d.Content)),
	})
}

// HandleQueueList handles the queue_list tool call.
func (h *Handlers) HandleQueueList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.ctrl.Queue().Drain(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(QueueOutput{Entries: entries, Count: len(entries)})
}

// HandleQueueFlush handles the queue_flush tool call.
func (h *Handlers) HandleQueueFlush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.ctrl.Flush(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(report)
}

// HandleStatus handles the sync_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.ctrl.Status(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(status)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr, ok := errors.As(err); ok {
		message := mErr.Message
		if outer := err.Error(); outer != mErr.Error() {
			message = strings.TrimSuffix(outer, mErr.Error()) + mErr.Message
		}
		errorObj := map[string]any{
			"code":    mErr.Code,
			"message": message,
			"status":  mErr.Status,
		}
		if mErr.Code != errors.ErrInternal && mErr.Details != nil {
			errorObj["details"] = mErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
