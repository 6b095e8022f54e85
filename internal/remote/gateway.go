package remote

import (
	"context"

	"github.com/hpungsan/miniwriter/internal/draft"
)

// Reply statuses of the task protocol.
const (
	StatusOK       = "ok"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Task names of the task protocol.
const (
	TaskList      = "miniwriter.list"
	TaskPage      = "miniwriter.page"
	TaskSave      = "miniwriter.save"
	TaskDuplicate = "miniwriter.duplicate"
)

// PageSummary is one entry of the remote catalog. Read-only to the client.
type PageSummary struct {
	Route       string `json:"route"`
	Slug        string `json:"slug,omitempty"`
	ParentRoute string `json:"parent_route,omitempty"`
	Title       string `json:"title"`
	Date        string `json:"date,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
	Published   bool   `json:"published"`
	Fingerprint string `json:"server_hash,omitempty"`
}

// Document is a full remote page.
type Document struct {
	PageSummary
	Tags     []string `json:"tags"`
	Content  string   `json:"content"`
	Template string   `json:"template,omitempty"`
}

// ToDraft builds a clean overlay draft from the document.
func (d *Document) ToDraft() *draft.Draft {
	tags := append([]string{}, d.Tags...)
	return &draft.Draft{
		Route:             d.Route,
		ID:                d.Route,
		Slug:              d.Slug,
		Template:          d.Template,
		ParentRoute:       d.ParentRoute,
		Title:             d.Title,
		Date:              d.Date,
		Tags:              tags,
		Published:         d.Published,
		Content:           d.Content,
		ServerFingerprint: d.Fingerprint,
		LocalUpdatedAt:    d.UpdatedAt,
		ServerUpdatedAt:   d.UpdatedAt,
	}
}

// SaveReply is the application-level answer to a save or duplicate request.
// Transport failures are reported as errors, never as a reply.
type SaveReply struct {
	Status      string `json:"status"`
	Route       string `json:"route,omitempty"`
	Slug        string `json:"slug,omitempty"`
	ParentRoute string `json:"parent_route,omitempty"`
	Title       string `json:"title,omitempty"`
	Fingerprint string `json:"server_hash,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Result converts an ok reply into a draft.SaveResult.
func (r SaveReply) Result() draft.SaveResult {
	return draft.SaveResult{
		Route:       r.Route,
		Slug:        r.Slug,
		ParentRoute: r.ParentRoute,
		Title:       r.Title,
		Fingerprint: r.Fingerprint,
	}
}

// Gateway is the remote page repository as seen by the client.
// Every method returns an UNREACHABLE error on transport failure; application
// outcomes (conflict, rejection) are carried in the reply.
type Gateway interface {
	List(ctx context.Context) ([]PageSummary, error)
	// GetDocument returns a NOT_FOUND error if the route does not exist.
	GetDocument(ctx context.Context, route string) (*Document, error)
	Save(ctx context.Context, payload draft.Payload) (SaveReply, error)
	Duplicate(ctx context.Context, route string) (SaveReply, error)
}

// Pinger is implemented by gateways that can cheaply check reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
