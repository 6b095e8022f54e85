package draft

import (
	"strings"

	"github.com/hpungsan/miniwriter/internal/errors"
)

// Payload is a full save request snapshot.
type Payload struct {
	ID          string   `json:"id,omitempty"`
	Route       string   `json:"route,omitempty"`
	TempID      string   `json:"temp_id,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	ParentRoute string   `json:"parent_route"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	Content     string   `json:"content"`
	Template    string   `json:"template,omitempty"`

	// ExpectedFingerprint is the remote hash the edit was based on
	ExpectedFingerprint string `json:"server_hash,omitempty"`

	// Force skips the fingerprint check (last writer wins)
	Force bool `json:"force,omitempty"`
}

// Payload snapshots the draft into a save request.
func (d *Draft) Payload() Payload {
	template := d.Template
	if template == "" {
		template = DefaultTemplate
	}
	tags := []string{}
	tags = append(tags, d.Tags...)
	return Payload{
		ID:                  d.ID,
		Route:               d.Route,
		TempID:              d.TempID,
		Slug:                d.Slug,
		ParentRoute:         d.ParentRoute,
		Title:               d.Title,
		Date:                d.Date,
		Tags:                tags,
		Published:           d.Published,
		Content:             d.Content,
		Template:            template,
		ExpectedFingerprint: d.ServerFingerprint,
	}
}

// Validate checks the payload locally before any network I/O.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.NewInvalidRequest("Title is required")
	}
	return nil
}

// Apply copies the payload's editable fields onto d.
// Used when a queued payload is newer than the stored draft.
func (p Payload) Apply(d *Draft) {
	d.Title = p.Title
	d.Date = p.Date
	d.Tags = append([]string{}, p.Tags...)
	d.Published = p.Published
	d.Content = p.Content
	if p.ParentRoute != "" {
		d.ParentRoute = p.ParentRoute
	}
	if p.Template != "" {
		d.Template = p.Template
	}
}

// FromPayload rebuilds a dirty draft from a queued payload whose record is gone.
func FromPayload(p Payload) *Draft {
	d := &Draft{
		ID:                p.ID,
		Route:             p.Route,
		TempID:            p.TempID,
		Slug:              p.Slug,
		ServerFingerprint: p.ExpectedFingerprint,
		Dirty:             true,
		IsNew:             p.Route == "",
	}
	p.Apply(d)
	return d
}
