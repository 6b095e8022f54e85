package draft

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TimeLayout is the timestamp format used for every draft and queue time.
// All values share it, so lexicographic comparison orders them.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// DefaultTemplate is the page template given to new drafts.
const DefaultTemplate = "item"

// TempPrefix marks locally generated identifiers.
const TempPrefix = "tmp-"

// Draft is a local overlay of an editable document.
type Draft struct {
	// Route is the server-assigned route; empty until the first successful save
	Route string `json:"route,omitempty"`

	// ID is the stable local identifier, set at creation
	ID string `json:"id,omitempty"`

	// TempID is the locally generated identifier used while Route is empty
	TempID string `json:"temp_id,omitempty"`

	Slug        string   `json:"slug,omitempty"`
	Template    string   `json:"template,omitempty"`
	ParentRoute string   `json:"parent_route"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	Content     string   `json:"content"`

	// ServerFingerprint is the last-known remote content hash (empty if never synced)
	ServerFingerprint string `json:"server_hash,omitempty"`

	LocalUpdatedAt  string `json:"local_updated_at,omitempty"`
	ServerUpdatedAt string `json:"server_updated_at,omitempty"`

	// Dirty is true while local changes are unconfirmed by the remote
	Dirty bool `json:"dirty"`

	// IsNew is true until the first successful remote save
	IsNew bool `json:"is_new"`
}

// New creates an unsaved draft with a fresh temporary identity.
func New(parentRoute string, published bool, now time.Time) (*Draft, error) {
	tempID, err := NewTempID(now)
	if err != nil {
		return nil, err
	}
	if parentRoute == "" {
		parentRoute = "/"
	}
	return &Draft{
		ID:          tempID,
		TempID:      tempID,
		Template:    DefaultTemplate,
		ParentRoute: parentRoute,
		Date:        FormatTime(now),
		Tags:        []string{},
		Published:   published,
		IsNew:       true,
	}, nil
}

// NewTempID returns a temporary identifier backed by a monotonic ULID.
func NewTempID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return TempPrefix + strings.ToLower(id.String()), nil
}

// FormatTime renders t in TimeLayout (UTC, millisecond resolution).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Identity returns the draft's authoritative identity.
func (d *Draft) Identity() Identity {
	return ResolveIdentity(d)
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	c := *d
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	return &c
}

// Touch marks the draft as locally edited at now.
func (d *Draft) Touch(now time.Time) {
	d.Dirty = true
	d.LocalUpdatedAt = FormatTime(now)
}

// MarkSaved applies a successful remote save to the draft.
// The caller is responsible for migrating the stored record if the identity changed.
func (d *Draft) MarkSaved(res SaveResult, now time.Time) {
	d.Route = res.Route
	if res.Slug != "" {
		d.Slug = res.Slug
	}
	if res.ParentRoute != "" {
		d.ParentRoute = res.ParentRoute
	}
	if res.Title != "" {
		d.Title = res.Title
	}
	d.ServerFingerprint = res.Fingerprint
	d.TempID = ""
	d.Dirty = false
	d.IsNew = false
	stamp := FormatTime(now)
	d.LocalUpdatedAt = stamp
	d.ServerUpdatedAt = stamp
}

// SaveResult is what the remote reports back for an accepted save.
type SaveResult struct {
	Route       string
	Slug        string
	ParentRoute string
	Title       string
	Fingerprint string
}

// ParseTags splits a comma-separated tag list, trimming blanks and dropping empties.
// Order is preserved as given.
func ParseTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
