// Package pagerepo is an in-memory page repository speaking the remote task
// semantics: routes under parents, YAML front matter storage, and MD5
// fingerprints of the stored representation.
package pagerepo

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/frontmatter"
	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// Rejection messages.
const (
	MsgTitleRequired  = "Title is required"
	MsgParentNotFound = "Parent page not found"
	MsgTargetExists   = "Target folder already exists"
	MsgMissingRoute   = "Missing route"
	MsgConflict       = "Server version has changed"
)

// Options configures a Repository.
type Options struct {
	// ConflictPrefix is prepended to duplicated titles. Defaults to "(copy)".
	ConflictPrefix string
	Now            func() time.Time
	Logger         *slog.Logger
}

// header is the YAML front matter of a stored page.
type header struct {
	Title     string   `yaml:"title"`
	Date      string   `yaml:"date"`
	Published bool     `yaml:"published"`
	Tags      []string `yaml:"tags,omitempty"`
	CreatedAt string   `yaml:"created_at,omitempty"`
	UpdatedAt string   `yaml:"updated_at"`
}

type page struct {
	route       string
	parentRoute string
	slug        string
	template    string
	header      header
	body        string
	stored      []byte
	fingerprint string
}

// Repository holds pages by route. Safe for concurrent use.
type Repository struct {
	mu     sync.Mutex
	pages  map[string]*page
	prefix string
	now    func() time.Time
	log    *slog.Logger
}

var _ remote.Gateway = (*Repository)(nil)

// New creates an empty repository. The root route "/" always exists.
func New(opts Options) *Repository {
	prefix := opts.ConflictPrefix
	if prefix == "" {
		prefix = "(copy)"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Repository{
		pages:  make(map[string]*page),
		prefix: prefix,
		now:    now,
		log:    logging.OrDiscard(opts.Logger),
	}
}

// List returns all pages sorted by updated_at (falling back to date), newest first.
func (r *Repository) List(ctx context.Context) ([]remote.PageSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]remote.PageSummary, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, p.summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortKey(out[i]), sortKey(out[j])
		if a != b {
			return a > b
		}
		return out[i].Route < out[j].Route
	})
	return out, nil
}

// GetDocument returns the page at route.
func (r *Repository) GetDocument(ctx context.Context, route string) (*remote.Document, error) {
	if route == "" {
		return nil, errors.NewRejected(MsgMissingRoute)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[normalizeRoute(route)]
	if !ok {
		return nil, errors.NewNotFound(route)
	}
	return p.document(), nil
}

// Save creates or updates a page.
// A save conflicts iff the page has a stored fingerprint, force is false, an
// expected fingerprint is given, and the two differ.
func (r *Repository) Save(ctx context.Context, payload draft.Payload) (remote.SaveReply, error) {
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return rejected(MsgTitleRequired), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	parentRoute := normalizeRoute(payload.ParentRoute)
	if parentRoute != "/" {
		if _, ok := r.pages[parentRoute]; !ok {
			return rejected(MsgParentNotFound), nil
		}
	}

	var existing *page
	if payload.Route != "" {
		existing = r.pages[normalizeRoute(payload.Route)]
	}

	slug := payload.Slug
	if slug == "" {
		slug = Slugify(title)
	}

	if existing != nil && existing.fingerprint != "" && !payload.Force &&
		payload.ExpectedFingerprint != "" && existing.fingerprint != payload.ExpectedFingerprint {
		return remote.SaveReply{
			Status:      remote.StatusConflict,
			Message:     MsgConflict,
			Fingerprint: existing.fingerprint,
		}, nil
	}

	now := draft.FormatTime(r.now())
	h := header{}
	if existing != nil {
		h = existing.header
	}
	h.Title = title
	h.Date = r.normalizeDate(payload.Date)
	h.Published = payload.Published
	h.UpdatedAt = now
	if h.CreatedAt == "" {
		h.CreatedAt = now
	}
	h.Tags = cleanTags(payload.Tags)

	var target string
	if existing != nil {
		target = buildRoute(parentRoute, slug)
		if target != existing.route {
			if _, taken := r.pages[target]; taken {
				return rejected(MsgTargetExists), nil
			}
			r.move(existing.route, target)
		}
	} else {
		target, slug = r.uniqueRoute(parentRoute, slug)
	}

	template := payload.Template
	if template == "" {
		template = draft.DefaultTemplate
	}
	p := &page{
		route:       target,
		parentRoute: parentRoute,
		slug:        slug,
		template:    template,
		header:      h,
		body:        payload.Content,
	}
	if err := p.store(); err != nil {
		return remote.SaveReply{}, errors.NewInternal(err)
	}
	r.pages[target] = p
	r.log.Debug("saved page", "route", target, "fingerprint", p.fingerprint)

	return remote.SaveReply{
		Status:      remote.StatusOK,
		Route:       target,
		Slug:        slug,
		ParentRoute: parentRoute,
		Title:       title,
		Fingerprint: p.fingerprint,
	}, nil
}

// Duplicate copies the page at route next to itself with the conflict prefix
// added to its title.
func (r *Repository) Duplicate(ctx context.Context, route string) (remote.SaveReply, error) {
	if route == "" {
		return rejected(MsgMissingRoute), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.pages[normalizeRoute(route)]
	if !ok {
		return rejected(remote.MessagePageNotFound), nil
	}

	title := strings.TrimSpace(r.prefix + " " + src.header.Title)
	target, slug := r.uniqueRoute(src.parentRoute, Slugify(title))

	now := draft.FormatTime(r.now())
	h := src.header
	h.Tags = append([]string(nil), src.header.Tags...)
	h.Title = title
	h.UpdatedAt = now
	if h.CreatedAt == "" {
		h.CreatedAt = now
	}

	p := &page{
		route:       target,
		parentRoute: src.parentRoute,
		slug:        slug,
		template:    src.template,
		header:      h,
		body:        src.body,
	}
	if err := p.store(); err != nil {
		return remote.SaveReply{}, errors.NewInternal(err)
	}
	r.pages[target] = p

	return remote.SaveReply{
		Status:      remote.StatusOK,
		Route:       target,
		Slug:        slug,
		ParentRoute: src.parentRoute,
		Title:       title,
		Fingerprint: p.fingerprint,
	}, nil
}

// Stored returns the stored representation of the page at route.
func (r *Repository) Stored(route string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[normalizeRoute(route)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), p.stored...), true
}

// uniqueRoute appends -1, -2, ... to slug until the route under parent is free.
func (r *Repository) uniqueRoute(parentRoute, slug string) (string, string) {
	base := slug
	target := buildRoute(parentRoute, slug)
	for counter := 1; ; counter++ {
		if _, taken := r.pages[target]; !taken {
			return target, slug
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
		target = buildRoute(parentRoute, slug)
	}
}

// move renames a page and its descendants from one route to another.
func (r *Repository) move(from, to string) {
	for route, p := range r.pages {
		switch {
		case route == from:
			delete(r.pages, route)
		case strings.HasPrefix(route, from+"/"):
			delete(r.pages, route)
			p.route = to + strings.TrimPrefix(route, from)
			if p.parentRoute == from || strings.HasPrefix(p.parentRoute, from+"/") {
				p.parentRoute = to + strings.TrimPrefix(p.parentRoute, from)
			}
			r.pages[p.route] = p
		}
	}
}

func (r *Repository) normalizeDate(value string) string {
	for _, layout := range []string{draft.TimeLayout, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return draft.FormatTime(t)
		}
	}
	return draft.FormatTime(r.now())
}

// store renders the page and recomputes its fingerprint.
func (p *page) store() error {
	data, err := frontmatter.Render(p.header, p.body)
	if err != nil {
		return err
	}
	sum := md5.Sum(data)
	p.stored = data
	p.fingerprint = hex.EncodeToString(sum[:])
	p.body = strings.TrimRight(p.body, " \t\r\n")
	return nil
}

func (p *page) summary() remote.PageSummary {
	return remote.PageSummary{
		Route:       p.route,
		Slug:        p.slug,
		ParentRoute: p.parentRoute,
		Title:       p.header.Title,
		Date:        p.header.Date,
		UpdatedAt:   p.header.UpdatedAt,
		Published:   p.header.Published,
		Fingerprint: p.fingerprint,
	}
}

func (p *page) document() *remote.Document {
	tags := append([]string{}, p.header.Tags...)
	return &remote.Document{
		PageSummary: p.summary(),
		Tags:        tags,
		Content:     p.body,
		Template:    p.template,
	}
}

func rejected(msg string) remote.SaveReply {
	return remote.SaveReply{Status: remote.StatusError, Message: msg}
}

func sortKey(s remote.PageSummary) string {
	if s.UpdatedAt != "" {
		return s.UpdatedAt
	}
	return s.Date
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9\-]+`)

// Slugify lowercases text and collapses anything but [a-z0-9-] into dashes.
func Slugify(text string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "item"
	}
	return s
}

func normalizeRoute(route string) string {
	trimmed := strings.Trim(strings.TrimSpace(route), "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed
}

func buildRoute(parentRoute, slug string) string {
	parent := strings.Trim(parentRoute, "/")
	slug = strings.Trim(slug, "/")
	if parent == "" {
		return "/" + slug
	}
	return "/" + parent + "/" + slug
}
