// Package merge projects the remote catalog and local draft overlays into one list.
package merge

import (
	"sort"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// Annotations attached to list items.
const (
	AnnotationPublished     = "Published"
	AnnotationDraft         = "Draft"
	AnnotationLocalUnsynced = "Local unsynced"
	AnnotationLocalOnly     = "Local only"
)

// Sync statuses of list items.
const (
	StatusSaved     = "saved"
	StatusUnsynced  = "unsynced"
	StatusLocalOnly = "local-only"
)

// UntitledTitle is shown for items without a title.
const UntitledTitle = "Untitled"

// Item is one row of the merged list. Recomputed on every call, never persisted.
type Item struct {
	Identity    string   `json:"identity"`
	Title       string   `json:"title"`
	Route       string   `json:"route,omitempty"`
	Published   bool     `json:"published"`
	Date        string   `json:"date,omitempty"`
	Annotations []string `json:"annotations"`
	Status      string   `json:"status"`
	SortKey     string   `json:"sort_key,omitempty"`
	Editable    bool     `json:"editable"`
}

// Merge combines remote pages with local drafts.
// A draft whose route matches a page overlays that page and is not listed again;
// remaining drafts are listed as local-only items. The result is sorted by
// descending sort key with empty keys last and identity breaking ties.
// Neither input is modified.
func Merge(pages []remote.PageSummary, drafts []*draft.Draft) []Item {
	working := make(map[string]*draft.Draft, len(drafts))
	order := make([]string, 0, len(drafts))
	for _, d := range drafts {
		if d == nil {
			continue
		}
		id := d.Identity()
		if id.IsZero() {
			continue
		}
		if _, seen := working[id.String()]; !seen {
			order = append(order, id.String())
		}
		working[id.String()] = d
	}

	items := make([]Item, 0, len(pages)+len(working))
	for i := range pages {
		page := &pages[i]
		d := working[draft.Route(page.Route).String()]
		items = append(items, pageItem(page, d))
		if d != nil {
			delete(working, page.Route)
		}
	}
	for _, key := range order {
		if d, ok := working[key]; ok {
			items = append(items, localItem(d))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SortKey != b.SortKey {
			if a.SortKey == "" || b.SortKey == "" {
				return b.SortKey == ""
			}
			return a.SortKey > b.SortKey
		}
		return a.Identity < b.Identity
	})
	return items
}

func pageItem(page *remote.PageSummary, d *draft.Draft) Item {
	item := Item{
		Identity:  page.Route,
		Title:     page.Title,
		Route:     page.Route,
		Published: page.Published,
		Date:      page.Date,
		Status:    StatusSaved,
		SortKey:   page.UpdatedAt,
		Editable:  true,
	}
	if item.SortKey == "" {
		item.SortKey = page.Date
	}

	if d != nil {
		if d.Title != "" {
			item.Title = d.Title
		}
		if d.LocalUpdatedAt != "" {
			item.SortKey = d.LocalUpdatedAt
		}
		if d.Dirty {
			item.Published = d.Published
			if d.Date != "" {
				item.Date = d.Date
			}
			item.Status = StatusUnsynced
		}
	}

	if item.Title == "" {
		item.Title = UntitledTitle
	}
	item.Annotations = []string{publishedAnnotation(item.Published)}
	if d != nil && d.Dirty {
		item.Annotations = append(item.Annotations, AnnotationLocalUnsynced)
	}
	return item
}

func localItem(d *draft.Draft) Item {
	item := Item{
		Identity:  d.Identity().String(),
		Title:     d.Title,
		Route:     d.Route,
		Published: d.Published,
		Date:      d.Date,
		Status:    StatusLocalOnly,
		SortKey:   d.LocalUpdatedAt,
		Editable:  true,
	}
	if item.Title == "" {
		item.Title = UntitledTitle
	}
	item.Annotations = []string{publishedAnnotation(d.Published)}
	if d.Dirty {
		item.Annotations = append(item.Annotations, AnnotationLocalUnsynced)
		item.Status = StatusUnsynced
	}
	item.Annotations = append(item.Annotations, AnnotationLocalOnly)
	return item
}

func publishedAnnotation(published bool) string {
	if published {
		return AnnotationPublished
	}
	return AnnotationDraft
}
