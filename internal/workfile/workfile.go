// Package workfile mirrors a draft into a markdown file with YAML front matter
// so it can be edited with any text editor.
package workfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/draftsync"
	"github.com/hpungsan/miniwriter/internal/frontmatter"
)

// Header is the editable front matter of a work file.
type Header struct {
	Title     string   `yaml:"title"`
	Date      string   `yaml:"date,omitempty"`
	Published bool     `yaml:"published"`
	Tags      []string `yaml:"tags,omitempty"`
	Parent    string   `yaml:"parent,omitempty"`
}

// Render serializes d as a work file.
func Render(d *draft.Draft) ([]byte, error) {
	h := Header{
		Title:     d.Title,
		Date:      d.Date,
		Published: d.Published,
		Tags:      d.Tags,
		Parent:    d.ParentRoute,
	}
	return frontmatter.Render(h, d.Content)
}

// Parse reads a work file into the changes it describes. Every editable
// field is set, so applying the result replaces the draft's content wholesale.
func Parse(data []byte) (draftsync.Changes, error) {
	var h Header
	body, err := frontmatter.Parse(data, &h)
	if err != nil {
		return draftsync.Changes{}, err
	}
	tags := h.Tags
	if tags == nil {
		tags = []string{}
	}
	ch := draftsync.Changes{
		Title:     &h.Title,
		Date:      &h.Date,
		Tags:      &tags,
		Published: &h.Published,
		Content:   &body,
	}
	if h.Parent != "" {
		ch.ParentRoute = &h.Parent
	}
	return ch, nil
}

// Write renders d into path, creating parent directories.
func Write(path string, d *draft.Draft) error {
	if err := validatePath(path); err != nil {
		return err
	}
	data, err := Render(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	f, err := openFileNoFollow(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses the work file at path.
func Read(path string) (draftsync.Changes, error) {
	if err := validatePath(path); err != nil {
		return draftsync.Changes{}, err
	}
	data, err := readNoFollow(path)
	if err != nil {
		return draftsync.Changes{}, err
	}
	return Parse(data)
}

func readNoFollow(path string) ([]byte, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// FileName returns a file name for d: the route slug if saved, else its
// temporary id.
func FileName(d *draft.Draft) string {
	name := d.Slug
	if name == "" {
		name = d.ID
	}
	if name == "" {
		name = "draft"
	}
	return name + ".md"
}
