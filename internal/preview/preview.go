// Package preview renders drafts to HTML for local preview.
package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/hpungsan/miniwriter/internal/draft"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithExtensions(&externalLinks{}),
)

type externalLinks struct{}

func (e *externalLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&externalLinksTransformer{}, 100),
	))
}

type externalLinksTransformer struct{}

// Transform opens absolute links in a new tab.
func (t *externalLinksTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch link := n.(type) {
		case *ast.Link:
			if isExternal(link.Destination) {
				markExternal(link)
			}
		case *ast.AutoLink:
			if link.AutoLinkType == ast.AutoLinkURL && isExternal(link.URL(reader.Source())) {
				markExternal(link)
			}
		}
		return ast.WalkContinue, nil
	})
}

func markExternal(n ast.Node) {
	n.SetAttributeString("target", []byte("_blank"))
	n.SetAttributeString("rel", []byte("noopener noreferrer"))
}

func isExternal(dest []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(dest)))
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//")
}

// Markdown converts markdown text to HTML. Conversion errors fall back to the
// escaped source.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
<header>
<h1>{{.Title}}</h1>
<p class="meta">{{if .Date}}<time>{{.Date}}</time> {{end}}{{if .Published}}Published{{else}}Draft{{end}}{{if .Dirty}} · Local unsynced{{end}}</p>
{{if .Tags}}<ul class="tags">{{range .Tags}}<li>{{.}}</li>{{end}}</ul>{{end}}
</header>
{{.Body}}
</article>
</body>
</html>
`))

type pageData struct {
	Title     string
	Date      string
	Published bool
	Dirty     bool
	Tags      []string
	Body      template.HTML
}

// Page renders d as a standalone HTML document.
func Page(d *draft.Draft) ([]byte, error) {
	title := d.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	data := pageData{
		Title:     title,
		Date:      d.Date,
		Published: d.Published,
		Dirty:     d.Dirty,
		Tags:      d.Tags,
		Body:      Markdown(d.Content),
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return buf.Bytes(), nil
}
