// Package templates renders the forum's HTML pages from embedded files.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed *.html
var files embed.FS

// Pages that can be rendered by name.
const (
	TagList           = "tag_list.html"
	PostList          = "post_list.html"
	GroupList         = "group_list.html"
	PostSearchResults = "post_search_results.html"
	PostDetail        = "post_detail.html"
	Login             = "login.html"
	NotFound          = "not_found.html"
)

var pageNames = []string{TagList, PostList, GroupList, PostSearchResults, PostDetail, Login, NotFound}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	// Content is sanitized before it is stored.
	"safe": func(s string) template.HTML {
		return template.HTML(s)
	},
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout and partials.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(files, "layout.html", "partials.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a failing template never
// leaves a half written response.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
