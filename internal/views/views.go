// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"games_planner/internal/models"
)

//go:embed templates/*.html
var files embed.FS

//go:embed static
var static embed.FS

// Page is the data every template receives.
type Page struct {
	Title   string
	UserID  int64
	Flashes []string
	Error   string
	Data    any
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(models.DateLayout)
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format("2006-01-02 15:04")
	},
	"names": func(users []models.UserSummary) string {
		parts := make([]string, len(users))
		for i, u := range users {
			parts[i] = u.Username
		}
		return strings.Join(parts, ", ")
	},
	"hasID": func(ids []int64, id int64) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	},
	"deref": func(p *int) string {
		if p == nil {
			return ""
		}
		return fmt.Sprint(*p)
	},
	// sortLink toggles the order when the column is already the active sort.
	"sortLink": func(base string, current url.Values, field string) string {
		v := url.Values{}
		for k, vals := range current {
			v[k] = append([]string(nil), vals...)
		}
		order := "ASC"
		if v.Get("sort") == field && strings.EqualFold(v.Get("order"), "ASC") {
			order = "DESC"
		}
		v.Set("sort", field)
		v.Set("order", order)
		return base + "?" + v.Encode()
	},
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	pages, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, p := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		if name == "layout" {
			continue
		}

		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", p)
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}

	return r, nil
}

// Render writes the named page. The page is executed into a buffer first so a
// template failure never leaves half a document on the wire.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("views: unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		return fmt.Errorf("views: render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
