package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/example/moonbaby-storefront/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index.html", "products.html", "cart.html", "checkout.html", "login.html"}

type pages map[string]*template.Template

// pageData — общие для всех страниц данные макета.
type pageData struct {
	Title     string
	AuthLink  usecase.AuthLink
	CartCount int
	Flash     string
	Body      any
}

func parsePages() (pages, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	p := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p[name] = t
	}
	return p, nil
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	t, ok := s.pages[name]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.Logger.Error("render page", "page", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
