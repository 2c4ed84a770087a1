package view

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/flosch/pongo2/v6"
)

const (
	Confirmation = "confirmation.html"
	AdminNotice  = "admin_notice.html"
	Receipt      = "receipt.html"
)

//go:embed templates/*.html
var embedded embed.FS

type Context = pongo2.Context

// Engine renders the embedded pongo2 templates. Autoescaping is on, so values
// placed in a Context are HTML-escaped unless a filter marks them safe.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

func NewEngine() (*Engine, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, fmt.Errorf("view: templates dir: %w", err)
	}
	e := &Engine{
		set:       pongo2.NewSet("registration", pongo2.NewFSLoader(sub)),
		templates: make(map[string]*pongo2.Template),
	}
	for _, name := range []string{Confirmation, AdminNotice, Receipt} {
		if _, err := e.template(name); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) Render(w io.Writer, name string, data Context) error {
	tmpl, err := e.template(name)
	if err != nil {
		return err
	}
	if err := tmpl.ExecuteWriter(data, w); err != nil {
		return fmt.Errorf("view: execute %q: %w", name, err)
	}
	return nil
}

func (e *Engine) RenderString(name string, data Context) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) template(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.templates[name]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("view: load %q: %w", name, err)
	}
	e.templates[name] = tmpl
	return tmpl, nil
}
