// internal/app/system/viewkit/viewkit.go

// Package viewkit renders the server-side HTML. Features register embedded
// .gohtml sets at init time; Boot parses every set once and clones the
// result per locale so that translation and formatting functions are bound
// to the request's language.
package viewkit

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/i18n"
	"go.uber.org/zap"
)

// Set is a group of template files owned by one feature.
type Set struct {
	Name     string
	FS       fs.FS
	Patterns []string
}

var (
	regMu    sync.Mutex
	registry = map[string]Set{}
	order    []string
)

// Register adds a template set. Registering a name twice keeps the first.
func Register(s Set) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := registry[s.Name]; ok {
		return
	}
	registry[s.Name] = s
	order = append(order, s.Name)
}

func registered() []Set {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]Set, 0, len(order))
	for _, n := range order {
		out = append(out, registry[n])
	}
	return out
}

// Engine executes parsed templates for a locale.
type Engine struct {
	bundle   *i18n.Bundle
	log      *zap.Logger
	byLocale map[string]*template.Template
}

// New returns an engine that has not parsed anything yet.
func New(bundle *i18n.Bundle, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{bundle: bundle, log: log}
}

// Boot parses every registered set.
func (e *Engine) Boot() error {
	base := template.New("root").Funcs(funcsFor(e.bundle.For(e.bundle.Default())))
	for _, s := range registered() {
		for _, p := range s.Patterns {
			if _, err := base.ParseFS(s.FS, p); err != nil {
				return fmt.Errorf("parse %s/%s: %w", s.Name, p, err)
			}
		}
	}

	e.byLocale = make(map[string]*template.Template, len(i18n.Supported))
	for _, loc := range i18n.Supported {
		c, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone templates for %s: %w", loc, err)
		}
		e.byLocale[loc] = c.Funcs(funcsFor(e.bundle.For(loc)))
	}
	return nil
}

// Execute writes template name for locale into wr.
func (e *Engine) Execute(wr io.Writer, locale, name string, data any) error {
	t, ok := e.byLocale[locale]
	if !ok {
		t, ok = e.byLocale[e.bundle.Default()]
	}
	if !ok {
		return fmt.Errorf("templates not booted")
	}
	return t.ExecuteTemplate(wr, name, data)
}

// Render writes a full page with status 200.
func (e *Engine) Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	e.RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus writes a full page with the given status.
func (e *Engine) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := e.Execute(&buf, i18n.Current(r.Context()).Locale, name, data); err != nil {
		e.log.Error("template render failed", zap.String("template", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderSnippet writes an HTMX fragment.
func (e *Engine) RenderSnippet(w http.ResponseWriter, r *http.Request, name string, data any) {
	e.RenderStatus(w, r, http.StatusOK, name, data)
}

var (
	current  atomic.Pointer[Engine]
	lazyOnce sync.Once
	lazyErr  error
)

// UseEngine makes e the engine behind the package-level render helpers.
func UseEngine(e *Engine) { current.Store(e) }

// Default returns the installed engine, booting one over the shared i18n
// bundle when none was installed (handler tests rely on this).
func Default() (*Engine, error) {
	if e := current.Load(); e != nil {
		return e, nil
	}
	lazyOnce.Do(func() {
		e := New(i18n.Shared(), zap.NewNop())
		if lazyErr = e.Boot(); lazyErr == nil {
			current.CompareAndSwap(nil, e)
		}
	})
	if lazyErr != nil {
		return nil, lazyErr
	}
	return current.Load(), nil
}

// Render renders a full page with the default engine.
func Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus renders a full page with a status code.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	e, err := Default()
	if err != nil {
		http.Error(w, "templates unavailable: "+err.Error(), http.StatusInternalServerError)
		return
	}
	e.RenderStatus(w, r, status, name, data)
}

// RenderSnippet renders an HTMX fragment with the default engine.
func RenderSnippet(w http.ResponseWriter, r *http.Request, name string, data any) {
	RenderStatus(w, r, http.StatusOK, name, data)
}

// IsHTMXTarget reports whether r is an HTMX request aimed at element id.
func IsHTMXTarget(r *http.Request, id string) bool {
	return r.Header.Get("HX-Request") != "" && r.Header.Get("HX-Target") == id
}
