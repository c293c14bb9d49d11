// Package view renders pages for the navigation state machine.
//
// A Handler turns a session snapshot into a Page. Pipeline failures never
// escape a handler: they become Messages on the page and the session stays
// usable.
package view

import (
	"context"
	"sort"
	"sync"

	"cteview/internal/chart"
	"cteview/internal/dataset"
	"cteview/internal/logging"
	"cteview/internal/metrics"
	"cteview/internal/session"
)

// Level is the severity of a user-visible message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a user-visible notice.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Link is an external reference shown on a page.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Selection is the effective selection a page was rendered with, after
// defaults were applied.
type Selection struct {
	X        string `json:"x,omitempty"`
	Y        string `json:"y,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Page is a rendered view.
type Page struct {
	View       string        `json:"view"`
	Title      string        `json:"title"`
	Paragraphs []string      `json:"paragraphs,omitempty"`
	Links      []Link        `json:"links,omitempty"`
	State      session.State `json:"state"`
	Selection  Selection     `json:"selection"`

	Features   []string `json:"features,omitempty"`
	Industries []string `json:"industries,omitempty"`

	Tables         []chart.TableData `json:"tables,omitempty"`
	Scatter        *chart.Spec       `json:"scatter,omitempty"`
	CountyTotals   *chart.Spec       `json:"county_totals,omitempty"`
	BottomCounties *chart.Spec       `json:"bottom_counties,omitempty"`
	Projections    *chart.Spec       `json:"projections,omitempty"`

	Messages []Message `json:"messages"`
}

func (p *Page) add(log logging.Logger, level Level, text string) {
	p.Messages = append(p.Messages, Message{Level: level, Text: text})
	metrics.IncCounter(metrics.MessagesTotal, 1, metrics.Labels{"level": string(level)})
	if level == LevelInfo {
		log.Debug("page message", logging.String("view", p.View), logging.String("text", text))
		return
	}
	log.Warn("page message",
		logging.String("view", p.View),
		logging.String("level", string(level)),
		logging.String("text", text),
	)
}

// Request is what a handler may read: the session snapshot and the session's
// dataset loader.
type Request struct {
	State session.State
	Data  dataset.Loader
}

// Handler renders one view.
type Handler interface {
	Render(ctx context.Context, req Request) Page
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Page

// Render calls f.
func (f HandlerFunc) Render(ctx context.Context, req Request) Page { return f(ctx, req) }

// Router maps view names to handlers. Unregistered names render the home
// view.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter returns a router with home registered.
func NewRouter(home Handler) *Router {
	r := &Router{handlers: make(map[string]Handler)}
	r.Register(session.ViewHome, home)
	return r
}

// Register binds name to h, replacing any previous binding.
func (r *Router) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names lists the registered views, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the handler for name and the name actually served.
func (r *Router) Resolve(name string) (string, Handler) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[name]; ok {
		return name, h
	}
	return session.ViewHome, r.handlers[session.ViewHome]
}

// Dispatch renders req.State.View.
func (r *Router) Dispatch(ctx context.Context, req Request) Page {
	name, h := r.Resolve(req.State.View)
	p := h.Render(ctx, req)
	p.View = name
	p.State = req.State
	if p.Messages == nil {
		p.Messages = []Message{}
	}
	return p
}
