// Package menu maps inbound actions onto catalog views.
//
// Resolution is a pure function of the action and the current catalog
// snapshot: the router keeps no per-conversation state and is safe for
// concurrent use.
package menu

import (
	"errors"
	"sync/atomic"

	"github.com/m3rciful/menubot/core/catalog"
)

// State names the view kind an action resolved to.
type State string

const (
	StateRoot         State = "root"
	StateCategory     State = "category"
	StateSupport      State = "support"
	StateUnrecognized State = "unrecognized"
)

// Router resolves actions against a catalog.
type Router struct {
	catalog atomic.Pointer[catalog.Catalog]
}

// NewRouter builds a router bound to the given catalog.
func NewRouter(c *catalog.Catalog) (*Router, error) {
	if c == nil {
		return nil, errors.New("menu: nil catalog")
	}
	r := &Router{}
	r.catalog.Store(c)
	return r, nil
}

// Catalog returns the snapshot currently used for resolution.
func (r *Router) Catalog() *catalog.Catalog {
	return r.catalog.Load()
}

// Swap replaces the catalog for subsequent resolutions and returns the
// previous one. In-flight resolutions keep the snapshot they started with.
func (r *Router) Swap(c *catalog.Catalog) (*catalog.Catalog, error) {
	if c == nil {
		return nil, errors.New("menu: nil catalog")
	}
	return r.catalog.Swap(c), nil
}

// Resolve translates one action into the view to render.
func (r *Router) Resolve(a Action) ViewOutput {
	_, out := r.ResolveState(a)
	return out
}

// ResolveState is Resolve plus the state the action landed in.
func (r *Router) ResolveState(a Action) (State, ViewOutput) {
	cat := r.catalog.Load()

	switch a.Kind {
	case KindStart, KindBack:
		return StateRoot, rootView(cat)
	case KindNavigate:
		if entry, ok := cat.Category(a.ID); ok {
			return StateCategory, categoryView(cat, entry)
		}
		if _, ok := catalog.ParseSupportID(a.ID); ok {
			entry, err := cat.Get(a.ID)
			if err == nil {
				return StateSupport, supportView(cat, entry)
			}
			// Stale or forged support ids fall through to the unrecognized view.
		}
	case KindUnrecognized:
	}
	return StateUnrecognized, unrecognizedView(cat)
}

func rootView(cat *catalog.Catalog) ViewOutput {
	root := cat.Root()
	rows := make([][]Button, 0, len(root.Children))
	for _, ch := range root.Children {
		if !ch.Navigable() {
			continue
		}
		entry, ok := cat.Category(ch.Ref)
		if !ok {
			continue
		}
		rows = append(rows, []Button{{Label: entry.Label, Target: ActionTarget(entry.ID)}})
	}
	return ViewOutput{Text: textOr(root.Title, cat), Buttons: rows}
}

func categoryView(cat *catalog.Catalog, entry catalog.ViewEntry) ViewOutput {
	texts := cat.Texts()
	rows := make([][]Button, 0, len(entry.Children)+2)
	for _, ch := range entry.Children {
		if ch.Leaf == nil {
			continue
		}
		rows = append(rows, []Button{{Label: ch.Leaf.Label, Target: LinkTarget(ch.Leaf.URL)}})
	}
	if entry.SupportActionID != "" {
		rows = append(rows, []Button{{Label: texts.SupportLabel, Target: ActionTarget(entry.SupportActionID)}})
	}
	rows = append(rows, backRow(texts))
	return ViewOutput{Text: textOr(entry.Title, cat), Buttons: rows}
}

func supportView(cat *catalog.Catalog, entry catalog.ViewEntry) ViewOutput {
	return ViewOutput{
		Text:    textOr(entry.Title, cat),
		Buttons: [][]Button{backRow(cat.Texts())},
	}
}

func unrecognizedView(cat *catalog.Catalog) ViewOutput {
	texts := cat.Texts()
	return ViewOutput{
		Text:    texts.Unknown,
		Buttons: [][]Button{backRow(texts)},
	}
}

func backRow(texts catalog.Texts) []Button {
	return []Button{{Label: texts.BackLabel, Target: ActionTarget(catalog.BackID)}}
}

func textOr(text string, cat *catalog.Catalog) string {
	if text != "" {
		return text
	}
	return cat.Texts().Unknown
}
