// Package catalog holds the static tree of menu views shown by the bot.
//
// The tree has a fixed depth: the implicit root lists categories, and every
// category lists external links plus a synthesized support entry. A Catalog
// never changes after New returns; reloading content means building a new one.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// RootID identifies the implicit main menu view.
	RootID = "main"
	// BackID is the reserved action identifier of every "back" button.
	BackID = "back_to_main"

	supportPrefix = "support_"
)

// ErrUnknownView reports that an identifier has no matching view.
var ErrUnknownView = errors.New("catalog: unknown view")

// UnknownViewError carries the identifier that failed to resolve.
type UnknownViewError struct {
	ID string
}

func (e *UnknownViewError) Error() string {
	return fmt.Sprintf("catalog: unknown view %q", e.ID)
}

// Is makes errors.Is(err, ErrUnknownView) match.
func (e *UnknownViewError) Is(target error) bool {
	return target == ErrUnknownView
}

// Code exposes a stable error code for handler summaries.
func (e *UnknownViewError) Code() string {
	return "UNKNOWN_VIEW"
}

// SupportID returns the synthetic support action identifier for a category.
func SupportID(parentID string) string {
	return supportPrefix + parentID
}

// ParseSupportID reports whether id follows the support pattern and returns
// the parent identifier it was derived from.
func ParseSupportID(id string) (string, bool) {
	if !strings.HasPrefix(id, supportPrefix) {
		return "", false
	}
	parent := strings.TrimPrefix(id, supportPrefix)
	if parent == "" {
		return "", false
	}
	return parent, true
}

// Leaf is a terminal child that opens an external link.
type Leaf struct {
	Label string
	URL   string
}

// Child is an entry listed under a view: either a reference to another
// navigable view or a leaf link.
type Child struct {
	Ref  string
	Leaf *Leaf
}

// Navigable reports whether pressing the child produces a new in-bot view.
func (c Child) Navigable() bool {
	return c.Ref != ""
}

// ViewEntry is a node of the catalog.
type ViewEntry struct {
	ID    string
	Label string
	Title string
	// Children keeps the configured display order.
	Children []Child
	// SupportActionID is empty for views without a support affordance.
	SupportActionID string
}

// Texts groups the fixed strings used outside regular views.
type Texts struct {
	Support      string
	Unknown      string
	BackLabel    string
	SupportLabel string
}

// Catalog is an immutable lookup over the configured views.
type Catalog struct {
	root       ViewEntry
	order      []string
	categories map[string]ViewEntry
	texts      Texts
}

// Root returns the main menu whose children are the categories in display order.
func (c *Catalog) Root() ViewEntry {
	return cloneEntry(c.root)
}

// Texts returns the fixed fallback and navigation strings.
func (c *Catalog) Texts() Texts {
	return c.texts
}

// Categories returns the top-level categories in display order.
func (c *Catalog) Categories() []ViewEntry {
	out := make([]ViewEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, cloneEntry(c.categories[id]))
	}
	return out
}

// Category looks up a top-level category by identifier.
func (c *Catalog) Category(id string) (ViewEntry, bool) {
	entry, ok := c.categories[id]
	if !ok {
		return ViewEntry{}, false
	}
	return cloneEntry(entry), true
}

// Get performs an exact-match lookup. Support identifiers of known categories
// resolve to their synthesized support view.
func (c *Catalog) Get(id string) (ViewEntry, error) {
	if id == RootID {
		return c.Root(), nil
	}
	if entry, ok := c.Category(id); ok {
		return entry, nil
	}
	if parent, ok := ParseSupportID(id); ok {
		return c.ResolveSupport(parent)
	}
	return ViewEntry{}, &UnknownViewError{ID: id}
}

// ResolveSupport synthesizes the support view of the given category.
func (c *Catalog) ResolveSupport(parentID string) (ViewEntry, error) {
	if _, ok := c.categories[parentID]; !ok {
		return ViewEntry{}, &UnknownViewError{ID: SupportID(parentID)}
	}
	return ViewEntry{
		ID:    SupportID(parentID),
		Label: c.texts.SupportLabel,
		Title: c.texts.Support,
	}, nil
}

func cloneEntry(e ViewEntry) ViewEntry {
	if e.Children != nil {
		children := make([]Child, len(e.Children))
		for i, ch := range e.Children {
			if ch.Leaf != nil {
				leaf := *ch.Leaf
				ch.Leaf = &leaf
			}
			children[i] = ch
		}
		e.Children = children
	}
	return e
}
