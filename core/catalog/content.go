package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultContent []byte

const (
	fallbackUnknownText  = "Неизвестная команда. Вернитесь в главное меню."
	fallbackSupportText  = "Для связи с поддержкой напишите в наш чат."
	fallbackBackLabel    = "⬅️ Назад"
	fallbackSupportLabel = "🆘 Поддержка"
)

// Content is the external shape of the menu definition.
type Content struct {
	Root       RootContent       `yaml:"root"`
	Texts      TextsContent      `yaml:"texts"`
	Categories []CategoryContent `yaml:"categories"`
}

// RootContent describes the main menu.
type RootContent struct {
	Title string `yaml:"title"`
}

// TextsContent overrides the built-in fixed strings.
type TextsContent struct {
	Support      string `yaml:"support"`
	Unknown      string `yaml:"unknown"`
	BackLabel    string `yaml:"back_label"`
	SupportLabel string `yaml:"support_label"`
}

// CategoryContent describes a top-level category and its links.
type CategoryContent struct {
	ID     string        `yaml:"id"`
	Label  string        `yaml:"label"`
	Title  string        `yaml:"title"`
	Leaves []LeafContent `yaml:"leaves"`
}

// LeafContent describes an external link button.
type LeafContent struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Parse decodes YAML content and builds a validated Catalog.
func Parse(data []byte) (*Catalog, error) {
	var content Content
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("catalog: parse content: %w", err)
	}
	return New(content)
}

// LoadFile reads and parses a YAML content file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read content file: %w", err)
	}
	return Parse(data)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultContent)
}

// DefaultContent returns the raw content compiled into the binary, e.g. to
// seed an empty database.
func DefaultContent() (Content, error) {
	var content Content
	if err := yaml.Unmarshal(defaultContent, &content); err != nil {
		return Content{}, fmt.Errorf("catalog: parse default content: %w", err)
	}
	return content, nil
}

// New validates content and builds an immutable Catalog.
func New(content Content) (*Catalog, error) {
	title := strings.TrimSpace(content.Root.Title)
	if title == "" {
		return nil, errors.New("catalog: root.title is required")
	}
	if len(content.Categories) == 0 {
		return nil, errors.New("catalog: at least one category is required")
	}

	c := &Catalog{
		order:      make([]string, 0, len(content.Categories)),
		categories: make(map[string]ViewEntry, len(content.Categories)),
		texts:      buildTexts(content.Texts),
	}

	rootChildren := make([]Child, 0, len(content.Categories))
	for i, cat := range content.Categories {
		entry, err := buildCategory(cat)
		if err != nil {
			return nil, fmt.Errorf("catalog: categories[%d]: %w", i, err)
		}
		if _, dup := c.categories[entry.ID]; dup {
			return nil, fmt.Errorf("catalog: categories[%d]: duplicate id %q", i, entry.ID)
		}
		c.categories[entry.ID] = entry
		c.order = append(c.order, entry.ID)
		rootChildren = append(rootChildren, Child{Ref: entry.ID})
	}

	c.root = ViewEntry{
		ID:       RootID,
		Title:    title,
		Children: rootChildren,
	}
	return c, nil
}

func buildTexts(in TextsContent) Texts {
	pick := func(v, fallback string) string {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
		return fallback
	}
	return Texts{
		Support:      pick(in.Support, fallbackSupportText),
		Unknown:      pick(in.Unknown, fallbackUnknownText),
		BackLabel:    pick(in.BackLabel, fallbackBackLabel),
		SupportLabel: pick(in.SupportLabel, fallbackSupportLabel),
	}
}

func buildCategory(in CategoryContent) (ViewEntry, error) {
	id := strings.TrimSpace(in.ID)
	switch {
	case id == "":
		return ViewEntry{}, errors.New("id is required")
	case id == RootID || id == BackID:
		return ViewEntry{}, fmt.Errorf("id %q is reserved", id)
	case strings.HasPrefix(id, supportPrefix):
		return ViewEntry{}, fmt.Errorf("id %q collides with the support pattern", id)
	case len(SupportID(id)) > 64:
		// Telegram caps callback data at 64 bytes.
		return ViewEntry{}, fmt.Errorf("id %q is too long", id)
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return ViewEntry{}, fmt.Errorf("category %q: label is required", id)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = label
	}

	children := make([]Child, 0, len(in.Leaves))
	for j, leaf := range in.Leaves {
		l, err := buildLeaf(leaf)
		if err != nil {
			return ViewEntry{}, fmt.Errorf("category %q: leaves[%d]: %w", id, j, err)
		}
		children = append(children, Child{Leaf: &l})
	}

	return ViewEntry{
		ID:              id,
		Label:           label,
		Title:           title,
		Children:        children,
		SupportActionID: SupportID(id),
	}, nil
}

func buildLeaf(in LeafContent) (Leaf, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return Leaf{}, errors.New("label is required")
	}
	raw := strings.TrimSpace(in.URL)
	u, err := url.Parse(raw)
	if err != nil {
		return Leaf{}, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "tg":
	default:
		return Leaf{}, fmt.Errorf("url %q must use http, https or tg scheme", raw)
	}
	if u.Scheme != "tg" && u.Host == "" {
		return Leaf{}, fmt.Errorf("url %q has no host", raw)
	}
	return Leaf{Label: label, URL: raw}, nil
}
