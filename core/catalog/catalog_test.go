package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testContent() Content {
	return Content{
		Root: RootContent{Title: "Главное меню"},
		Texts: TextsContent{
			Support: "Напишите @support",
		},
		Categories: []CategoryContent{
			{
				ID:    "web_dev",
				Label: "1️⃣ Веб-разработка",
				Title: "Веб-разработка",
				Leaves: []LeafContent{
					{Label: "Landing", URL: "https://example.com/landing"},
					{Label: "Store", URL: "https://example.com/store"},
				},
			},
			{ID: "apps", Label: "2️⃣ Приложения", Title: "Приложения"},
		},
	}
}

func mustNew(t *testing.T, content Content) *Catalog {
	t.Helper()
	c, err := New(content)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

func TestRootPreservesCategoryOrder(t *testing.T) {
	c := mustNew(t, testContent())
	root := c.Root()
	if root.ID != RootID {
		t.Fatalf("root id = %q", root.ID)
	}
	if root.Title != "Главное меню" {
		t.Fatalf("root title = %q", root.Title)
	}
	want := []string{"web_dev", "apps"}
	if len(root.Children) != len(want) {
		t.Fatalf("root children = %d, want %d", len(root.Children), len(want))
	}
	for i, id := range want {
		ch := root.Children[i]
		if !ch.Navigable() || ch.Ref != id {
			t.Fatalf("child %d = %+v, want ref %s", i, ch, id)
		}
	}
}

func TestGetCategory(t *testing.T) {
	c := mustNew(t, testContent())
	entry, err := c.Get("web_dev")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.SupportActionID != "support_web_dev" {
		t.Fatalf("support id = %q", entry.SupportActionID)
	}
	if len(entry.Children) != 2 || entry.Children[0].Leaf.Label != "Landing" || entry.Children[1].Leaf.Label != "Store" {
		t.Fatalf("unexpected children: %+v", entry.Children)
	}
	for _, ch := range entry.Children {
		if ch.Navigable() {
			t.Fatalf("category child must be a leaf: %+v", ch)
		}
	}
}

func TestGetSupportIsSynthesized(t *testing.T) {
	c := mustNew(t, testContent())
	entry, err := c.Get("support_apps")
	if err != nil {
		t.Fatalf("get support: %v", err)
	}
	if entry.ID != "support_apps" || entry.Title != "Напишите @support" {
		t.Fatalf("unexpected support entry: %+v", entry)
	}
	direct, err := c.ResolveSupport("apps")
	if err != nil {
		t.Fatalf("resolve support: %v", err)
	}
	if direct.ID != entry.ID || direct.Title != entry.Title {
		t.Fatalf("resolve support mismatch: %+v vs %+v", direct, entry)
	}
}

func TestGetUnknown(t *testing.T) {
	c := mustNew(t, testContent())
	for _, id := range []string{"does_not_exist", "support_nope", "support_", "", BackID} {
		_, err := c.Get(id)
		if !errors.Is(err, ErrUnknownView) {
			t.Fatalf("Get(%q) err = %v, want ErrUnknownView", id, err)
		}
		var uv *UnknownViewError
		if !errors.As(err, &uv) || uv.Code() != "UNKNOWN_VIEW" {
			t.Fatalf("Get(%q) err = %#v, want *UnknownViewError", id, err)
		}
	}
}

func TestReturnedEntriesAreCopies(t *testing.T) {
	c := mustNew(t, testContent())
	entry, _ := c.Get("web_dev")
	entry.Children[0].Leaf.Label = "mutated"
	entry.Children = append(entry.Children[:0], Child{Ref: "x"})

	again, _ := c.Get("web_dev")
	if again.Children[0].Leaf == nil || again.Children[0].Leaf.Label != "Landing" {
		t.Fatalf("catalog was mutated through a returned entry: %+v", again.Children)
	}
}

func TestSupportIDRoundTrip(t *testing.T) {
	parent, ok := ParseSupportID(SupportID("web_dev"))
	if !ok || parent != "web_dev" {
		t.Fatalf("ParseSupportID = %q, %v", parent, ok)
	}
	if _, ok := ParseSupportID("web_dev"); ok {
		t.Fatal("plain id must not parse as support id")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Content)
		want   string
	}{
		{"missing root title", func(c *Content) { c.Root.Title = " " }, "root.title"},
		{"no categories", func(c *Content) { c.Categories = nil }, "at least one category"},
		{"duplicate id", func(c *Content) { c.Categories[1].ID = "web_dev" }, "duplicate id"},
		{"reserved back id", func(c *Content) { c.Categories[0].ID = BackID }, "reserved"},
		{"support collision", func(c *Content) { c.Categories[0].ID = "support_x" }, "support pattern"},
		{"missing label", func(c *Content) { c.Categories[1].Label = "" }, "label is required"},
		{"bad scheme", func(c *Content) { c.Categories[0].Leaves[0].URL = "ftp://example.com" }, "scheme"},
		{"no host", func(c *Content) { c.Categories[0].Leaves[0].URL = "https://" }, "no host"},
		{"long id", func(c *Content) { c.Categories[0].ID = strings.Repeat("a", 60) }, "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := testContent()
			tt.mutate(&content)
			_, err := New(content)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestTextsFallbacks(t *testing.T) {
	content := testContent()
	content.Texts = TextsContent{}
	c := mustNew(t, content)
	texts := c.Texts()
	if texts.Unknown == "" || texts.Support == "" || texts.BackLabel == "" || texts.SupportLabel == "" {
		t.Fatalf("fallback texts must be non-empty: %+v", texts)
	}
}

func TestDefaultContent(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	cats := c.Categories()
	if len(cats) == 0 {
		t.Fatal("default catalog has no categories")
	}
	if cats[0].ID != "main_web_dev" {
		t.Fatalf("first category = %q", cats[0].ID)
	}
	if _, err := c.Get(SupportID(cats[0].ID)); err != nil {
		t.Fatalf("support for first category: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.yaml")
	data := `
root:
  title: Меню
categories:
  - id: apps
    label: Приложения
    leaves:
      - label: iOS
        url: https://example.com/ios
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entry, err := c.Get("apps")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Title != "Приложения" {
		t.Fatalf("title should fall back to label, got %q", entry.Title)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultContentValidates(t *testing.T) {
	content, err := DefaultContent()
	if err != nil {
		t.Fatalf("default content: %v", err)
	}
	if _, err := New(content); err != nil {
		t.Fatalf("default content must validate: %v", err)
	}
}
