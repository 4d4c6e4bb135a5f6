package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/menubot/core/catalog"
	"github.com/m3rciful/menubot/core/logger"
)

// Keys of menu_settings rows.
const (
	SettingRootTitle    = "root_title"
	SettingSupport      = "support"
	SettingUnknown      = "unknown"
	SettingBackLabel    = "back_label"
	SettingSupportLabel = "support_label"
)

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

type categoryRow struct {
	ID       string `db:"id"`
	Label    string `db:"label"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

type leafRow struct {
	CategoryID string `db:"category_id"`
	Label      string `db:"label"`
	URL        string `db:"url"`
	Position   int    `db:"position"`
}

// LoadMenuContent reads the menu tables into catalog content. Validation is
// left to catalog.New.
func LoadMenuContent(ctx context.Context, db *sqlx.DB) (catalog.Content, error) {
	start := time.Now()

	var settings []settingRow
	if err := db.SelectContext(ctx, &settings, `SELECT key, value FROM menu_settings`); err != nil {
		return catalog.Content{}, fmt.Errorf("load menu settings: %w", err)
	}
	var cats []categoryRow
	if err := db.SelectContext(ctx, &cats,
		`SELECT id, label, title, position FROM menu_categories ORDER BY position, id`); err != nil {
		return catalog.Content{}, fmt.Errorf("load menu categories: %w", err)
	}
	var leaves []leafRow
	if err := db.SelectContext(ctx, &leaves,
		`SELECT category_id, label, url, position FROM menu_leaves ORDER BY category_id, position, id`); err != nil {
		return catalog.Content{}, fmt.Errorf("load menu leaves: %w", err)
	}

	content, err := contentFromRows(settings, cats, leaves)
	if err != nil {
		return catalog.Content{}, err
	}
	logger.Debug(ctx, "db", "menu.loaded",
		slog.Int("categories", len(cats)),
		slog.Int("leaves", len(leaves)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return content, nil
}

func contentFromRows(settings []settingRow, cats []categoryRow, leaves []leafRow) (catalog.Content, error) {
	var content catalog.Content
	for _, s := range settings {
		switch s.Key {
		case SettingRootTitle:
			content.Root.Title = s.Value
		case SettingSupport:
			content.Texts.Support = s.Value
		case SettingUnknown:
			content.Texts.Unknown = s.Value
		case SettingBackLabel:
			content.Texts.BackLabel = s.Value
		case SettingSupportLabel:
			content.Texts.SupportLabel = s.Value
		}
	}

	index := make(map[string]int, len(cats))
	content.Categories = make([]catalog.CategoryContent, 0, len(cats))
	for _, c := range cats {
		index[c.ID] = len(content.Categories)
		content.Categories = append(content.Categories, catalog.CategoryContent{
			ID:    c.ID,
			Label: c.Label,
			Title: c.Title,
		})
	}
	for _, l := range leaves {
		i, ok := index[l.CategoryID]
		if !ok {
			return catalog.Content{}, fmt.Errorf("menu leaf %q references unknown category %q", l.Label, l.CategoryID)
		}
		content.Categories[i].Leaves = append(content.Categories[i].Leaves, catalog.LeafContent{
			Label: l.Label,
			URL:   l.URL,
		})
	}
	return content, nil
}

// SeedMenuContent fills empty menu tables with content. It reports whether
// anything was written; populated tables are left untouched.
func SeedMenuContent(ctx context.Context, db *sqlx.DB, content catalog.Content) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM menu_categories`); err != nil {
		return false, fmt.Errorf("count menu categories: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	settings, cats, leaves := rowsFromContent(content)
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range settings {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO menu_settings (key, value) VALUES (:key, :value)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, s); err != nil {
			return false, fmt.Errorf("seed menu setting %q: %w", s.Key, err)
		}
	}
	for _, c := range cats {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO menu_categories (id, label, title, position) VALUES (:id, :label, :title, :position)`, c); err != nil {
			return false, fmt.Errorf("seed menu category %q: %w", c.ID, err)
		}
	}
	for _, l := range leaves {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO menu_leaves (category_id, label, url, position) VALUES (:category_id, :label, :url, :position)`, l); err != nil {
			return false, fmt.Errorf("seed menu leaf %q: %w", l.Label, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	logger.Info(ctx, "db", "menu.seeded",
		slog.Int("categories", len(cats)),
		slog.Int("leaves", len(leaves)),
	)
	return true, nil
}

func rowsFromContent(content catalog.Content) ([]settingRow, []categoryRow, []leafRow) {
	var settings []settingRow
	add := func(key, value string) {
		if value != "" {
			settings = append(settings, settingRow{Key: key, Value: value})
		}
	}
	add(SettingRootTitle, content.Root.Title)
	add(SettingSupport, content.Texts.Support)
	add(SettingUnknown, content.Texts.Unknown)
	add(SettingBackLabel, content.Texts.BackLabel)
	add(SettingSupportLabel, content.Texts.SupportLabel)

	cats := make([]categoryRow, 0, len(content.Categories))
	var leaves []leafRow
	for i, c := range content.Categories {
		cats = append(cats, categoryRow{ID: c.ID, Label: c.Label, Title: c.Title, Position: i})
		for j, l := range c.Leaves {
			leaves = append(leaves, leafRow{CategoryID: c.ID, Label: l.Label, URL: l.URL, Position: j})
		}
	}
	return settings, cats, leaves
}
