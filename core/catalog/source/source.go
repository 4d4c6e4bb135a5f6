// Package source loads the menu catalog from its configured origin and
// keeps the router's catalog current.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/menubot/core/catalog"
	coreconfig "github.com/m3rciful/menubot/core/config"
	coredatabase "github.com/m3rciful/menubot/core/database"
)

// Source produces a validated catalog.
type Source interface {
	Name() string
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Embedded serves the catalog compiled into the binary.
type Embedded struct{}

func (Embedded) Name() string { return coreconfig.MenuSourceEmbedded }

func (Embedded) Load(context.Context) (*catalog.Catalog, error) {
	return catalog.Default()
}

// File reads a YAML content file on every load.
type File struct {
	Path string
}

func (f File) Name() string { return coreconfig.MenuSourceFile }

func (f File) Load(context.Context) (*catalog.Catalog, error) {
	return catalog.LoadFile(f.Path)
}

// Postgres assembles the catalog from the menu tables.
type Postgres struct {
	DB *sqlx.DB
}

func (p Postgres) Name() string { return coreconfig.MenuSourcePostgres }

func (p Postgres) Load(ctx context.Context) (*catalog.Catalog, error) {
	content, err := coredatabase.LoadMenuContent(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	return catalog.New(content)
}

// New picks the source named by cfg. db is required for the postgres source only.
func New(cfg coreconfig.MenuConfig, db *sqlx.DB) (Source, error) {
	switch cfg.Source {
	case "", coreconfig.MenuSourceEmbedded:
		return Embedded{}, nil
	case coreconfig.MenuSourceFile:
		if cfg.ContentPath == "" {
			return nil, errors.New("source: file source requires a content path")
		}
		return File{Path: cfg.ContentPath}, nil
	case coreconfig.MenuSourcePostgres:
		if db == nil {
			return nil, errors.New("source: postgres source requires a database")
		}
		return Postgres{DB: db}, nil
	default:
		return nil, fmt.Errorf("source: unknown menu source %q", cfg.Source)
	}
}
