// Package store persists finished reports.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/PACSamericana/poly/internal/model"
)

// ErrNotFound is returned by Load for an unknown report id
var ErrNotFound = errors.New("report not found")

// Store saves reports and loads them back by id. A saved report is never
// modified.
type Store interface {
	Save(ctx context.Context, report *model.Report) (string, error)
	Load(ctx context.Context, id string) (*model.Report, error)
	Close() error
}

// Open returns the store selected by cfg.Driver. dir is the output
// directory used by the file store.
func Open(ctx context.Context, cfg model.StoreConfig, dir string) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(dir)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires store.dsn")
		}
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
