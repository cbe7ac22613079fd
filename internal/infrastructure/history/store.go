// Package history stores validated price records per tracked item and the
// log of extraction attempts.
package history

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pricespy/backend/internal/domain"
)

// Store is a price history and extraction log repository that owns resources.
type Store interface {
	domain.PriceHistoryRepository
	domain.ExtractionLogRepository
	Close() error
}

// Options configure Open.
type Options struct {
	Driver    string // "memory" or "sqlite"
	Path      string
	Retention time.Duration
}

// Open creates the store selected by opts.Driver. SQLite stores are migrated
// before being returned.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemoryStore(opts.Retention), nil
	case "sqlite":
		if opts.Path == "" {
			return nil, eris.New("history: sqlite driver requires a path")
		}
		st, err := NewSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("history: unsupported driver %q", opts.Driver)
	}
}
