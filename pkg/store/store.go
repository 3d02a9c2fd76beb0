package store

import (
	"context"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/ValerySidorin/stockpile/pkg/store/config"
	"github.com/ValerySidorin/stockpile/pkg/store/memory"
	"github.com/ValerySidorin/stockpile/pkg/store/pg"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

// Store is a keyed record collection. Every call is atomic on its own,
// nothing spans calls. Implementations must be safe for concurrent use.
type Store interface {
	FindAll(ctx context.Context) ([]*record.Record, error)
	FindAllIDs(ctx context.Context) ([]int64, error)
	// FindByID reports found=false without an error when the id is absent.
	FindByID(ctx context.Context, id int64) (*record.Record, bool, error)
	// Save inserts records with a zero ID and assigns one, otherwise
	// upserts by ID. The returned copy is what was persisted.
	Save(ctx context.Context, rec *record.Record) (*record.Record, error)
	DeleteByID(ctx context.Context, id int64) error
	Dispose(ctx context.Context) error
}

func New(ctx context.Context, cfg config.Config, log log.Logger) (Store, error) {
	switch cfg.Store {
	case "memory", "":
		return memory.NewStore(), nil
	case "pg":
		return pg.NewStore(ctx, cfg.Pg, log)
	default:
		return nil, errors.Errorf("invalid store in config: %q", cfg.Store)
	}
}
