package repository

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/keys"
	"github.com/passthekeys/outbound-core/internal/scheduler"
	"github.com/passthekeys/outbound-core/internal/trigger"
	"github.com/passthekeys/outbound-core/internal/webhook"
	"github.com/passthekeys/outbound-core/internal/workflow"
	"gorm.io/gorm"
)

// Store is the single concrete persistence implementation backing every
// Store seam in this module (internal/keys, internal/trigger,
// internal/scheduler, internal/webhook, internal/workflow). Methods are
// grouped by aggregate across sibling files in this package rather than
// split into one repository struct per table, since every seam ultimately
// needs to compose freely (a Tenant lookup inside a Call upsert, an Agent
// lookup inside a Workflow dispatch) against the same transaction.
type Store struct {
	db *gorm.DB
}

// NewStoreFromDB wraps an already-open gorm connection, mainly for tests
// and for callers that manage migrations themselves.
func NewStoreFromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn against a Store bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx})
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ keys.Store      = (*Store)(nil)
	_ trigger.Store   = (*Store)(nil)
	_ scheduler.Store = (*Store)(nil)
	_ webhook.Store   = (*Store)(nil)
	_ workflow.Store  = (*Store)(nil)
)
