package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
)

// Store owns the connection pool and hands out repositories, either bound to
// the pool or to a transaction
type Store struct {
	Repositories
	db     *sql.DB
	logger *logger.Logger
}

// NewStore creates repositories bound to db
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{
		Repositories: bind(db, log),
		db:           db,
		logger:       log,
	}
}

func bind(q Querier, log *logger.Logger) Repositories {
	return Repositories{
		Users:       NewUserRepository(q, log),
		Permissions: NewPermissionRepository(q, log),
		Quotas:      NewQuotaRepository(q, log),
	}
}

// WithTx runs fn inside a transaction; any error or panic rolls back
func (s *Store) WithTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.WithContext(ctx).WithError(rbErr).Error("Failed to roll back transaction")
			}
		}
	}()

	repos := bind(tx, s.logger)
	if err = fn(&repos); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ Transactor = (*Store)(nil)
