package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatekeeper-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.ApplicationRepository
	repository.ClaimRepository
	repository.DecisionRepository
	repository.ReviewActionRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		ApplicationRepository:  NewApplicationRepository(db),
		ClaimRepository:        NewClaimRepository(db),
		DecisionRepository:     NewDecisionRepository(db),
		ReviewActionRepository: NewReviewActionRepository(db),
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
