// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/emotext/internal/domain"
)

// ErrDuplicateUsername is returned by CreateAccount when the username is
// already registered.
var ErrDuplicateUsername = errors.New("username already registered")

// Repository defines the interface for persisting accounts and telemetry.
//
// The telemetry tables are append-only: rows are inserted and read back,
// never updated or deleted.
type Repository interface {
	// CreateAccount inserts a new account row.
	// Returns ErrDuplicateUsername if the username is taken.
	CreateAccount(ctx context.Context, account *domain.Account) error

	// GetAccountByUsername retrieves an account by username.
	// Returns (nil, nil) if no such account exists.
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)

	// ListAccounts retrieves all accounts in registration order.
	ListAccounts(ctx context.Context) ([]*domain.Account, error)

	// AddPageVisit appends one page-visit row.
	AddPageVisit(ctx context.Context, page string, at time.Time) error

	// AddPrediction appends one prediction row.
	AddPrediction(ctx context.Context, rec *domain.PredictionRecord) error

	// ListPageVisits retrieves the full visit log in insertion order.
	ListPageVisits(ctx context.Context) ([]*domain.PageVisitRecord, error)

	// ListPredictions retrieves the full prediction log in insertion order.
	ListPredictions(ctx context.Context) ([]*domain.PredictionRecord, error)

	// CountVisitsByPage groups the visit log by page name.
	CountVisitsByPage(ctx context.Context) (map[string]int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
