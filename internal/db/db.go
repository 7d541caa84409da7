// Package db provides PostgreSQL-backed repositories for the onboarding
// platform. All repositories accept a DBTX interface satisfied by both
// *pgxpool.Pool and pgx.Tx, so the same code works inside or outside a
// transaction.
//
// Enum columns (appointment kind/status, interaction kind) are validated on
// scan: a row carrying an unknown value is rejected here rather than leaking
// a free-form string into domain code.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
