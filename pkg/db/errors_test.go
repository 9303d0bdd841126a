package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_coupons_code"}
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx match", err: fmt.Errorf("insert: %w", pgErr), constraint: "uq_coupons_code", want: true},
		{name: "pgx other constraint", err: pgErr, constraint: "uq_orders_order_number", want: false},
		{name: "pgx other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "pq match", err: &pq.Error{Code: "23505", Constraint: "uq_slots_date_window"}, constraint: "uq_slots_date_window", want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: coupons.code"), constraint: "uq_coupons_code", want: true},
		{name: "plain text", err: errors.New("duplicate key value violates unique constraint"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}
