package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/repository"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "ux_matches_pair"}, repository.ErrConflict},
		{"serialization failure", &pgconn.PgError{Code: codeSerializationFailure}, repository.ErrTransient},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, repository.ErrTransient},
		{"wrapped deadlock", fmt.Errorf("update: %w", &pgconn.PgError{Code: codeDeadlockDetected}), repository.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.err)
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapErrKeepsConstraintName(t *testing.T) {
	err := mapErr(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "ux_profile_photos_key"})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Contains(t, err.Error(), "ux_profile_photos_key")
	assert.NotErrorIs(t, err, repository.ErrTransient)
}

func TestMapErrPassesThrough(t *testing.T) {
	assert.NoError(t, mapErr(nil))

	fk := &pgconn.PgError{Code: "23503"}
	got := mapErr(fk)
	assert.Same(t, fk, got)
	assert.NotErrorIs(t, got, repository.ErrTransient)
	assert.NotErrorIs(t, got, repository.ErrConflict)

	noRows := mapErr(pgx.ErrNoRows)
	assert.ErrorIs(t, noRows, pgx.ErrNoRows)
	assert.NotErrorIs(t, noRows, repository.ErrTransient)
}

func TestMapErrConnectFailureIsTransient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Nothing listens on port 1, so the dial is refused.
	_, err := pgconn.Connect(ctx, "postgres://matrimony@127.0.0.1:1/matrimony?connect_timeout=1&sslmode=disable")
	require.Error(t, err)
	var connErr *pgconn.ConnectError
	require.True(t, errors.As(err, &connErr))

	got := mapErr(err)
	assert.ErrorIs(t, got, repository.ErrTransient)
	assert.ErrorAs(t, got, &connErr)
}
