package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/bulletin-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := MapError(sql.ErrNoRows)
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: uniqueViolationCode}
		err := MapError(fmt.Errorf("insert: %w", pgErr))
		assert.True(t, errors.Is(err, store.ErrDuplicate))
	})

	t.Run("foreign key violation maps to invalid entity", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "fk_message"}
		err := MapError(pgErr)
		assert.True(t, errors.Is(err, store.ErrInvalidEntity))
		assert.Contains(t, err.Error(), "fk_message")
	})

	t.Run("unknown error passes through", func(t *testing.T) {
		orig := errors.New("connection refused")
		assert.Equal(t, orig, MapError(orig))
	})
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: uniqueViolationCode}
	fk := &pgconn.PgError{Code: foreignKeyViolationCode}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(errors.New("other")))

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrMessageNotFound))
	assert.False(t, IsNotFoundError(unique))
}
