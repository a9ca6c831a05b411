package pg

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/para/internal/store"
	migrations "github.com/dropDatabas3/para/migrations/postgres"
)

func TestDuplicateFrom(t *testing.T) {
	email := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505", ConstraintName: "user_account_email_uq"})
	d := duplicateFrom(email)
	require.NotNil(t, d)
	assert.Equal(t, "email", d.Field)
	assert.ErrorIs(t, d, store.ErrDuplicate)

	d = duplicateFrom(&pgconn.PgError{Code: "23505", ConstraintName: "user_account_username_uq"})
	require.NotNil(t, d)
	assert.Equal(t, "username", d.Field)

	assert.Nil(t, duplicateFrom(&pgconn.PgError{Code: "23503"}))
	assert.Nil(t, duplicateFrom(errors.New("boom")))
}

func TestMigrationFiles_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b_up.sql":   {Data: []byte("select 2")},
		"0001_a_up.sql":   {Data: []byte("select 1")},
		"0001_a_down.sql": {Data: []byte("drop")},
		"README.md":       {Data: []byte("x")},
	}
	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a_up.sql", "0002_b_up.sql"}, files)
}

func TestMigrationFiles_Embedded(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	require.NoError(t, err)
	assert.Contains(t, files, "0001_user_account_up.sql")
}

func TestAdapterRegistered(t *testing.T) {
	assert.Contains(t, store.ListAdapters(), "postgres")
}
