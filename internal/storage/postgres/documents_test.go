package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warranty-tracker/warranty-client/config"
)

func setupDocumentRepo(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return NewDocumentRepository(db), mock, db
}

func TestDocumentRepository_EnsureSchema(t *testing.T) {
	repo, mock, db := setupDocumentRepo(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS dev_documents`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_Load(t *testing.T) {
	repo, mock, db := setupDocumentRepo(t)
	defer db.Close()

	t.Run("returns documents by id", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "doc"}).
			AddRow(int64(1), []byte(`{"id":1,"name":"Acme"}`)).
			AddRow(int64(3), []byte(`{"id":3,"name":"Globex"}`))
		mock.ExpectQuery(`SELECT id, doc FROM dev_documents`).
			WithArgs("company").
			WillReturnRows(rows)

		docs, err := repo.Load(context.Background(), "company")
		require.NoError(t, err)
		assert.Len(t, docs, 2)
		assert.JSONEq(t, `{"id":3,"name":"Globex"}`, string(docs[3]))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps query errors", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, doc FROM dev_documents`).
			WithArgs("claim").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Load(context.Background(), "claim")
		assert.ErrorContains(t, err, "failed to query documents")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentRepository_SaveAndDelete(t *testing.T) {
	repo, mock, db := setupDocumentRepo(t)
	defer db.Close()

	doc := []byte(`{"id":2}`)
	mock.ExpectExec(`INSERT INTO dev_documents`).
		WithArgs("warranty", int64(2), doc).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM dev_documents`).
		WithArgs("warranty", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), "warranty", 2, doc))
	require.NoError(t, repo.Delete(context.Background(), "warranty", 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{Host: "db", Port: 5432, User: "dev", Password: "secret", Name: "warranty", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=dev password=secret dbname=warranty sslmode=disable", dsn)
}
