package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
)

func newMockRepo(t *testing.T) (*ContactRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewContactRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestInsert_GeneratesIDAndScansTimestamps(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contacts")).
		WithArgs(sqlmock.AnyArg(), "owner-1", "Ann", "ann@example.com", "", "", "UTC").
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "created_at", "updated_at"}).AddRow(true, now, now))

	c := &entity.Contact{OwnerID: "owner-1", Name: "Ann", Email: "ann@example.com", Timezone: "UTC"}
	id, err := r.Insert(context.Background(), c)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, id, c.ID)
	require.True(t, c.IsActive)
	require.Equal(t, now, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByID_ReturnsAffectedRows(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET name=$1")).
		WithArgs("Ann", "ann@example.com", "1234567890", "", "UTC", "c-1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := r.UpdateByID(context.Background(), "c-1", "owner-1", entity.Fields{
		Name: "Ann", Email: "ann@example.com", Phone: "1234567890", Timezone: "UTC",
	})
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByOwnerAndIdentity_NoRows(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE owner_id=$1 AND (email=$2")).
		WithArgs("owner-1", "ann@example.com", "").
		WillReturnError(sql.ErrNoRows)

	_, err := r.FindByOwnerAndIdentity(context.Background(), "owner-1", "ann@example.com", "")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActive_BuildsFiltersAndWhitelistsSort(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "name", "email", "phone", "address", "timezone", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("AND name ILIKE $2 AND timezone=$3 ORDER BY created_at DESC, id ASC")).
		WithArgs("owner-1", "%an%", "UTC").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("c-1", "owner-1", "Ann", "ann@example.com", "", "", "UTC", true, now, now))

	out, err := r.ListActive(context.Background(), "owner-1", entity.ListFilter{
		Name:      "an",
		Timezone:  "UTC",
		SortField: "name; DROP TABLE contacts",
		SortOrder: "desc",
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Ann", out[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	r, mock := newMockRepo(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := r.WithTx(context.Background(), func(tx *ContactRepo) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET is_active=false")).
		WithArgs("c-1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := r.SoftDelete(context.Background(), "c-1", "owner-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
