package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements_CoverAllTables(t *testing.T) {
	stmts := Statements()
	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"devices", "call_events", "orders", "audit_events"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	for _, s := range stmts {
		assert.NotContains(t, s, "--")
	}
}

func TestApply_RunsEveryStatementInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	for range Statements() {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, Apply(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = Apply(context.Background(), db)
	assert.ErrorContains(t, err, "statement 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
