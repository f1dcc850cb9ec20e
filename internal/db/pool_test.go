package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFromEmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "city_snapshots", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{
		{"Lagos", 51.3},
		{"Quito", 28.1},
	}
	mock.ExpectCopyFrom(pgx.Identifier{"city_snapshots"}, []string{"title", "score"}).
		WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "city_snapshots", []string{"title", "score"}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
