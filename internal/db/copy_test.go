package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "customer_segments", []string{"customer_id", "segment"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"customer_id", "segment"}
	mock.ExpectCopyFrom(pgx.Identifier{"customer_segments"}, cols).WillReturnResult(3)

	rows := [][]any{{"a", "Champions"}, {"b", "Lost"}, {"c", "Hibernating"}}
	n, err := CopyFrom(context.Background(), mock, "customer_segments", cols, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"customer_id"}
	mock.ExpectCopyFrom(pgx.Identifier{"analytics", "customer_segments"}, cols).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "analytics.customer_segments", cols, [][]any{{"a"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"customer_id"}
	mock.ExpectCopyFrom(pgx.Identifier{"analytics", "customer_segments"}, cols).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyFrom(context.Background(), mock, "analytics.customer_segments", cols, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO analytics.customer_segments")
	assert.NoError(t, mock.ExpectationsWereMet())
}
