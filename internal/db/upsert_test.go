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

var profileUpsert = UpsertConfig{
	Table:        "area_profiles",
	Columns:      []string{"zip", "city", "run_id"},
	ConflictKeys: []string{"zip"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	res, err := BulkUpsert(context.Background(), nil, profileUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, UpsertResult{}, res)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "area_profiles",
		ConflictKeys: []string{"zip"},
	}, [][]any{{"08053"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "area_profiles",
		Columns: []string{"zip", "city"},
	}, [][]any{{"08053", "Marlton"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_WithPrune(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cfg := profileUpsert
	cfg.PruneColumn = "run_id"
	cfg.PruneValue = "run-2"

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_area_profiles"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_area_profiles"}, cfg.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "area_profiles" .* ON CONFLICT \("zip"\) DO UPDATE SET "city" = EXCLUDED."city", "run_id" = EXCLUDED."run_id"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(`DELETE FROM "area_profiles" WHERE "run_id" IS DISTINCT FROM \$1`).
		WithArgs("run-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCommit()

	rows := [][]any{{"08053", "Marlton", "run-2"}, {"08002", "Cherry Hill", "run-2"}}
	res, err := BulkUpsert(context.Background(), mock, cfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Upserted)
	assert.Equal(t, int64(5), res.Pruned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_area_profiles"}, profileUpsert.Columns).
		WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, profileUpsert, [][]any{{"08053", "Marlton", "r"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"gapscout.area_profiles", `"gapscout"."area_profiles"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"zip", "city", "profile"})
	assert.Equal(t, `"zip", "city", "profile"`, result)
}

func TestTempTableName(t *testing.T) {
	assert.Equal(t, "_tmp_upsert_gapscout_area_profiles", TempTableName("gapscout.area_profiles"))
}
