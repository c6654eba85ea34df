package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"nuclear/internal/apperr"
	"nuclear/internal/models"
	"nuclear/internal/repository"
)

func TestWritePointsLedger(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repos := repository.New(db)
	svc := NewReportService(repos, zap.NewNop())

	user := mustUser(t, repos, "learner@example.com", ptr("Marie"))
	block := mustBlock(t, repos, user.ID, "Radium")
	for _, pts := range []int{5, 7} {
		_, err := repos.PointsUpdates.Create(ctx, models.CreatePointsUpdateInput{
			Points: pts, BlockID: &block.ID, UserID: &user.ID, Reason: ptr("practice"),
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	got, err := svc.WritePointsLedger(ctx, block.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, block.ID, got.ID)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(pointsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, pointsHeader, rows[0])
	assert.Equal(t, "5", rows[1][1])
	assert.Equal(t, "Marie", rows[1][2])
	assert.Equal(t, "learner@example.com", rows[2][3])
	assert.Equal(t, "Total", rows[3][0])

	formula, err := f.GetCellFormula(pointsSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B2:B3)", formula)
}

func TestWritePointsLedgerMissingBlock(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReportService(repository.New(db), zap.NewNop())

	_, err := svc.WritePointsLedger(context.Background(), "missing", &bytes.Buffer{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReportFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "points_b1_2024-03-09.xlsx", ReportFilename(&models.Block{ID: "b1"}, at))
}
