package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"nuclear/internal/models"
	"nuclear/internal/repository"
)

const pointsSheet = "Points"

var pointsHeader = []string{"Date", "Points", "User", "Email", "Reason"}

// ReportService renders spreadsheet reports
type ReportService struct {
	repos *repository.Repositories
	log   *zap.Logger
}

func NewReportService(repos *repository.Repositories, log *zap.Logger) *ReportService {
	return &ReportService{repos: repos, log: log.Named("report")}
}

// ReportFilename names the ledger workbook for a block
func ReportFilename(block *models.Block, at time.Time) string {
	return fmt.Sprintf("points_%s_%s.xlsx", block.ID, at.Format("2006-01-02"))
}

// WritePointsLedger writes the block's ledger, oldest first, as an XLSX
// workbook with a bold filtered header and a total row.
func (s *ReportService) WritePointsLedger(ctx context.Context, blockID string, w io.Writer) (*models.Block, error) {
	block, err := s.repos.Blocks.MustGetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.PointsUpdates.GetAllForBlockOrdered(ctx, blockID, models.SortAsc)
	if err != nil {
		return nil, err
	}

	users := map[string]*models.User{}
	for _, p := range entries {
		if p.UserID == nil {
			continue
		}
		if _, seen := users[*p.UserID]; seen {
			continue
		}
		u, err := s.repos.Users.GetByID(ctx, *p.UserID)
		if err != nil {
			return nil, err
		}
		users[*p.UserID] = u
	}

	f, err := buildLedgerWorkbook(entries, users)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.log.Info("points ledger exported", zap.String("block_id", blockID), zap.Int("rows", len(entries)))
	return block, nil
}

func buildLedgerWorkbook(entries []models.PointsUpdate, users map[string]*models.User) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", pointsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for c, h := range pointsHeader {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellStr(pointsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(pointsHeader), 1)
	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(pointsSheet, "A1", last, bold)
	_ = f.AutoFilter(pointsSheet, "A1:"+last, nil)

	for i, p := range entries {
		var name, email, reason string
		if p.UserID != nil {
			if u := users[*p.UserID]; u != nil {
				email = u.Email
				if u.Name != nil {
					name = *u.Name
				}
			}
		}
		if p.Reason != nil {
			reason = *p.Reason
		}

		row := []any{p.CreatedAt.Format(time.RFC3339), p.Points, name, email, reason}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(pointsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("set row %d: %w", i+2, err)
		}
	}

	totalRow := len(entries) + 2
	_ = f.SetCellStr(pointsSheet, fmt.Sprintf("A%d", totalRow), "Total")
	formula := "0"
	if len(entries) > 0 {
		formula = fmt.Sprintf("SUM(B2:B%d)", totalRow-1)
	}
	if err := f.SetCellFormula(pointsSheet, fmt.Sprintf("B%d", totalRow), formula); err != nil {
		return nil, fmt.Errorf("set total: %w", err)
	}
	_ = f.SetCellStyle(pointsSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("B%d", totalRow), bold)

	_ = f.SetColWidth(pointsSheet, "A", "A", 24)
	_ = f.SetColWidth(pointsSheet, "C", "D", 28)
	_ = f.SetColWidth(pointsSheet, "E", "E", 40)
	return f, nil
}
