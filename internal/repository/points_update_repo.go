package repository

import (
	"context"
	"database/sql"
	"time"

	"nuclear/internal/apperr"
	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/validation"
)

const (
	pointsUpdateEntity  = "pointsUpdate"
	pointsUpdateColumns = "id, points, block_id, user_id, reason, created_at, updated_at"
)

// PointsUpdateRepository handles the points ledger
type PointsUpdateRepository struct {
	db database.DBTX
}

// NewPointsUpdateRepository creates a new points update repository
func NewPointsUpdateRepository(db database.DBTX) *PointsUpdateRepository {
	return &PointsUpdateRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *PointsUpdateRepository) WithTx(tx *database.Tx) *PointsUpdateRepository {
	return &PointsUpdateRepository{db: tx}
}

func scanPointsUpdate(s scanner) (*models.PointsUpdate, error) {
	p := &models.PointsUpdate{}
	var blockID, userID, reason sql.NullString
	if err := s.Scan(&p.ID, &p.Points, &blockID, &userID, &reason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.BlockID = stringPtr(blockID)
	p.UserID = stringPtr(userID)
	p.Reason = stringPtr(reason)
	return p, nil
}

func orderClause(order models.SortOrder) string {
	if order == models.SortAsc {
		return " ORDER BY created_at ASC, id ASC"
	}
	return " ORDER BY created_at DESC, id DESC"
}

// GetByID retrieves a ledger entry by ID. It returns nil, nil when absent.
func (r *PointsUpdateRepository) GetByID(ctx context.Context, id string) (*models.PointsUpdate, error) {
	p, err := queryOne(ctx, r.db, scanPointsUpdate, "SELECT "+pointsUpdateColumns+" FROM points_updates WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(pointsUpdateEntity, "get points update", err)
	}
	return p, nil
}

// MustGetByID is GetByID with a NotFound error for absent entries
func (r *PointsUpdateRepository) MustGetByID(ctx context.Context, id string) (*models.PointsUpdate, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(pointsUpdateEntity, id)
	}
	return p, nil
}

func (r *PointsUpdateRepository) GetAll(ctx context.Context) ([]models.PointsUpdate, error) {
	return r.query(ctx, "list points updates", "SELECT "+pointsUpdateColumns+" FROM points_updates"+orderClause(models.SortAsc))
}

func (r *PointsUpdateRepository) List(ctx context.Context, opts ListOptions) ([]models.PointsUpdate, int, error) {
	items, total, err := listQuery(ctx, r.db, scanPointsUpdate, "points_updates", pointsUpdateColumns, "created_at DESC, id DESC", opts, "reason")
	if err != nil {
		return nil, 0, apperr.Operation(pointsUpdateEntity, "list points updates", err)
	}
	return items, total, nil
}

func (r *PointsUpdateRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "points_updates", id)
	if err != nil {
		return false, apperr.Operation(pointsUpdateEntity, "check points update", err)
	}
	return ok, nil
}

// Create records a ledger entry. Negative points are rejected.
func (r *PointsUpdateRepository) Create(ctx context.Context, in models.CreatePointsUpdateInput) (*models.PointsUpdate, error) {
	if err := validation.CreatePointsUpdate(in); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, pointsUpdateEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, pointsUpdateEntity, "userId", "users", in.UserID); err != nil {
		return nil, err
	}

	ts := now()
	p := &models.PointsUpdate{
		ID:        newID(),
		Points:    in.Points,
		BlockID:   normalizeRef(in.BlockID),
		UserID:    normalizeRef(in.UserID),
		Reason:    in.Reason,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	query := `
		INSERT INTO points_updates (id, points, block_id, user_id, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Points, p.BlockID, p.UserID, p.Reason, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, storageErr(pointsUpdateEntity, "create points update", err)
	}
	return p, nil
}

func (r *PointsUpdateRepository) Update(ctx context.Context, id string, in models.UpdatePointsUpdateInput) (*models.PointsUpdate, error) {
	if err := validation.UpdatePointsUpdate(in); err != nil {
		return nil, err
	}
	p, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, pointsUpdateEntity, "blockId", "blocks", in.BlockID); err != nil {
		return nil, err
	}
	if err := checkRef(ctx, r.db, pointsUpdateEntity, "userId", "users", in.UserID); err != nil {
		return nil, err
	}

	if in.Points != nil {
		p.Points = *in.Points
	}
	if in.BlockID != nil {
		p.BlockID = normalizeRef(in.BlockID)
	}
	if in.UserID != nil {
		p.UserID = normalizeRef(in.UserID)
	}
	if in.Reason != nil {
		p.Reason = in.Reason
	}
	p.UpdatedAt = now()

	query := "UPDATE points_updates SET points = ?, block_id = ?, user_id = ?, reason = ?, updated_at = ? WHERE id = ?"
	_, err = r.db.ExecContext(ctx, query, p.Points, p.BlockID, p.UserID, p.Reason, p.UpdatedAt, id)
	if err != nil {
		return nil, storageErr(pointsUpdateEntity, "update points update", err)
	}
	return p, nil
}

func (r *PointsUpdateRepository) Delete(ctx context.Context, id string) (*models.PointsUpdate, error) {
	p, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM points_updates WHERE id = ?", id); err != nil {
		return nil, storageErr(pointsUpdateEntity, "delete points update", err)
	}
	return p, nil
}

// GetBlock returns the entry's block, or nil when unattached
func (r *PointsUpdateRepository) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	p, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.BlockID == nil {
		return nil, nil
	}
	return NewBlockRepository(r.db).GetByID(ctx, *p.BlockID)
}

// GetUser returns the entry's user, or nil when unattached
func (r *PointsUpdateRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	p, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID == nil {
		return nil, nil
	}
	return NewUserRepository(r.db).GetByID(ctx, *p.UserID)
}

// GetByBlock returns blockID's ledger in the given order
func (r *PointsUpdateRepository) GetByBlock(ctx context.Context, blockID string, order models.SortOrder) ([]models.PointsUpdate, error) {
	return r.query(ctx, "get points by block",
		"SELECT "+pointsUpdateColumns+" FROM points_updates WHERE block_id = ?"+orderClause(order), blockID)
}

// GetAllForBlockOrdered is GetByBlock with an explicit order
func (r *PointsUpdateRepository) GetAllForBlockOrdered(ctx context.Context, blockID string, order models.SortOrder) ([]models.PointsUpdate, error) {
	return r.GetByBlock(ctx, blockID, order)
}

func (r *PointsUpdateRepository) GetByUser(ctx context.Context, userID string) ([]models.PointsUpdate, error) {
	return r.query(ctx, "get points by user",
		"SELECT "+pointsUpdateColumns+" FROM points_updates WHERE user_id = ?"+orderClause(models.SortDesc), userID)
}

// GetTotalPointsForBlock sums blockID's ledger in the database; 0 when empty
func (r *PointsUpdateRepository) GetTotalPointsForBlock(ctx context.Context, blockID string) (int, error) {
	total, err := count(ctx, r.db, "SELECT COALESCE(SUM(points), 0) FROM points_updates WHERE block_id = ?", blockID)
	if err != nil {
		return 0, apperr.Operation(pointsUpdateEntity, "sum block points", err)
	}
	return total, nil
}

func (r *PointsUpdateRepository) GetTotalPointsForUser(ctx context.Context, userID string) (int, error) {
	total, err := count(ctx, r.db, "SELECT COALESCE(SUM(points), 0) FROM points_updates WHERE user_id = ?", userID)
	if err != nil {
		return 0, apperr.Operation(pointsUpdateEntity, "sum user points", err)
	}
	return total, nil
}

// GetByDateRange returns blockID's entries created within [from, to], oldest first
func (r *PointsUpdateRepository) GetByDateRange(ctx context.Context, blockID string, from, to time.Time) ([]models.PointsUpdate, error) {
	if to.Before(from) {
		return nil, apperr.Invalid(pointsUpdateEntity, "to", "must not be before from")
	}
	return r.query(ctx, "get points by date range",
		"SELECT "+pointsUpdateColumns+" FROM points_updates WHERE block_id = ? AND created_at >= ? AND created_at <= ?"+orderClause(models.SortAsc),
		blockID, from.UTC(), to.UTC())
}

// GetAboveThreshold returns blockID's entries worth at least minPoints
func (r *PointsUpdateRepository) GetAboveThreshold(ctx context.Context, blockID string, minPoints int) ([]models.PointsUpdate, error) {
	return r.query(ctx, "get points above threshold",
		"SELECT "+pointsUpdateColumns+" FROM points_updates WHERE block_id = ? AND points >= ?"+orderClause(models.SortDesc),
		blockID, minPoints)
}

// GetLatestForBlock returns blockID's newest entry, or nil when there is none
func (r *PointsUpdateRepository) GetLatestForBlock(ctx context.Context, blockID string) (*models.PointsUpdate, error) {
	p, err := queryOne(ctx, r.db, scanPointsUpdate,
		"SELECT "+pointsUpdateColumns+" FROM points_updates WHERE block_id = ?"+orderClause(models.SortDesc)+" LIMIT 1", blockID)
	if err != nil {
		return nil, apperr.Operation(pointsUpdateEntity, "get latest points", err)
	}
	return p, nil
}

func (r *PointsUpdateRepository) query(ctx context.Context, op, query string, args ...any) ([]models.PointsUpdate, error) {
	items, err := queryAll(ctx, r.db, scanPointsUpdate, query, args...)
	if err != nil {
		return nil, apperr.Operation(pointsUpdateEntity, op, err)
	}
	return items, nil
}
