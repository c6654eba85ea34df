package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nuclear/internal/apperr"
	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/validation"
)

const (
	userEntity  = "user"
	userColumns = "id, email, name, mode, created_at, updated_at"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *UserRepository) WithTx(tx *database.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	var name sql.NullString
	var role string
	if err := s.Scan(&user.ID, &user.Email, &name, &role, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Name = stringPtr(name)
	user.Role = models.Role(role)
	return user, nil
}

// GetByID retrieves a user by ID. It returns nil, nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := queryOne(ctx, r.db, scanUser, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Operation(userEntity, "get user", err)
	}
	return user, nil
}

// MustGetByID is GetByID with a NotFound error for absent users
func (r *UserRepository) MustGetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound(userEntity, id)
	}
	return user, nil
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := queryOne(ctx, r.db, scanUser, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	if err != nil {
		return nil, apperr.Operation(userEntity, "get user by email", err)
	}
	return user, nil
}

// GetAll returns every user ordered by creation time
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	users, err := queryAll(ctx, r.db, scanUser, "SELECT "+userColumns+" FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, apperr.Operation(userEntity, "list users", err)
	}
	return users, nil
}

// List returns one page of users matching opts.Search on email or name
func (r *UserRepository) List(ctx context.Context, opts ListOptions) ([]models.User, int, error) {
	users, total, err := listQuery(ctx, r.db, scanUser, "users", userColumns, "created_at DESC, id", opts, "email", "name")
	if err != nil {
		return nil, 0, apperr.Operation(userEntity, "list users", err)
	}
	return users, total, nil
}

// Exists reports whether a user with id exists
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := rowExists(ctx, r.db, "users", id)
	if err != nil {
		return false, apperr.Operation(userEntity, "check user", err)
	}
	return ok, nil
}

// Create inserts a new user. The email must be unique.
func (r *UserRepository) Create(ctx context.Context, in models.CreateUserInput) (*models.User, error) {
	if err := validation.CreateUser(in); err != nil {
		return nil, err
	}
	role, _ := models.ParseRole(in.Role)

	email := normalizeEmail(in.Email)
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict(userEntity, "email already exists")
	}

	ts := now()
	user := &models.User{
		ID:        newID(),
		Email:     email,
		Name:      trimmed(in.Name),
		Role:      role,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	query := `
		INSERT INTO users (id, email, name, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query, user.ID, user.Email, user.Name, string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, userWriteErr("create user", err)
	}
	return user, nil
}

// Update changes the supplied fields of a user
func (r *UserRepository) Update(ctx context.Context, id string, in models.UpdateUserInput) (*models.User, error) {
	if err := validation.UpdateUser(in); err != nil {
		return nil, err
	}
	user, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			other, err := r.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, apperr.Conflict(userEntity, "email already exists")
			}
		}
		user.Email = email
	}
	if in.Name != nil {
		user.Name = trimmed(in.Name)
	}
	if in.Role != nil {
		user.Role, _ = models.ParseRole(*in.Role)
	}
	user.UpdatedAt = now()

	query := "UPDATE users SET email = ?, name = ?, mode = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, user.Email, user.Name, string(user.Role), user.UpdatedAt, id); err != nil {
		return nil, userWriteErr("update user", err)
	}
	return user, nil
}

// Delete removes a user and returns its prior state. Users that still own
// blocks or folders cannot be deleted; their points updates are detached.
func (r *UserRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	user, err := r.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	owned, err := count(ctx, r.db,
		"SELECT (SELECT COUNT(*) FROM blocks WHERE author_id = ?) + (SELECT COUNT(*) FROM folders WHERE author_id = ?)", id, id)
	if err != nil {
		return nil, apperr.Operation(userEntity, "count owned content", err)
	}
	if owned > 0 {
		return nil, apperr.Conflict(userEntity, fmt.Sprintf("user %s still owns %d blocks or folders", id, owned))
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return nil, storageErr(userEntity, "delete user", err)
	}
	return user, nil
}

// GetBlocks returns the blocks authored by the user
func (r *UserRepository) GetBlocks(ctx context.Context, id string) ([]models.Block, error) {
	blocks, err := queryAll(ctx, r.db, scanBlock, "SELECT "+blockColumns+" FROM blocks WHERE author_id = ? ORDER BY created_at, id", id)
	if err != nil {
		return nil, apperr.Operation(userEntity, "get user blocks", err)
	}
	return blocks, nil
}

// GetFolders returns the folders owned by the user
func (r *UserRepository) GetFolders(ctx context.Context, id string) ([]models.Folder, error) {
	folders, err := queryAll(ctx, r.db, scanFolder, "SELECT "+folderColumns+" FROM folders WHERE author_id = ? ORDER BY name, id", id)
	if err != nil {
		return nil, apperr.Operation(userEntity, "get user folders", err)
	}
	return folders, nil
}

// GetPointsUpdates returns the user's ledger, newest first
func (r *UserRepository) GetPointsUpdates(ctx context.Context, id string) ([]models.PointsUpdate, error) {
	updates, err := queryAll(ctx, r.db, scanPointsUpdate,
		"SELECT "+pointsUpdateColumns+" FROM points_updates WHERE user_id = ? ORDER BY created_at DESC, id", id)
	if err != nil {
		return nil, apperr.Operation(userEntity, "get user points", err)
	}
	return updates, nil
}

// GetTotalPoints sums every points update awarded to the user
func (r *UserRepository) GetTotalPoints(ctx context.Context, id string) (int, error) {
	total, err := count(ctx, r.db, "SELECT COALESCE(SUM(points), 0) FROM points_updates WHERE user_id = ?", id)
	if err != nil {
		return 0, apperr.Operation(userEntity, "sum user points", err)
	}
	return total, nil
}

func userWriteErr(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return &apperr.Error{Entity: userEntity, Kind: apperr.KindConflict, Message: "email already exists", Err: err}
	}
	return storageErr(userEntity, op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
