// Package repository is the data-access layer: one repository per table.
// Every repository accepts a database.DBTX so it can run against the pool
// or inside a transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"nuclear/internal/apperr"
	"nuclear/internal/database"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	randomAttempts = 3
)

// ListOptions paginates and filters a list query
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// Normalize clamps the page to >= 1 and the limit to 1..MaxPageLimit
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageLimit
	}
	if o.Limit > MaxPageLimit {
		o.Limit = MaxPageLimit
	}
	o.Search = strings.TrimSpace(o.Search)
	return o
}

func (o ListOptions) offset() int {
	return (o.Page - 1) * o.Limit
}

// Repositories bundles every entity repository over one connection
type Repositories struct {
	Users           *UserRepository
	Blocks          *BlockRepository
	Folders         *FolderRepository
	Quizzes         *QuizRepository
	Questions       *QuestionRepository
	Topics          *TopicRepository
	FillInTheBlanks *FillInTheBlankRepository
	PointsUpdates   *PointsUpdateRepository
}

// New creates all repositories over db
func New(db database.DBTX) *Repositories {
	return &Repositories{
		Users:           NewUserRepository(db),
		Blocks:          NewBlockRepository(db),
		Folders:         NewFolderRepository(db),
		Quizzes:         NewQuizRepository(db),
		Questions:       NewQuestionRepository(db),
		Topics:          NewTopicRepository(db),
		FillInTheBlanks: NewFillInTheBlankRepository(db),
		PointsUpdates:   NewPointsUpdateRepository(db),
	}
}

// WithTx rebinds every repository to tx
func (r *Repositories) WithTx(tx *database.Tx) *Repositories {
	return New(tx)
}

type scanner interface {
	Scan(dest ...any) error
}

func newID() string {
	return uuid.New().String()
}

// now is truncated to microseconds so timestamps survive a round trip
// through every supported database unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func queryOne[T any](ctx context.Context, db database.DBTX, scan func(scanner) (*T, error), query string, args ...any) (*T, error) {
	item, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func queryAll[T any](ctx context.Context, db database.DBTX, scan func(scanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func count(ctx context.Context, db database.DBTX, query string, args ...any) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// rowExists probes table for id. table is always a package constant.
func rowExists(ctx context.Context, db database.DBTX, table, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	return true, nil
}

// checkRef verifies an optional reference before insert or update.
// Nil and empty ids are accepted; empty clears the reference.
func checkRef(ctx context.Context, db database.DBTX, entity, field, table string, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	ok, err := rowExists(ctx, db, table, *id)
	if err != nil {
		return apperr.Operation(entity, "check "+field, err)
	}
	if !ok {
		return apperr.Relationship(entity, field, *id)
	}
	return nil
}

// storageErr classifies a driver error into the entity's error kinds
func storageErr(entity, op string, err error) error {
	switch database.ClassifyConstraint(err) {
	case database.ConstraintUnique:
		return &apperr.Error{Entity: entity, Kind: apperr.KindConflict, Message: entity + " already exists", Err: err}
	case database.ConstraintForeignKey:
		return &apperr.Error{Entity: entity, Kind: apperr.KindRelationship, Message: "referenced record does not exist", Err: err}
	}
	return apperr.Operation(entity, op, fmt.Errorf("failed to %s: %w", op, err))
}

// normalizeRef maps an empty reference to nil so it is stored as NULL
func normalizeRef(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

// likePattern builds a case-insensitive substring pattern; use with likeClause
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

// likeClause matches any of columns against a single likePattern argument.
// Each column consumes one placeholder.
func likeClause(d database.Dialect, columns ...string) string {
	lower := d.LowerFunc()
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = lower + "(" + c + ") LIKE ? ESCAPE '!'"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func repeatArg(v any, n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = v
	}
	return args
}

// listQuery runs a paginated select over table, optionally filtered by a
// search across columns. It returns the page and the total match count.
func listQuery[T any](ctx context.Context, db database.DBTX, scan func(scanner) (*T, error), table, cols, orderBy string, opts ListOptions, searchCols ...string) ([]T, int, error) {
	opts = opts.Normalize()

	where := ""
	var args []any
	if opts.Search != "" && len(searchCols) > 0 {
		where = " WHERE " + likeClause(db.GetDialect(), searchCols...)
		args = repeatArg(likePattern(opts.Search), len(searchCols))
	}

	total, err := count(ctx, db, "SELECT COUNT(*) FROM "+table+where, args...)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT " + cols + " FROM " + table + where + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	items, err := queryAll(ctx, db, scan, query, append(args, opts.Limit, opts.offset())...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// queryRandom picks one row uniformly from table, optionally filtered by
// where (including the leading WHERE). It returns nil when nothing matches.
// The count and the pick are separate statements, so a pick that lands past
// the end after a concurrent delete is retried with a fresh count.
func queryRandom[T any](ctx context.Context, db database.DBTX, scan func(scanner) (*T, error), table, cols, where string, args ...any) (*T, error) {
	query := "SELECT " + cols + " FROM " + table + where + " ORDER BY id LIMIT 1 OFFSET ?"
	for attempt := 0; attempt < randomAttempts; attempt++ {
		n, err := count(ctx, db, "SELECT COUNT(*) FROM "+table+where, args...)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		item, err := queryOne(ctx, db, scan, query, append(args, rand.IntN(n))...)
		if err != nil || item != nil {
			return item, err
		}
	}
	return queryOne(ctx, db, scan, query, append(args, 0)...)
}

// inTx runs fn inside a transaction when db is the pool. A repository that
// is already bound to a transaction runs fn in that transaction.
func inTx(ctx context.Context, db database.DBTX, fn func(database.DBTX) error) error {
	if pool, ok := db.(*database.DB); ok {
		return pool.WithTx(ctx, func(tx *database.Tx) error { return fn(tx) })
	}
	return fn(db)
}
