package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version         string                  `json:"version"`
	ExportedAt      time.Time               `json:"exported_at"`
	DatabaseType    string                  `json:"database_type"`
	Users           []models.User           `json:"users"`
	Folders         []models.Folder         `json:"folders"`
	Blocks          []models.Block          `json:"blocks"`
	Topics          []models.Topic          `json:"topics"`
	Quizzes         []models.Quiz           `json:"quizzes"`
	Questions       []models.Question       `json:"questions"`
	FillInTheBlanks []models.FillInTheBlank `json:"fill_in_the_blanks"`
	PointsUpdates   []models.PointsUpdate   `json:"points_updates"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *zap.Logger) *BackupService {
	return &BackupService{db: db, log: log.Named("backup")}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	s.log.Info("database exported", zap.String("path", outputPath))
	return nil
}

// ExportToWriter writes a backup of every table to w as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("backup written",
		zap.Int("users", len(backup.Users)),
		zap.Int("folders", len(backup.Folders)),
		zap.Int("blocks", len(backup.Blocks)),
		zap.Int("topics", len(backup.Topics)),
		zap.Int("quizzes", len(backup.Quizzes)),
		zap.Int("questions", len(backup.Questions)),
		zap.Int("fill_in_the_blanks", len(backup.FillInTheBlanks)),
		zap.Int("points_updates", len(backup.PointsUpdates)))
	return nil
}

// snapshot reads every table inside one transaction so the backup is consistent
func (s *BackupService) snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repos := repository.New(tx)
		var err error

		if backup.Users, err = repos.Users.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export users: %w", err)
		}
		if backup.Folders, err = repos.Folders.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export folders: %w", err)
		}
		if backup.Blocks, err = repos.Blocks.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export blocks: %w", err)
		}
		if backup.Topics, err = repos.Topics.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export topics: %w", err)
		}
		if backup.Quizzes, err = repos.Quizzes.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export quizzes: %w", err)
		}
		if backup.Questions, err = repos.Questions.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export questions: %w", err)
		}
		if backup.FillInTheBlanks, err = repos.FillInTheBlanks.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export fill in the blanks: %w", err)
		}
		if backup.PointsUpdates, err = repos.PointsUpdates.GetAll(ctx); err != nil {
			return fmt.Errorf("failed to export points updates: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup in a single transaction, in dependency
// order. With clear, existing rows are removed first.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Info("importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
		zap.Bool("clear", clear))

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if err := clearTables(ctx, tx); err != nil {
				return fmt.Errorf("failed to clear tables: %w", err)
			}
		}
		return importAll(ctx, tx, &backup)
	})
	if err != nil {
		return err
	}

	s.log.Info("database import completed")
	return nil
}

func clearTables(ctx context.Context, tx *database.Tx) error {
	stmts := []string{
		"DELETE FROM points_updates",
		"DELETE FROM fill_in_the_blanks",
		"DELETE FROM questions",
		"DELETE FROM quizzes",
		"DELETE FROM topics",
		"DELETE FROM blocks",
		"UPDATE folders SET parent_id = NULL",
		"DELETE FROM folders",
		"DELETE FROM users",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func importAll(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, u := range b.Users {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, name, mode, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
	}

	for _, f := range sortFoldersParentsFirst(b.Folders) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO folders (id, name, description, author_id, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			f.ID, f.Name, f.Description, f.AuthorID, f.ParentID, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import folder %s: %w", f.ID, err)
		}
	}

	for _, bl := range b.Blocks {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO blocks (id, title, content, author_id, folder_id, published, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			bl.ID, bl.Title, bl.Content, bl.AuthorID, bl.FolderID, bl.Published, bl.CreatedAt, bl.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import block %s: %w", bl.ID, err)
		}
	}

	for _, t := range b.Topics {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO topics (id, name, description, examples, block_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.Name, t.Description, t.Examples, t.BlockID, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import topic %s: %w", t.ID, err)
		}
	}

	for _, q := range b.Quizzes {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO quizzes (id, title, description, block_id, topic_id, time_limit, passing_score, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			q.ID, q.Title, q.Description, q.BlockID, q.TopicID, q.TimeLimit, q.PassingScore, q.CreatedAt, q.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import quiz %s: %w", q.ID, err)
		}
	}

	for _, q := range b.Questions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO questions (id, text, block_id, type, difficulty, points, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			q.ID, q.Text, q.BlockID, q.Type, difficultyValue(q.Difficulty), q.Points, q.CreatedAt, q.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import question %s: %w", q.ID, err)
		}
	}

	for _, f := range b.FillInTheBlanks {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO fill_in_the_blanks (id, sentence, answer, block_id, hint, difficulty, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			f.ID, f.Sentence, f.Answer, f.BlockID, f.Hint, difficultyValue(f.Difficulty), f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import fill in the blank %s: %w", f.ID, err)
		}
	}

	for _, p := range b.PointsUpdates {
		if p.Points < 0 {
			return fmt.Errorf("failed to import points update %s: negative points", p.ID)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO points_updates (id, points, block_id, user_id, reason, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			p.ID, p.Points, p.BlockID, p.UserID, p.Reason, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import points update %s: %w", p.ID, err)
		}
	}
	return nil
}

func difficultyValue(d *models.Difficulty) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

// sortFoldersParentsFirst orders folders so every parent precedes its
// children. Folders whose parent is outside the backup keep their place
// after the resolvable ones.
func sortFoldersParentsFirst(folders []models.Folder) []models.Folder {
	inBackup := make(map[string]bool, len(folders))
	for _, f := range folders {
		inBackup[f.ID] = true
	}

	placed := make(map[string]bool, len(folders))
	out := make([]models.Folder, 0, len(folders))
	remaining := folders
	for len(remaining) > 0 {
		var next []models.Folder
		for _, f := range remaining {
			if f.ParentID == nil || !inBackup[*f.ParentID] || placed[*f.ParentID] {
				out = append(out, f)
				placed[f.ID] = true
			} else {
				next = append(next, f)
			}
		}
		if len(next) == len(remaining) {
			// a cycle in the backup itself; let the insert fail on it
			return append(out, next...)
		}
		remaining = next
	}
	return out
}
