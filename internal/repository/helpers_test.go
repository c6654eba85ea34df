package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nuclear/internal/database"
	"nuclear/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "nuclear.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), zap.NewNop()))
	return db
}

func setupRepos(t *testing.T) *Repositories {
	t.Helper()
	return New(setupTestDB(t))
}

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, repos *Repositories, email string) *models.User {
	t.Helper()
	user, err := repos.Users.Create(context.Background(), models.CreateUserInput{Email: email})
	require.NoError(t, err)
	return user
}

func mustBlock(t *testing.T, repos *Repositories, authorID, title string) *models.Block {
	t.Helper()
	block, err := repos.Blocks.Create(context.Background(), models.CreateBlockInput{
		Title:    title,
		Content:  "Content for " + title,
		AuthorID: authorID,
	})
	require.NoError(t, err)
	return block
}

func mustFolder(t *testing.T, repos *Repositories, authorID, name string, parentID *string) *models.Folder {
	t.Helper()
	folder, err := repos.Folders.Create(context.Background(), models.CreateFolderInput{
		Name:     name,
		AuthorID: authorID,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return folder
}
