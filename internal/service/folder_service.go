package service

import (
	"context"

	"go.uber.org/zap"

	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/repository"
)

// FolderService holds folder operations that span several rows
type FolderService struct {
	db    *database.DB
	repos *repository.Repositories
	log   *zap.Logger
}

func NewFolderService(db *database.DB, repos *repository.Repositories, log *zap.Logger) *FolderService {
	return &FolderService{db: db, repos: repos, log: log.Named("folders")}
}

// Delete removes the folder. With force, its child folders and blocks are
// first moved to the folder's own parent (or to the root) in the same
// transaction. Without force a non-empty folder is a conflict.
func (s *FolderService) Delete(ctx context.Context, id string, force bool) (*models.Folder, error) {
	if !force {
		return s.repos.Folders.Delete(ctx, id)
	}
	return s.ForceDelete(ctx, id)
}

// ForceDelete re-parents the folder's contents and deletes it atomically
func (s *FolderService) ForceDelete(ctx context.Context, id string) (*models.Folder, error) {
	var deleted *models.Folder
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		folders := s.repos.Folders.WithTx(tx)

		folder, err := folders.MustGetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := folders.Reparent(ctx, id, folder.ParentID); err != nil {
			return err
		}
		deleted, err = folders.Delete(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("folder force-deleted", zap.String("folder_id", id))
	return deleted, nil
}
