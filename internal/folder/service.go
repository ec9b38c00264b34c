package folder

import (
	"context"
	"fmt"
	"strings"

	"github.com/abduss/foldershare/internal/metrics"
	"github.com/abduss/foldershare/internal/storage"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxNameLength bounds folder names, counted in runes.
const MaxNameLength = 100

// FileIndex removes the file metadata held by a set of folders.
type FileIndex interface {
	DeleteInFolders(ctx context.Context, ownerID uuid.UUID, folderIDs []uuid.UUID) ([]FileObject, error)
}

// ShareIndex removes share links pointing at a set of folders.
type ShareIndex interface {
	DeleteForFolders(ctx context.Context, folderIDs []uuid.UUID) (int64, error)
}

// TxRunner executes fn atomically.
type TxRunner interface {
	ExecTx(ctx context.Context, fn storage.TxFn) error
}

// ObjectRemover deletes stored bytes.
type ObjectRemover interface {
	Delete(ctx context.Context, key string) error
}

type repository interface {
	Create(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (Folder, error)
	ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Folder, error)
	Get(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error)
	Subtree(ctx context.Context, ownerID, folderID uuid.UUID) ([]uuid.UUID, error)
	DeleteIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error)
}

// Service orchestrates folder operations.
type Service struct {
	repo    repository
	files   FileIndex
	shares  ShareIndex
	tx      TxRunner
	objects ObjectRemover
	log     *zap.Logger
}

// NewService constructs a folder service.
func NewService(repo repository, files FileIndex, shares ShareIndex, tx TxRunner, objects ObjectRemover, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		files:   files,
		shares:  shares,
		tx:      tx,
		objects: objects,
		log:     log,
	}
}

// ValidateName checks a trimmed folder name.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required.Error("folder name is required"),
		validation.RuneLength(1, MaxNameLength).Error(fmt.Sprintf("folder name must be at most %d characters", MaxNameLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}

// CreateFolder creates a folder for the owner, optionally under one of the owner's folders.
func (s *Service) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentID *uuid.UUID) (Folder, error) {
	if ownerID == uuid.Nil {
		return Folder{}, ErrFolderNotFound
	}
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Folder{}, err
	}
	return s.repo.Create(ctx, ownerID, parentID, name)
}

// ListChildren returns the owner's folders under parentID, or the root folders when nil.
func (s *Service) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Folder, error) {
	if parentID != nil {
		if _, err := s.GetFolder(ctx, ownerID, *parentID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListChildren(ctx, ownerID, parentID)
}

// GetFolder returns a folder ensuring ownership.
func (s *Service) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error) {
	if ownerID == uuid.Nil {
		return Folder{}, ErrFolderNotFound
	}
	return s.repo.Get(ctx, ownerID, folderID)
}

// DeleteFolder removes the folder, every descendant folder, the files they hold
// and the shares pointing at them in one transaction. Stored bytes are released
// after commit.
func (s *Service) DeleteFolder(ctx context.Context, ownerID, folderID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return ErrFolderNotFound
	}

	var released []FileObject
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		ids, err := s.repo.Subtree(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrFolderNotFound
		}

		objects, err := s.files.DeleteInFolders(ctx, ownerID, ids)
		if err != nil {
			return fmt.Errorf("delete folder files: %w", err)
		}

		if _, err := s.shares.DeleteForFolders(ctx, ids); err != nil {
			return fmt.Errorf("delete folder shares: %w", err)
		}

		deleted, err := s.repo.DeleteIDs(ctx, ownerID, ids)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrFolderNotFound
		}

		released = objects
		return nil
	})
	if err != nil {
		return err
	}

	s.releaseObjects(context.WithoutCancel(ctx), folderID, released)
	return nil
}

func (s *Service) releaseObjects(ctx context.Context, folderID uuid.UUID, objects []FileObject) {
	if s.objects == nil {
		return
	}
	for _, obj := range objects {
		if err := s.objects.Delete(ctx, obj.StorageKey); err != nil {
			metrics.BlobCleanupFailed()
			s.log.Warn("orphaned stored object after folder delete",
				zap.String("folder_id", folderID.String()),
				zap.String("file_id", obj.FileID.String()),
				zap.String("storage_key", obj.StorageKey),
				zap.Error(err),
			)
		}
	}
}
