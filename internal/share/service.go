package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abduss/foldershare/internal/blob"
	"github.com/abduss/foldershare/internal/config"
	"github.com/abduss/foldershare/internal/file"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/metrics"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	tokenAttempts = 3
	qrSize        = 256
)

type shareStore interface {
	Create(ctx context.Context, folderID uuid.UUID, token string, expiresAt time.Time) (Share, error)
	FindByToken(ctx context.Context, token string) (Share, folder.Folder, error)
	ListForFolder(ctx context.Context, folderID uuid.UUID) ([]Share, error)
}

type folderStore interface {
	GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (folder.Folder, error)
}

type fileCatalog interface {
	ListInFolder(ctx context.Context, folderID uuid.UUID) ([]file.Metadata, error)
	GetInFolder(ctx context.Context, folderID, fileID uuid.UUID) (file.Metadata, error)
}

// Service issues and resolves share links.
type Service struct {
	shares   shareStore
	folders  folderStore
	files    fileCatalog
	objects  blob.Store
	cfg      config.ShareConfig
	nowFunc  func() time.Time
	tokenGen func() (string, error)
	log      *zap.Logger
}

// NewService constructs a share service.
func NewService(shares shareStore, folders folderStore, files fileCatalog, objects blob.Store, cfg config.ShareConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultDays < 1 {
		cfg.DefaultDays = DefaultDays
	}
	if cfg.MaxDays < cfg.DefaultDays {
		cfg.MaxDays = cfg.DefaultDays
	}
	return &Service{
		shares:   shares,
		folders:  folders,
		files:    files,
		objects:  objects,
		cfg:      cfg,
		nowFunc:  time.Now,
		tokenGen: newToken,
		log:      log,
	}
}

// ParseDays applies the configured default and maximum to a raw days value.
func (s *Service) ParseDays(raw string) int {
	return ParseDays(raw, s.cfg.DefaultDays, s.cfg.MaxDays)
}

// URL returns the public address of a share. PublicBaseURL is the API origin;
// the path matches the public route mounted under /v1.
func (s *Service) URL(token string) string {
	return s.cfg.PublicBaseURL + "/v1/share/" + token
}

// CreateShare issues a new link to one of the owner's folders, valid for days.
func (s *Service) CreateShare(ctx context.Context, ownerID, folderID uuid.UUID, days int) (Share, error) {
	if ownerID == uuid.Nil {
		return Share{}, folder.ErrFolderNotFound
	}
	if _, err := s.folders.GetFolder(ctx, ownerID, folderID); err != nil {
		return Share{}, err
	}

	days = clampDays(days, s.cfg.MaxDays)
	expiresAt := s.nowFunc().Add(time.Duration(days) * 24 * time.Hour)

	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := s.tokenGen()
		if err != nil {
			return Share{}, err
		}

		sh, err := s.shares.Create(ctx, folderID, token, expiresAt)
		if errors.Is(err, errTokenTaken) {
			s.log.Warn("share token collision, regenerating", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Share{}, err
		}

		metrics.ShareCreated()
		return sh, nil
	}
	return Share{}, fmt.Errorf("create share: %w", errTokenTaken)
}

// ListShares returns every link issued for one of the owner's folders, active or not.
func (s *Service) ListShares(ctx context.Context, ownerID, folderID uuid.UUID) ([]Share, error) {
	if ownerID == uuid.Nil {
		return nil, folder.ErrFolderNotFound
	}
	if _, err := s.folders.GetFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}
	return s.shares.ListForFolder(ctx, folderID)
}

// Resolve returns the shared folder and its files for an active token.
// An expired token yields ErrShareExpired together with the share itself.
func (s *Service) Resolve(ctx context.Context, token string) (SharedFolder, error) {
	sh, fd, err := s.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrShareExpired) {
			return SharedFolder{Share: sh}, err
		}
		return SharedFolder{}, err
	}

	files, err := s.files.ListInFolder(ctx, fd.ID)
	if err != nil {
		return SharedFolder{}, fmt.Errorf("list shared files: %w", err)
	}

	return SharedFolder{Share: sh, Folder: fd, Files: files}, nil
}

// DownloadSharedFile locates a file for a token holder. The file must sit
// directly in the shared folder.
func (s *Service) DownloadSharedFile(ctx context.Context, token string, fileID uuid.UUID) (file.Metadata, blob.Locator, error) {
	sh, _, err := s.lookup(ctx, token)
	if err != nil {
		return file.Metadata{}, blob.Locator{}, err
	}

	meta, err := s.files.GetInFolder(ctx, sh.FolderID, fileID)
	if err != nil {
		if errors.Is(err, file.ErrFileNotFound) {
			return file.Metadata{}, blob.Locator{}, ErrShareNotFound
		}
		return file.Metadata{}, blob.Locator{}, err
	}

	ttl := s.cfg.LinkTTL
	if remaining := sh.ExpiresAt.Sub(s.nowFunc()); remaining < ttl {
		ttl = remaining
	}
	if ttl < time.Second {
		// presigners reject sub-second expiries
		ttl = time.Second
	}

	loc, err := blob.Locate(ctx, s.objects, meta.StorageKey, meta.OriginalName, ttl)
	if err != nil {
		return file.Metadata{}, blob.Locator{}, fmt.Errorf("locate shared object: %w", err)
	}
	return meta, loc, nil
}

// QRCode renders the public URL of an active share as a PNG.
func (s *Service) QRCode(ctx context.Context, token string) ([]byte, error) {
	sh, _, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.URL(sh.Token), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// Open streams stored bytes for a locator without a direct URL.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.objects.Open(ctx, key)
}

func (s *Service) lookup(ctx context.Context, token string) (Share, folder.Folder, error) {
	if !validToken(token) {
		metrics.ShareResolved(metrics.ResultNotFound)
		return Share{}, folder.Folder{}, ErrShareNotFound
	}

	sh, fd, err := s.shares.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrShareNotFound) {
			metrics.ShareResolved(metrics.ResultNotFound)
		}
		return Share{}, folder.Folder{}, err
	}

	if sh.Expired(s.nowFunc()) {
		metrics.ShareResolved(metrics.ResultExpired)
		return sh, folder.Folder{}, ErrShareExpired
	}

	metrics.ShareResolved(metrics.ResultActive)
	return sh, fd, nil
}
