package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/abduss/foldershare/internal/blob"
	"github.com/abduss/foldershare/internal/config"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/metrics"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"go.uber.org/zap"
)

const (
	defaultMaxFileSize = 10 * 1024 * 1024 // 10MB
	maxNameLength      = 255
	genericContentType = "application/octet-stream"
)

type metadataStore interface {
	Create(ctx context.Context, meta Metadata) (Metadata, error)
	List(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]Metadata, error)
	Get(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error)
	Delete(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error)
}

type folderStore interface {
	GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (folder.Folder, error)
}

// Service manages file lifecycle operations.
type Service struct {
	repo        metadataStore
	folders     folderStore
	objects     blob.Store
	maxFileSize int64
	allowed     map[string]struct{}
	linkTTL     time.Duration
	log         *zap.Logger
	newKey      func() string
}

// NewService constructs a file service.
func NewService(repo metadataStore, folders folderStore, objects blob.Store, cfg config.UploadConfig, linkTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	maxSize := cfg.MaxBytes
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	types := cfg.AllowedTypes
	if len(types) == 0 {
		types = config.DefaultAllowedTypes
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return &Service{
		repo:        repo,
		folders:     folders,
		objects:     objects,
		maxFileSize: maxSize,
		allowed:     allowed,
		linkTTL:     linkTTL,
		log:         log,
		newKey:      shortuuid.New,
	}
}

// Upload stores the bytes of fileHeader and then publishes its metadata into
// one of the owner's folders.
func (s *Service) Upload(ctx context.Context, ownerID, folderID uuid.UUID, fileHeader *multipart.FileHeader) (Metadata, error) {
	if fileHeader == nil {
		return Metadata{}, ErrMissingPayload
	}

	if _, err := s.folders.GetFolder(ctx, ownerID, folderID); err != nil {
		return Metadata{}, err
	}

	if fileHeader.Size > s.maxFileSize {
		return Metadata{}, ErrFileTooLarge
	}

	src, err := fileHeader.Open()
	if err != nil {
		return Metadata{}, fmt.Errorf("open upload file: %w", err)
	}
	defer src.Close()

	contentType, err := detectContentType(src, fileHeader)
	if err != nil {
		return Metadata{}, err
	}
	if _, ok := s.allowed[contentType]; !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := sanitizeFilename(fileHeader.Filename)
	key := objectKey(ownerID, folderID, s.newKey(), name)

	hasher := sha256.New()
	reader := io.TeeReader(io.LimitReader(src, s.maxFileSize+1), hasher)

	written, err := s.objects.Put(ctx, key, reader, fileHeader.Size, contentType)
	if err != nil {
		return Metadata{}, fmt.Errorf("store object: %w", err)
	}
	if written > s.maxFileSize {
		s.discardObject(ctx, key, "oversized upload")
		return Metadata{}, ErrFileTooLarge
	}

	stored, err := s.repo.Create(ctx, Metadata{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		FolderID:     folderID,
		OriginalName: name,
		StorageKey:   key,
		SizeBytes:    written,
		ContentType:  contentType,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	})
	if err != nil {
		s.discardObject(ctx, key, "unpublished upload")
		return Metadata{}, err
	}

	metrics.UploadStored(stored.SizeBytes)
	return stored, nil
}

// List returns the owner's files, optionally limited to one of the owner's folders.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]Metadata, error) {
	if folderID != nil {
		if _, err := s.folders.GetFolder(ctx, ownerID, *folderID); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, ownerID, folderID)
}

// FolderFiles lists one of the owner's folders as folder view entries, newest first.
func (s *Service) FolderFiles(ctx context.Context, ownerID, folderID uuid.UUID) ([]folder.FileSummary, error) {
	list, err := s.List(ctx, ownerID, &folderID)
	if err != nil {
		return nil, err
	}
	out := make([]folder.FileSummary, 0, len(list))
	for _, meta := range list {
		out = append(out, folder.FileSummary{
			ID:           meta.ID,
			OriginalName: meta.OriginalName,
			SizeBytes:    meta.SizeBytes,
			ContentType:  meta.ContentType,
			CreatedAt:    meta.CreatedAt,
		})
	}
	return out, nil
}

// Get returns the owner's file metadata.
func (s *Service) Get(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error) {
	if ownerID == uuid.Nil {
		return Metadata{}, ErrFileNotFound
	}
	return s.repo.Get(ctx, ownerID, fileID)
}

// Download returns metadata and a locator for one of the owner's files.
func (s *Service) Download(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, blob.Locator, error) {
	meta, err := s.Get(ctx, ownerID, fileID)
	if err != nil {
		return Metadata{}, blob.Locator{}, err
	}

	loc, err := blob.Locate(ctx, s.objects, meta.StorageKey, meta.OriginalName, s.linkTTL)
	if err != nil {
		return Metadata{}, blob.Locator{}, fmt.Errorf("locate object: %w", err)
	}
	return meta, loc, nil
}

// Open streams stored bytes for a locator without a direct URL.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.objects.Open(ctx, key)
}

// Delete removes the file metadata, then asks the blob store to drop the bytes.
// A failed byte deletion is logged and counted but does not fail the call.
func (s *Service) Delete(ctx context.Context, ownerID, fileID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return ErrFileNotFound
	}

	meta, err := s.repo.Delete(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	s.discardObject(context.WithoutCancel(ctx), meta.StorageKey, "deleted file")
	return nil
}

func (s *Service) discardObject(ctx context.Context, key, reason string) {
	err := s.objects.Delete(ctx, key)
	if err == nil || errors.Is(err, blob.ErrObjectNotFound) {
		return
	}
	metrics.BlobCleanupFailed()
	s.log.Warn("failed to remove stored object",
		zap.String("storage_key", key),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// detectContentType trusts the declared part type unless it is missing or
// generic, in which case the leading bytes are sniffed.
func detectContentType(src multipart.File, fileHeader *multipart.FileHeader) (string, error) {
	declared := normalizeMediaType(fileHeader.Header.Get("Content-Type"))
	if declared != "" && declared != genericContentType {
		return declared, nil
	}

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("sniff content type: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return normalizeMediaType(detected.String()), nil
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(mediaType)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	return name
}

func objectKey(ownerID, folderID uuid.UUID, unique, name string) string {
	return path.Join(ownerID.String(), folderID.String(), unique+strings.ToLower(path.Ext(name)))
}
