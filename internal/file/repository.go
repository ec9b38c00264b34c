package file

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const metadataColumns = `id, owner_id, folder_id, original_name, storage_key, size_bytes, content_type, checksum, created_at`

// Repository provides access to file metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new file repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts metadata for a new file. The row is only written when the
// target folder belongs to meta.OwnerID.
func (r *Repository) Create(ctx context.Context, meta Metadata) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO files (id, owner_id, folder_id, original_name, storage_key, size_bytes, content_type, checksum)
SELECT $1, $2, $3, $4, $5, $6, $7, $8
WHERE EXISTS (SELECT 1 FROM folders WHERE id = $3 AND owner_id = $2)
RETURNING ` + metadataColumns + `;`

	row := storage.Executor(ctx, r.pool).QueryRow(ctx, query,
		meta.ID,
		meta.OwnerID,
		meta.FolderID,
		meta.OriginalName,
		meta.StorageKey,
		meta.SizeBytes,
		meta.ContentType,
		meta.Checksum,
	)

	stored, err := scanMetadata(row)
	if err != nil {
		if storage.IsNoRows(err) || storage.IsForeignKeyViolation(err) {
			return Metadata{}, folder.ErrFolderNotFound
		}
		return Metadata{}, fmt.Errorf("create file metadata: %w", err)
	}
	return stored, nil
}

// List returns the owner's files, optionally restricted to one folder, newest first.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + metadataColumns + `
FROM files
WHERE owner_id = $1 AND ($2::uuid IS NULL OR folder_id = $2)
ORDER BY created_at DESC, id;`

	rows, err := storage.Executor(ctx, r.pool).Query(ctx, query, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return collectMetadata(rows)
}

// ListInFolder returns every file directly inside folderID regardless of owner.
// Callers must have authorised access to the folder already.
func (r *Repository) ListInFolder(ctx context.Context, folderID uuid.UUID) ([]Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + metadataColumns + `
FROM files
WHERE folder_id = $1
ORDER BY created_at DESC, id;`

	rows, err := storage.Executor(ctx, r.pool).Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list folder files: %w", err)
	}
	return collectMetadata(rows)
}

// Get fetches metadata for a single file ensuring ownership.
func (r *Repository) Get(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + metadataColumns + ` FROM files WHERE id = $1 AND owner_id = $2;`

	meta, err := scanMetadata(storage.Executor(ctx, r.pool).QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		if storage.IsNoRows(err) {
			return Metadata{}, ErrFileNotFound
		}
		return Metadata{}, fmt.Errorf("get file metadata: %w", err)
	}
	return meta, nil
}

// GetInFolder fetches a file only if it sits directly inside folderID.
func (r *Repository) GetInFolder(ctx context.Context, folderID, fileID uuid.UUID) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + metadataColumns + ` FROM files WHERE id = $1 AND folder_id = $2;`

	meta, err := scanMetadata(storage.Executor(ctx, r.pool).QueryRow(ctx, query, fileID, folderID))
	if err != nil {
		if storage.IsNoRows(err) {
			return Metadata{}, ErrFileNotFound
		}
		return Metadata{}, fmt.Errorf("get folder file: %w", err)
	}
	return meta, nil
}

// Delete removes metadata and returns the deleted record.
func (r *Repository) Delete(ctx context.Context, ownerID, fileID uuid.UUID) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `DELETE FROM files WHERE id = $1 AND owner_id = $2 RETURNING ` + metadataColumns + `;`

	meta, err := scanMetadata(storage.Executor(ctx, r.pool).QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		if storage.IsNoRows(err) {
			return Metadata{}, ErrFileNotFound
		}
		return Metadata{}, fmt.Errorf("delete file metadata: %w", err)
	}
	return meta, nil
}

// DeleteInFolders removes the owner's files held by any of folderIDs and
// returns their storage keys for cleanup once the transaction commits.
func (r *Repository) DeleteInFolders(ctx context.Context, ownerID uuid.UUID, folderIDs []uuid.UUID) ([]folder.FileObject, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM files
WHERE owner_id = $1 AND folder_id = ANY($2)
RETURNING id, storage_key;`

	rows, err := storage.Executor(ctx, r.pool).Query(ctx, query, ownerID, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("delete folder files: %w", err)
	}
	defer rows.Close()

	var objects []folder.FileObject
	for rows.Next() {
		var obj folder.FileObject
		if err := rows.Scan(&obj.FileID, &obj.StorageKey); err != nil {
			return nil, fmt.Errorf("scan storage key: %w", err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate storage keys: %w", err)
	}
	return objects, nil
}

func scanMetadata(row pgx.Row) (Metadata, error) {
	var meta Metadata
	err := row.Scan(
		&meta.ID,
		&meta.OwnerID,
		&meta.FolderID,
		&meta.OriginalName,
		&meta.StorageKey,
		&meta.SizeBytes,
		&meta.ContentType,
		&meta.Checksum,
		&meta.CreatedAt,
	)
	return meta, err
}

func collectMetadata(rows pgx.Rows) ([]Metadata, error) {
	defer rows.Close()

	files := make([]Metadata, 0)
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		files = append(files, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}
