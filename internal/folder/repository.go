package folder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/foldershare/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository allows access to folder persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a folder repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a folder for the owner. When parentID is set the insert only
// happens if that parent belongs to the same owner.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO folders (id, owner_id, parent_id, name)
SELECT $1, $2, $3, $4
WHERE $3::uuid IS NULL
   OR EXISTS (SELECT 1 FROM folders p WHERE p.id = $3 AND p.owner_id = $2)
RETURNING id, owner_id, parent_id, name, created_at;`

	row := storage.Executor(ctx, r.pool).QueryRow(ctx, query, uuid.New(), ownerID, parentID, strings.TrimSpace(name))

	var folder Folder
	if err := row.Scan(&folder.ID, &folder.OwnerID, &folder.ParentID, &folder.Name, &folder.CreatedAt); err != nil {
		// parent missing, foreign, or deleted concurrently
		if storage.IsNoRows(err) || storage.IsForeignKeyViolation(err) {
			return Folder{}, ErrFolderNotFound
		}
		return Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return folder, nil
}

// ListChildren returns the owner's folders directly under parentID, or the
// owner's root folders when parentID is nil, newest first.
func (r *Repository) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, parent_id, name, created_at
FROM folders
WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
ORDER BY created_at DESC, id;`

	rows, err := storage.Executor(ctx, r.pool).Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]Folder, 0)
	for rows.Next() {
		var folder Folder
		if err := rows.Scan(&folder.ID, &folder.OwnerID, &folder.ParentID, &folder.Name, &folder.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// Get fetches a single folder ensuring ownership.
func (r *Repository) Get(ctx context.Context, ownerID, folderID uuid.UUID) (Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, parent_id, name, created_at
FROM folders
WHERE id = $1 AND owner_id = $2;`

	var folder Folder
	err := storage.Executor(ctx, r.pool).QueryRow(ctx, query, folderID, ownerID).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.CreatedAt,
	)
	if err != nil {
		if storage.IsNoRows(err) {
			return Folder{}, ErrFolderNotFound
		}
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// Subtree locks the owner's folder and returns its id followed by the ids of
// every descendant. Must run inside a transaction for the lock to matter.
func (r *Repository) Subtree(ctx context.Context, ownerID, folderID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	db := storage.Executor(ctx, r.pool)

	var rootID uuid.UUID
	err := db.QueryRow(ctx, `SELECT id FROM folders WHERE id = $1 AND owner_id = $2 FOR UPDATE;`, folderID, ownerID).Scan(&rootID)
	if err != nil {
		if storage.IsNoRows(err) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("lock folder: %w", err)
	}

	query := `
WITH RECURSIVE subtree AS (
    SELECT id, 0 AS depth FROM folders WHERE id = $1 AND owner_id = $2
    UNION ALL
    SELECT f.id, s.depth + 1
    FROM folders f
    JOIN subtree s ON f.parent_id = s.id
    WHERE f.owner_id = $2
)
SELECT id FROM subtree ORDER BY depth;`

	rows, err := db.Query(ctx, query, rootID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("collect subtree: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subtree id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtree: %w", err)
	}
	return ids, nil
}

// DeleteIDs removes the owner's folders with the given ids.
func (r *Repository) DeleteIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := storage.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM folders WHERE owner_id = $1 AND id = ANY($2);`, ownerID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete folders: %w", err)
	}
	return tag.RowsAffected(), nil
}
