package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// errTokenTaken signals a token collision; the service retries with a fresh token.
var errTokenTaken = errors.New("share token already in use")

// Repository persists share links.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a share repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create stores a share for folderID.
func (r *Repository) Create(ctx context.Context, folderID uuid.UUID, token string, expiresAt time.Time) (Share, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO shares (id, token, folder_id, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id, token, folder_id, expires_at, created_at;`

	var sh Share
	err := storage.Executor(ctx, r.pool).QueryRow(ctx, query, uuid.New(), token, folderID, expiresAt).
		Scan(&sh.ID, &sh.Token, &sh.FolderID, &sh.ExpiresAt, &sh.CreatedAt)
	if err != nil {
		switch {
		case storage.IsUniqueViolation(err, "shares_token_key"):
			return Share{}, errTokenTaken
		case storage.IsForeignKeyViolation(err):
			return Share{}, folder.ErrFolderNotFound
		}
		return Share{}, fmt.Errorf("create share: %w", err)
	}
	return sh, nil
}

// FindByToken returns the share and the folder it points at. No ownership
// filter applies: the token is the credential.
func (r *Repository) FindByToken(ctx context.Context, token string) (Share, folder.Folder, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT s.id, s.token, s.folder_id, s.expires_at, s.created_at,
       f.id, f.owner_id, f.parent_id, f.name, f.created_at
FROM shares s
JOIN folders f ON f.id = s.folder_id
WHERE s.token = $1;`

	var (
		sh Share
		fd folder.Folder
	)
	err := storage.Executor(ctx, r.pool).QueryRow(ctx, query, token).Scan(
		&sh.ID, &sh.Token, &sh.FolderID, &sh.ExpiresAt, &sh.CreatedAt,
		&fd.ID, &fd.OwnerID, &fd.ParentID, &fd.Name, &fd.CreatedAt,
	)
	if err != nil {
		if storage.IsNoRows(err) {
			return Share{}, folder.Folder{}, ErrShareNotFound
		}
		return Share{}, folder.Folder{}, fmt.Errorf("find share: %w", err)
	}
	return sh, fd, nil
}

// ListForFolder returns every share issued for folderID, newest first.
func (r *Repository) ListForFolder(ctx context.Context, folderID uuid.UUID) ([]Share, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, token, folder_id, expires_at, created_at
FROM shares
WHERE folder_id = $1
ORDER BY created_at DESC, id;`

	rows, err := storage.Executor(ctx, r.pool).Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := make([]Share, 0)
	for rows.Next() {
		var sh Share
		if err := rows.Scan(&sh.ID, &sh.Token, &sh.FolderID, &sh.ExpiresAt, &sh.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return shares, nil
}

// DeleteForFolders drops every share pointing at one of folderIDs.
func (r *Repository) DeleteForFolders(ctx context.Context, folderIDs []uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := storage.Executor(ctx, r.pool).Exec(ctx, `DELETE FROM shares WHERE folder_id = ANY($1);`, folderIDs)
	if err != nil {
		return 0, fmt.Errorf("delete shares: %w", err)
	}
	return tag.RowsAffected(), nil
}
