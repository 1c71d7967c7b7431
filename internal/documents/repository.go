package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkroom/inkroom/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for documents, their
// content and their sharing permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the statements that must run inside one unit of work.
type TxRepository interface {
	InsertDocument(ctx context.Context, doc Document) error
	InsertContent(ctx context.Context, roomID, content string) error
	DeletePermissions(ctx context.Context, roomID string) (int64, error)
	DeleteContent(ctx context.Context, roomID string) (int64, error)
	DeleteDocument(ctx context.Context, roomID string) (bool, error)
	RenameDocument(ctx context.Context, roomID, roomName string) (bool, error)
	UpdateVisibility(ctx context.Context, roomID string, level Level) (bool, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ============================================================================
// CONTENT
// ============================================================================

func (t *txRepo) InsertDocument(ctx context.Context, doc Document) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO document (room_id, room_name, create_time, overall_permission, owner_user_id)
		VALUES ($1, $2, $3, $4, $5)
	`, doc.RoomID, doc.RoomName, doc.CreateTime, int16(doc.OverallPermission), doc.OwnerID)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrAlreadyExists
		case db.IsForeignKeyViolation(err):
			return ErrUnknownUser
		}
		return fmt.Errorf("documents: insert document: %w", err)
	}
	return nil
}

func (t *txRepo) InsertContent(ctx context.Context, roomID, content string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO content (room_id, content) VALUES ($1, $2)`, roomID, content)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrAlreadyExists
		case db.IsForeignKeyViolation(err):
			return ErrNotFound
		}
		return fmt.Errorf("documents: insert content: %w", err)
	}
	return nil
}

// GetContent returns the content text of a room, or ErrNotFound.
func (r *Repository) GetContent(ctx context.Context, roomID string) (string, error) {
	var content string
	err := r.pool.QueryRow(ctx, `SELECT content FROM content WHERE room_id = $1`, roomID).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("documents: get content: %w", err)
	}
	return content, nil
}

// UpdateContent overwrites the content of a room. It reports false when the
// room has no content row; no row is created.
func (r *Repository) UpdateContent(ctx context.Context, roomID, content string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE content SET content = $1 WHERE room_id = $2`, content, roomID)
	if err != nil {
		return false, fmt.Errorf("documents: update content: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ============================================================================
// DOCUMENTS
// ============================================================================

// GetDocument loads the metadata row of a room.
func (r *Repository) GetDocument(ctx context.Context, roomID string) (Document, error) {
	var doc Document
	var overall int16
	err := r.pool.QueryRow(ctx, `
		SELECT room_id, room_name, create_time, overall_permission, owner_user_id
		FROM document
		WHERE room_id = $1
	`, roomID).Scan(&doc.RoomID, &doc.RoomName, &doc.CreateTime, &overall, &doc.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("documents: get document: %w", err)
	}
	doc.OverallPermission = Level(overall)
	return doc, nil
}

// ListDocuments returns the documents owned by ownerID, newest first, each
// with the users it is shared with at one of ListedLevels.
func (r *Repository) ListDocuments(ctx context.Context, ownerID string) ([]Summary, error) {
	query := `
		SELECT d.room_id, d.room_name, d.create_time, d.overall_permission,
		       p.user_id, p.permission,
		       u.user_name, u.email
		FROM document d
		LEFT JOIN permission p
		       ON p.room_id = d.room_id
		      AND p.permission = ANY($2)
		LEFT JOIN "user" u
		       ON u.id = p.user_id
		WHERE d.owner_user_id = $1
		ORDER BY d.create_time DESC, d.room_id, p.user_id
	`
	rows, err := r.pool.Query(ctx, query, ownerID, levelCodes(ListedLevels))
	if err != nil {
		return nil, fmt.Errorf("documents: list documents: %w", err)
	}
	defer rows.Close()

	var flat []listRow
	for rows.Next() {
		var row listRow
		if err := rows.Scan(
			&row.RoomID, &row.RoomName, &row.CreateTime, &row.OverallPermission,
			&row.PermUserID, &row.Permission,
			&row.UserName, &row.Email,
		); err != nil {
			return nil, fmt.Errorf("documents: scan document row: %w", err)
		}
		flat = append(flat, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("documents: iterate document rows: %w", err)
	}

	return groupSummaries(flat), nil
}

// UpdateVisibility sets the overall permission of a room.
func (r *Repository) UpdateVisibility(ctx context.Context, roomID string, level Level) (bool, error) {
	return updateVisibility(ctx, r.pool, roomID, level)
}

// RenameDocument changes the display name of a room.
func (r *Repository) RenameDocument(ctx context.Context, roomID, roomName string) (bool, error) {
	return renameDocument(ctx, r.pool, roomID, roomName)
}

func (t *txRepo) UpdateVisibility(ctx context.Context, roomID string, level Level) (bool, error) {
	return updateVisibility(ctx, t.tx, roomID, level)
}

func (t *txRepo) RenameDocument(ctx context.Context, roomID, roomName string) (bool, error) {
	return renameDocument(ctx, t.tx, roomID, roomName)
}

func updateVisibility(ctx context.Context, q db.Querier, roomID string, level Level) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE document SET overall_permission = $1 WHERE room_id = $2`, int16(level), roomID)
	if err != nil {
		return false, fmt.Errorf("documents: update visibility: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func renameDocument(ctx context.Context, q db.Querier, roomID, roomName string) (bool, error) {
	tag, err := q.Exec(ctx, `UPDATE document SET room_name = $1 WHERE room_id = $2`, roomName, roomID)
	if err != nil {
		return false, fmt.Errorf("documents: rename document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) DeletePermissions(ctx context.Context, roomID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM permission WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, fmt.Errorf("documents: delete permissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) DeleteContent(ctx context.Context, roomID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM content WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, fmt.Errorf("documents: delete content: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) DeleteDocument(ctx context.Context, roomID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM document WHERE room_id = $1`, roomID)
	if err != nil {
		return false, fmt.Errorf("documents: delete document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ============================================================================
// PERMISSIONS
// ============================================================================

// GrantPermission inserts the (room, user) permission or updates its level
// when the pair already exists. A foreign key violation is resolved by looking
// the room up, so constraint names of the schema do not matter: a missing room
// yields ErrNotFound, otherwise the user is missing and ErrUnknownUser is
// returned.
func (r *Repository) GrantPermission(ctx context.Context, roomID, userID string, level Level) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permission (room_id, user_id, permission)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO UPDATE SET permission = EXCLUDED.permission
	`, roomID, userID, int16(level))
	if err == nil {
		return nil
	}
	if !db.IsForeignKeyViolation(err) {
		return fmt.Errorf("documents: grant permission: %w", err)
	}
	var roomExists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM document WHERE room_id = $1)`, roomID).Scan(&roomExists); err != nil {
		return fmt.Errorf("documents: grant permission: resolve reference: %w", err)
	}
	if !roomExists {
		return ErrNotFound
	}
	return ErrUnknownUser
}

// RevokePermission removes the (room, user) permission.
func (r *Repository) RevokePermission(ctx context.Context, roomID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permission WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return false, fmt.Errorf("documents: revoke permission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ChangePermission updates the level of an existing (room, user) permission.
func (r *Repository) ChangePermission(ctx context.Context, roomID, userID string, level Level) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permission
		SET permission = $1
		WHERE room_id = $2 AND user_id = $3
	`, int16(level), roomID, userID)
	if err != nil {
		return false, fmt.Errorf("documents: change permission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
