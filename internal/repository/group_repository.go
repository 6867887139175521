package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// ErrGroupNotFound is returned when a lookup matches no group.
var ErrGroupNotFound = errors.New("group not found")

// GroupRepository handles group chat records.
type GroupRepository struct {
	db database.PGXDB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db database.PGXDB) *GroupRepository {
	return &GroupRepository{db: db}
}

// UpsertGroup creates the group or refreshes its title.
func (r *GroupRepository) UpsertGroup(ctx context.Context, g *models.Group) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO groups (id, title, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title
		RETURNING created_at
	`, g.ID, g.Title).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

// GetByID retrieves a group by chat ID.
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(title, ''), created_at FROM groups WHERE id = $1
	`, id).Scan(&g.ID, &g.Title, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// ListIDs returns every known group chat ID.
func (r *GroupRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect group ids: %w", err)
	}
	return ids, nil
}
