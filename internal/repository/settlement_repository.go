package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// SettlementRepository handles settlement database operations. Settlements
// are append-only.
type SettlementRepository struct {
	db database.PGXDB
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db database.PGXDB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

var _ ledger.SettlementStore = (*SettlementRepository)(nil)

// Create appends a settlement, assigning an ID when none is set.
func (r *SettlementRepository) Create(ctx context.Context, s *models.Settlement) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var createdBy *int64
	if s.CreatedBy != 0 {
		createdBy = &s.CreatedBy
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO settlements (id, group_id, from_id, to_id, amount, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, s.ID, s.GroupID, s.FromID, s.ToID, s.Amount, s.Note, createdBy).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	return nil
}

const settlementColumns = `id, group_id, from_id, to_id, amount, COALESCE(note, ''), COALESCE(created_by, 0), created_at`

// ListByGroup returns every settlement in the group, oldest first.
func (r *SettlementRepository) ListByGroup(ctx context.Context, groupID int64) ([]models.Settlement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements WHERE group_id = $1
		ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	return scanSettlements(rows)
}

// ListRecent returns the group's latest settlements, newest first.
func (r *SettlementRepository) ListRecent(ctx context.Context, groupID int64, limit int) ([]models.Settlement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent settlements: %w", err)
	}
	defer rows.Close()

	return scanSettlements(rows)
}

func scanSettlements(rows pgx.Rows) ([]models.Settlement, error) {
	var out []models.Settlement
	for rows.Next() {
		var s models.Settlement
		if err := rows.Scan(&s.ID, &s.GroupID, &s.FromID, &s.ToID, &s.Amount, &s.Note, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}
	return out, nil
}
