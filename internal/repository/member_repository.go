// Package repository implements PostgreSQL storage for members, groups,
// expenses and settlements.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// ErrMemberNotFound is returned when a lookup matches no member.
var ErrMemberNotFound = errors.New("member not found")

// MemberRepository handles member and group membership operations.
type MemberRepository struct {
	db database.PGXDB
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db database.PGXDB) *MemberRepository {
	return &MemberRepository{db: db}
}

var _ ledger.MemberStore = (*MemberRepository)(nil)

// UpsertMember creates or updates a member's Telegram profile. The nickname
// is owned by the member and left untouched.
func (r *MemberRepository) UpsertMember(ctx context.Context, m *models.Member) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO members (id, username, first_name, last_name, nickname, avatar_file_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_file_id = COALESCE(NULLIF(EXCLUDED.avatar_file_id, ''), members.avatar_file_id),
			updated_at = NOW()
	`, m.ID, m.Username, m.FirstName, m.LastName, m.AvatarFileID)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

const memberColumns = `m.id, COALESCE(m.username, ''), COALESCE(m.first_name, ''), COALESCE(m.last_name, ''),
		COALESCE(m.nickname, ''), COALESCE(m.avatar_file_id, ''), m.created_at, m.updated_at`

func scanMember(row pgx.Row) (*models.Member, error) {
	var m models.Member
	if err := row.Scan(&m.ID, &m.Username, &m.FirstName, &m.LastName,
		&m.Nickname, &m.AvatarFileID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves a member by Telegram user ID.
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members m WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetByUsernameInGroup finds a group member by @username, case-insensitively.
func (r *MemberRepository) GetByUsernameInGroup(ctx context.Context, groupID int64, username string) (*models.Member, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	m, err := scanMember(r.db.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members m
		JOIN group_members gm ON gm.user_id = m.id
		WHERE gm.group_id = $1 AND LOWER(m.username) = LOWER($2)
	`, groupID, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by username: %w", err)
	}
	return m, nil
}

// SetNickname updates a member's display nickname. An empty nickname clears it.
func (r *MemberRepository) SetNickname(ctx context.Context, id int64, nickname string) error {
	tag, err := r.db.Exec(ctx, `UPDATE members SET nickname = $2, updated_at = NOW() WHERE id = $1`, id, nickname)
	if err != nil {
		return fmt.Errorf("failed to set nickname: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// AddToGroup records that the member belongs to the group. Existing
// memberships keep their role and join date.
func (r *MemberRepository) AddToGroup(ctx context.Context, groupID, userID int64, role string) error {
	if role == "" {
		role = models.RoleMember
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// RemoveFromGroup drops a membership. Ledger history is kept.
func (r *MemberRepository) RemoveFromGroup(ctx context.Context, groupID, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the group.
func (r *MemberRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// ListByGroup returns the group's members ordered by join date.
func (r *MemberRepository) ListByGroup(ctx context.Context, groupID int64) ([]models.Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members m
		JOIN group_members gm ON gm.user_id = m.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, m.id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// GetMany returns the members with the given ids keyed by id. Unknown ids
// are skipped.
func (r *MemberRepository) GetMany(ctx context.Context, ids []int64) (map[int64]models.Member, error) {
	out := make(map[int64]models.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM members m WHERE m.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out[m.ID] = *m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return out, nil
}
