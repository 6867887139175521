package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			nickname TEXT,
			avatar_file_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id BIGINT PRIMARY KEY,
			title TEXT,
			expense_seq BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS group_members (
			group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			role TEXT NOT NULL DEFAULT 'member',
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			group_expense_number BIGINT NOT NULL,
			payer_id BIGINT NOT NULL REFERENCES members(id),
			amount NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
			description TEXT,
			receipt_file_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (group_id, group_expense_number)
		)`,

		`CREATE TABLE IF NOT EXISTS expense_shares (
			expense_id INTEGER NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			participant_id BIGINT NOT NULL REFERENCES members(id),
			amount NUMERIC(12, 2) NOT NULL CHECK (amount >= 0),
			PRIMARY KEY (expense_id, participant_id)
		)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id UUID PRIMARY KEY,
			group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			from_id BIGINT NOT NULL REFERENCES members(id),
			to_id BIGINT NOT NULL REFERENCES members(id),
			amount NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
			note TEXT,
			created_by BIGINT REFERENCES members(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (from_id <> to_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_group_created ON expenses(group_id, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_expense_shares_participant ON expense_shares(participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_group_created ON settlements(group_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
