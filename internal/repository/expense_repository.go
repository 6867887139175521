package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// ExpenseRepository handles expense and share database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

var _ ledger.ExpenseStore = (*ExpenseRepository)(nil)

// Create inserts the expense and its shares in one transaction and assigns
// the next per-group expense number.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE groups SET expense_seq = expense_seq + 1 WHERE id = $1 RETURNING expense_seq
		`, expense.GroupID).Scan(&expense.GroupExpenseNumber)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGroupNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to allocate expense number: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO expenses (group_id, group_expense_number, payer_id, amount, description, receipt_file_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, expense.GroupID, expense.GroupExpenseNumber, expense.PayerID, expense.Amount,
			expense.Description, expense.ReceiptFileID,
		).Scan(&expense.ID, &expense.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range expense.Shares {
			expense.Shares[i].ExpenseID = expense.ID
			s := expense.Shares[i]
			batch.Queue(`
				INSERT INTO expense_shares (expense_id, participant_id, amount) VALUES ($1, $2, $3)
			`, s.ExpenseID, s.ParticipantID, s.Amount)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to create expense shares: %w", err)
		}
		return nil
	})
}

const expenseColumns = `e.id, e.group_expense_number, e.group_id, e.payer_id, e.amount,
		COALESCE(e.description, ''), COALESCE(e.receipt_file_id, ''), e.created_at`

// ListByGroupWithShares returns every expense in the group with its shares,
// oldest first, using a single joined query.
func (r *ExpenseRepository) ListByGroupWithShares(ctx context.Context, groupID int64) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+`, s.participant_id, s.amount
		FROM expenses e
		LEFT JOIN expense_shares s ON s.expense_id = e.id
		WHERE e.group_id = $1
		ORDER BY e.created_at, e.id, s.participant_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	return scanExpensesWithShares(rows)
}

// GetByGroupAndNumber retrieves an expense with its shares by per-group number.
func (r *ExpenseRepository) GetByGroupAndNumber(ctx context.Context, groupID, number int64) (*models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+`, s.participant_id, s.amount
		FROM expenses e
		LEFT JOIN expense_shares s ON s.expense_id = e.id
		WHERE e.group_id = $1 AND e.group_expense_number = $2
		ORDER BY s.participant_id
	`, groupID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense by group number: %w", err)
	}
	defer rows.Close()

	expenses, err := scanExpensesWithShares(rows)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, ledger.ErrExpenseNotFound
	}
	return &expenses[0], nil
}

// ListRecent returns the group's latest expenses with shares, newest first.
func (r *ExpenseRepository) ListRecent(ctx context.Context, groupID int64, limit int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		WITH recent AS (
			SELECT id FROM expenses WHERE group_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
		SELECT `+expenseColumns+`, s.participant_id, s.amount
		FROM expenses e
		JOIN recent ON recent.id = e.id
		LEFT JOIN expense_shares s ON s.expense_id = e.id
		ORDER BY e.created_at DESC, e.id DESC, s.participant_id
	`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent expenses: %w", err)
	}
	defer rows.Close()

	return scanExpensesWithShares(rows)
}

// Delete removes an expense by ID. Its shares go with it.
func (r *ExpenseRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

// scanExpensesWithShares folds joined expense/share rows into expenses.
// Rows of one expense must be adjacent.
func scanExpensesWithShares(rows pgx.Rows) ([]models.Expense, error) {
	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		var participantID *int64
		var shareAmount decimal.NullDecimal

		if err := rows.Scan(
			&exp.ID, &exp.GroupExpenseNumber, &exp.GroupID, &exp.PayerID, &exp.Amount,
			&exp.Description, &exp.ReceiptFileID, &exp.CreatedAt,
			&participantID, &shareAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if n := len(expenses); n == 0 || expenses[n-1].ID != exp.ID {
			expenses = append(expenses, exp)
		}
		if participantID != nil && shareAmount.Valid {
			last := &expenses[len(expenses)-1]
			last.Shares = append(last.Shares, models.ExpenseShare{
				ExpenseID:     exp.ID,
				ParticipantID: *participantID,
				Amount:        shareAmount.Decimal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}
