package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/split-bot/internal/models"
)

// recentLimit is how many rows /expenses and /settlements show.
const recentLimit = 10

const addUsage = "Usage: <code>/add &lt;amount&gt; &lt;description&gt; [@user ...]</code>\nExample: <code>/add 60 Dinner @bob @carol</code>"

// handleAddCore records an expense paid by the sender and split equally.
func (b *Bot) handleAddCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	parsed, err := ParseAddCommand(update.Message.Text, update.Message.Entities)
	if err != nil {
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(err.Error())+".\n\n"+addUsage)
		return
	}
	if parsed.Description == "" {
		b.reply(ctx, tg, chatID, "❌ Please add a description.\n\n"+addUsage)
		return
	}

	participants, errText, err := b.participants(ctx, chatID, userID, parsed.Mentions)
	if err != nil {
		b.replyError(ctx, tg, chatID, "add expense", err)
		return
	}
	if errText != "" {
		b.reply(ctx, tg, chatID, errText)
		return
	}

	expense, err := b.ledger.AddExpense(ctx, ledger.ExpenseRequest{
		GroupID:        chatID,
		PayerID:        userID,
		Amount:         parsed.Amount,
		Description:    parsed.Description,
		ParticipantIDs: participants,
	})
	if err != nil {
		b.replyError(ctx, tg, chatID, "add expense", err)
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("user_hash", logger.HashUserID(userID)).
		Int64("expense_number", expense.GroupExpenseNumber).
		Str("amount", expense.Amount.String()).
		Int("participants", len(participants)).
		Msg("Expense added")

	b.reply(ctx, tg, chatID, b.formatExpenseAdded(ctx, expense))
}

// participants returns who an expense is split between: the payer and the
// mentioned members, or every member of the group when nobody is mentioned.
func (b *Bot) participants(ctx context.Context, groupID, payerID int64, mentions []Mention) ([]int64, string, error) {
	if len(mentions) > 0 {
		ids, errText, err := b.resolveMentions(ctx, groupID, mentions)
		if err != nil || errText != "" {
			return nil, errText, err
		}
		if !slices.Contains(ids, payerID) {
			ids = append([]int64{payerID}, ids...)
		}
		return uniqueIDs(ids), "", nil
	}

	members, err := b.members.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list members: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].ID)
	}
	if !slices.Contains(ids, payerID) {
		ids = append(ids, payerID)
	}
	if len(ids) < 2 {
		return nil, "❌ Nobody to split with yet. Mention members with @username, or wait until they have sent a message here.", nil
	}
	return ids, "", nil
}

func (b *Bot) formatExpenseAdded(ctx context.Context, e *appmodels.Expense) string {
	ids := []int64{e.PayerID}
	for _, s := range e.Shares {
		ids = append(ids, s.ParticipantID)
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ <b>Expense #%d added</b>\n\n", e.GroupExpenseNumber)
	fmt.Fprintf(&sb, "💰 %s · %s\n", b.money(e.Amount), escapeHTML(e.Description))
	fmt.Fprintf(&sb, "👤 Paid by %s\n", n.of(e.PayerID))

	parts := make([]string, 0, len(e.Shares))
	for _, s := range e.Shares {
		parts = append(parts, n.of(s.ParticipantID)+" "+b.money(s.Amount))
	}
	fmt.Fprintf(&sb, "👥 Split %d ways: %s", len(e.Shares), strings.Join(parts, ", "))
	return sb.String()
}

const paidForUsage = "Usage: <code>/paidfor &lt;amount&gt; @user [description]</code>\nExample: <code>/paidfor 20 @bob paid back for lunch</code>"

// handlePaidForCore records a direct transfer from the sender to one member.
// It repays what the sender owes that member.
func (b *Bot) handlePaidForCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	parsed, err := ParsePaidForCommand(update.Message.Text, update.Message.Entities)
	if err != nil {
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(err.Error())+".\n\n"+paidForUsage)
		return
	}

	ids, errText, err := b.resolveMentions(ctx, chatID, []Mention{parsed.Beneficiary})
	if err != nil {
		b.replyError(ctx, tg, chatID, "record payment", err)
		return
	}
	if errText != "" {
		b.reply(ctx, tg, chatID, errText)
		return
	}
	beneficiary := ids[0]
	if beneficiary == userID {
		b.reply(ctx, tg, chatID, "❌ You can't pay for yourself.")
		return
	}

	n := b.lookupNames(ctx, userID, beneficiary)
	desc := parsed.Description
	if desc == "" {
		desc = "Direct payment"
		if m, ok := n[beneficiary]; ok {
			desc = "Paid " + m.DisplayName()
		}
	}

	expense, err := b.ledger.AddExpense(ctx, ledger.ExpenseRequest{
		GroupID:        chatID,
		PayerID:        userID,
		Amount:         parsed.Amount,
		Description:    desc,
		ParticipantIDs: []int64{beneficiary},
	})
	if err != nil {
		b.replyError(ctx, tg, chatID, "record payment", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ <b>Expense #%d added</b>\n\n", expense.GroupExpenseNumber)
	fmt.Fprintf(&sb, "💸 %s paid %s to %s. This counts against what %s owes %s.",
		n.of(userID), b.money(expense.Amount), n.of(beneficiary), n.of(userID), n.of(beneficiary))

	view, err := b.ledger.ComputeSettlementView(ctx, chatID, userID)
	if err == nil {
		for _, op := range view.Overpayments {
			if op.FromID == userID && op.ToID == beneficiary {
				fmt.Fprintf(&sb, "\n\n⚠️ %s of what %s paid %s went beyond what was owed. It stays as credit and comes off what %s owes %s later.",
					b.money(op.Amount), n.of(userID), n.of(beneficiary), n.of(userID), n.of(beneficiary))
			}
		}
	}

	b.reply(ctx, tg, chatID, sb.String())
}

// handleExpensesCore shows the group's most recent expenses.
func (b *Bot) handleExpensesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	expenses, err := b.expenses.ListRecent(ctx, chatID, recentLimit)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to list expenses")
		b.reply(ctx, tg, chatID, "❌ Failed to fetch expenses. Please try again.")
		return
	}
	if len(expenses) == 0 {
		b.reply(ctx, tg, chatID, "📭 No expenses yet. Add one with <code>/add 60 Dinner</code>")
		return
	}

	var ids []int64
	for i := range expenses {
		ids = append(ids, expenses[i].PayerID)
		for _, s := range expenses[i].Shares {
			ids = append(ids, s.ParticipantID)
		}
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	var sb strings.Builder
	sb.WriteString("🧾 <b>Recent Expenses</b>\n")
	for i := range expenses {
		e := &expenses[i]
		fmt.Fprintf(&sb, "\n<b>#%d</b> · %s · %s\n", e.GroupExpenseNumber, b.money(e.Amount), escapeHTML(e.Description))
		if ledger.Classify(*e) == ledger.KindDirectTransfer {
			fmt.Fprintf(&sb, "    %s paid %s · %s\n", n.of(e.PayerID), n.of(e.Shares[0].ParticipantID), e.CreatedAt.Format("Jan 2"))
			continue
		}
		fmt.Fprintf(&sb, "    paid by %s, split %d ways · %s\n", n.of(e.PayerID), len(e.Shares), e.CreatedAt.Format("Jan 2"))
	}

	b.reply(ctx, tg, chatID, sb.String())
}

// handleDeleteCore deletes an expense paid by the sender.
func (b *Bot) handleDeleteCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	number, err := parseExpenseNumber(extractCommandArgs(update.Message.Text))
	if err != nil {
		b.reply(ctx, tg, chatID, "❌ Please provide an expense number.\n\nUsage: <code>/delete &lt;number&gt;</code>")
		return
	}

	expense, err := b.ledger.DeleteExpense(ctx, chatID, number, userID)
	if err != nil {
		b.replyError(ctx, tg, chatID, "delete expense", err)
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("user_hash", logger.HashUserID(userID)).
		Int64("expense_number", number).
		Msg("Expense deleted")

	b.reply(ctx, tg, chatID, fmt.Sprintf("🗑️ Deleted expense #%d (%s · %s).",
		number, b.money(expense.Amount), escapeHTML(expense.Description)))
}
