package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/split-bot/internal/models"
)

// handleBalanceCore shows the sender's position with every other member.
func (b *Bot) handleBalanceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	view, err := b.ledger.ComputeSettlementView(ctx, chatID, userID)
	if err != nil {
		b.replyError(ctx, tg, chatID, "compute balance", err)
		return
	}

	ids := []int64{userID}
	for _, l := range view.Lines {
		ids = append(ids, l.CounterpartyID)
	}
	for _, op := range view.Overpayments {
		ids = append(ids, op.FromID, op.ToID)
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	b.reply(ctx, tg, chatID, b.formatBalance(view, userID, n))
}

func (b *Bot) formatBalance(view *ledger.View, viewerID int64, n names) string {
	var sb strings.Builder
	sb.WriteString("⚖️ <b>Your Balance</b>\n\n")

	if len(view.Lines) == 0 {
		sb.WriteString("✅ You're all settled up!")
	}
	for _, l := range view.Lines {
		switch l.Direction {
		case appmodels.DirectionYouOwe:
			fmt.Fprintf(&sb, "🔴 You owe %s %s\n", n.of(l.CounterpartyID), b.money(l.Amount))
		case appmodels.DirectionOwesYou:
			fmt.Fprintf(&sb, "🟢 %s owes you %s\n", n.of(l.CounterpartyID), b.money(l.Amount))
		}
	}

	if len(view.Lines) > 0 {
		s := view.Summary
		fmt.Fprintf(&sb, "\nTotal you owe: %s\nTotal owed to you: %s\n", b.money(s.TotalYouOwe), b.money(s.TotalOwedToYou))
		switch s.Direction {
		case appmodels.DirectionYouOwe:
			fmt.Fprintf(&sb, "<b>Net: you owe %s</b>", b.money(s.Net.Abs()))
		case appmodels.DirectionOwesYou:
			fmt.Fprintf(&sb, "<b>Net: you are owed %s</b>", b.money(s.Net))
		default:
			sb.WriteString("<b>Net: even</b>")
		}
	}

	for _, op := range view.Overpayments {
		if op.FromID != viewerID && op.ToID != viewerID {
			continue
		}
		fmt.Fprintf(&sb, "\n\nℹ️ %s paid %s %s more than was owed. It stays as credit and comes off what %s owes %s later.",
			n.of(op.FromID), n.of(op.ToID), b.money(op.Amount), n.of(op.FromID), n.of(op.ToID))
	}

	sb.WriteString(formatIssues(view.Issues))
	return sb.String()
}

func formatIssues(issues []*ledger.IntegrityError) string {
	if len(issues) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n⚠️ <b>Some expenses were skipped because their data is inconsistent:</b>")
	for _, issue := range issues {
		sb.WriteString("\n• " + escapeHTML(issue.Error()))
	}
	return sb.String()
}

// handleDebtsCore lists every open debt in the group.
func (b *Bot) handleDebtsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	debts, err := b.ledger.GroupDebts(ctx, chatID)
	if err != nil {
		b.replyError(ctx, tg, chatID, "compute debts", err)
		return
	}
	if len(debts) == 0 {
		b.reply(ctx, tg, chatID, "✅ Nobody owes anything. The group is settled up!")
		return
	}

	var ids []int64
	for _, d := range debts {
		ids = append(ids, d.DebtorID, d.CreditorID)
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	var sb strings.Builder
	sb.WriteString("💸 <b>Group Debts</b>\n\n")
	for _, d := range debts {
		fmt.Fprintf(&sb, "• %s owes %s %s\n", n.of(d.DebtorID), n.of(d.CreditorID), b.money(d.Amount))
	}
	sb.WriteString("\nUse <code>/settle @user</code> to record a payment.")

	b.reply(ctx, tg, chatID, sb.String())
}

const settleUsage = "Usage: <code>/settle @user [amount] [note]</code>\nExample: <code>/settle @bob 20 paynow</code>"

// handleSettleCore records a payment between the sender and a member in
// whichever direction money is owed.
func (b *Bot) handleSettleCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	parsed, err := ParseSettleCommand(update.Message.Text, update.Message.Entities)
	if err != nil {
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(err.Error())+".\n\n"+settleUsage)
		return
	}

	ids, errText, err := b.resolveMentions(ctx, chatID, []Mention{parsed.Counterparty})
	if err != nil {
		b.replyError(ctx, tg, chatID, "record settlement", err)
		return
	}
	if errText != "" {
		b.reply(ctx, tg, chatID, errText)
		return
	}
	counterparty := ids[0]
	if counterparty == userID {
		b.reply(ctx, tg, chatID, "❌ You can't settle with yourself.")
		return
	}

	view, err := b.ledger.ComputeSettlementView(ctx, chatID, userID)
	if err != nil {
		b.replyError(ctx, tg, chatID, "record settlement", err)
		return
	}
	n := b.lookupNames(ctx, userID, counterparty)

	line, ok := findLine(view.Lines, counterparty)
	if !ok {
		b.reply(ctx, tg, chatID, fmt.Sprintf("✅ You and %s are already settled up.", n.of(counterparty)))
		return
	}

	fromID, toID := userID, counterparty
	if line.Direction == appmodels.DirectionOwesYou {
		fromID, toID = counterparty, userID
	}
	amount := parsed.Amount
	if amount.IsZero() {
		amount = line.Amount
	}

	settlement, err := b.ledger.RecordSettlement(ctx, ledger.SettlementRequest{
		GroupID:   chatID,
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		Note:      parsed.Note,
		CreatedBy: userID,
	})
	if err != nil {
		b.replyError(ctx, tg, chatID, "record settlement", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("✅ <b>Settlement recorded</b>\n\n")
	fmt.Fprintf(&sb, "🤝 %s paid %s %s", n.of(fromID), n.of(toID), b.money(settlement.Amount))
	if settlement.Note != "" {
		fmt.Fprintf(&sb, " (%s)", escapeHTML(settlement.Note))
	}
	remaining := line.Amount.Sub(settlement.Amount)
	if remaining.GreaterThanOrEqual(ledger.SettledThreshold) {
		fmt.Fprintf(&sb, "\n\nStill owed: %s", b.money(remaining))
	} else {
		fmt.Fprintf(&sb, "\n\n%s and %s are now settled up.", n.of(fromID), n.of(toID))
	}

	b.reply(ctx, tg, chatID, sb.String())
}

func findLine(lines []appmodels.BalanceLine, counterparty int64) (appmodels.BalanceLine, bool) {
	for _, l := range lines {
		if l.CounterpartyID == counterparty {
			return l, true
		}
	}
	return appmodels.BalanceLine{}, false
}

// handleSettlementsCore shows the group's most recent settlements.
func (b *Bot) handleSettlementsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	settlements, err := b.settlements.ListRecent(ctx, chatID, recentLimit)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to list settlements")
		b.reply(ctx, tg, chatID, "❌ Failed to fetch settlements. Please try again.")
		return
	}
	if len(settlements) == 0 {
		b.reply(ctx, tg, chatID, "📭 No settlements yet. Record one with <code>/settle @user</code>")
		return
	}

	var ids []int64
	for i := range settlements {
		ids = append(ids, settlements[i].FromID, settlements[i].ToID)
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	var sb strings.Builder
	sb.WriteString("🤝 <b>Recent Settlements</b>\n\n")
	for i := range settlements {
		s := &settlements[i]
		fmt.Fprintf(&sb, "%s · %s paid %s %s", s.CreatedAt.Format("Jan 2"), n.of(s.FromID), n.of(s.ToID), b.money(s.Amount))
		if s.Note != "" {
			fmt.Fprintf(&sb, " (%s)", escapeHTML(s.Note))
		}
		sb.WriteString("\n")
	}

	b.reply(ctx, tg, chatID, sb.String())
}
