package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// handleChartCore sends a chart of the sender's open balances.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	view, err := b.ledger.ComputeSettlementView(ctx, chatID, userID)
	if err != nil {
		b.replyError(ctx, tg, chatID, "generate chart", err)
		return
	}
	if len(view.Lines) == 0 {
		b.reply(ctx, tg, chatID, "📊 Nothing to chart. You're all settled up!")
		return
	}

	ids := []int64{userID}
	for _, l := range view.Lines {
		ids = append(ids, l.CounterpartyID)
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	now := time.Now().In(b.cfg.ReminderLocation())
	title := fmt.Sprintf("Balances of %s (%s)", n.plain(userID), now.Format("Jan 2, 2006"))
	chartData, err := GenerateBalanceChart(view.Lines, n.plain, title)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		b.reply(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.")
		return
	}

	caption := fmt.Sprintf("📊 <b>Your Balances</b>\n\nYou owe: %s\nOwed to you: %s",
		b.money(view.Summary.TotalYouOwe), b.money(view.Summary.TotalOwedToYou))

	_, err = tg.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileUpload{Filename: generateChartFilename(now), Data: bytes.NewReader(chartData)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart")
		b.reply(ctx, tg, chatID, "❌ Failed to send chart. Please try again.")
		return
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(userID)).
		Int("lines", len(view.Lines)).
		Msg("Chart generated successfully")
}

// handleReportCore sends a CSV of every expense share in the group.
func (b *Bot) handleReportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	expenses, err := b.expenses.ListByGroupWithShares(ctx, chatID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to fetch expenses for report")
		b.reply(ctx, tg, chatID, "❌ Failed to generate report. Please try again.")
		return
	}
	if len(expenses) == 0 {
		b.reply(ctx, tg, chatID, "📄 No expenses recorded in this group yet.")
		return
	}

	var ids []int64
	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].Amount)
		ids = append(ids, expenses[i].PayerID)
		for _, s := range expenses[i].Shares {
			ids = append(ids, s.ParticipantID)
		}
	}
	n := b.lookupNames(ctx, uniqueIDs(ids)...)

	csvData, err := GenerateSharesCSV(expenses, n.plain, b.cfg.Currency)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate CSV")
		b.reply(ctx, tg, chatID, "❌ Failed to generate report. Please try again.")
		return
	}

	now := time.Now().In(b.cfg.ReminderLocation())
	caption := fmt.Sprintf("📄 <b>Expense Report</b>\n\n%d expenses · %s total", len(expenses), b.money(total))

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: generateReportFilename(now), Data: bytes.NewReader(csvData)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send report")
		b.reply(ctx, tg, chatID, "❌ Failed to send report. Please try again.")
	}
}
