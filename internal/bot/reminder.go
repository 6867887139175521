package bot

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

const (
	// ReminderCheckInterval is how often the reminder loop checks whether to send reminders.
	ReminderCheckInterval = 30 * time.Minute
	// ReminderTimeout is the maximum time a single reminder check can take.
	ReminderTimeout = 2 * time.Minute
)

// startSettleReminderLoop periodically nudges groups that still have open
// debts to settle up. Each group is reminded at most once per day.
func (b *Bot) startSettleReminderLoop(ctx context.Context) {
	if !b.cfg.SettleReminderEnabled {
		logger.Log.Info().Msg("Settle-up reminder is disabled")
		return
	}

	loc := b.cfg.ReminderLocation()

	logger.Log.Info().
		Int("hour", b.cfg.ReminderHour).
		Str("timezone", loc.String()).
		Msg("Settle-up reminder loop started")

	reminded := make(map[int64]string)
	ticker := time.NewTicker(ReminderCheckInterval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Settle-up reminder loop stopped")
		return
	default:
	}

	// Check once right away so a start during the reminder hour still counts.
	b.checkAndSendReminders(ctx, reminded, time.Now().In(loc))

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Settle-up reminder loop stopped")
			return
		case <-ticker.C:
			b.checkAndSendReminders(ctx, reminded, time.Now().In(loc))
		}
	}
}

// checkAndSendReminders sends a reminder to every allowed group with open
// debts when now falls in the reminder hour. The reminded map records the
// last reminder date per group.
func (b *Bot) checkAndSendReminders(ctx context.Context, reminded map[int64]string, now time.Time) {
	if now.Hour() != b.cfg.ReminderHour {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, ReminderTimeout)
	defer cancel()

	todayStr := now.Format("2006-01-02")

	for gid, dateStr := range reminded {
		if dateStr != todayStr {
			delete(reminded, gid)
		}
	}

	groupIDs, err := b.groups.ListIDs(checkCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch groups for settle-up reminder")
		return
	}

	for _, groupID := range groupIDs {
		if reminded[groupID] == todayStr || !b.cfg.IsChatAllowed(groupID) {
			continue
		}

		debts, err := b.ledger.GroupDebts(checkCtx, groupID)
		if err != nil {
			logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(groupID)).Msg("Failed to compute debts for reminder")
			continue
		}
		if len(debts) == 0 {
			continue
		}

		total := decimal.Zero
		for _, d := range debts {
			total = total.Add(d.Amount)
		}

		text := fmt.Sprintf(
			"💸 <b>Settle-up reminder</b>\n\nOpen debts in this group: %d, worth %s in total.\n\nSee who owes whom with /debts and record payments with <code>/settle @user</code>.",
			len(debts), b.money(total),
		)

		_, err = b.messageSender.SendMessage(checkCtx, &tgbot.SendMessageParams{
			ChatID:    groupID,
			Text:      text,
			ParseMode: tgmodels.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(groupID)).Msg("Failed to send settle-up reminder")
			continue
		}

		reminded[groupID] = todayStr
		b.usage.ReminderSent()
		logger.Log.Debug().Str("chat_hash", logger.HashChatID(groupID)).Msg("Sent settle-up reminder")
	}
}
