package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/split-bot/internal/gemini"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// maxPhotoBytes is the default limit on a downloaded photo.
const maxPhotoBytes = 20 << 20

var errPhotoTooLarge = errors.New("photo is too large")

// handlePhotoCore turns a receipt photo into an expense paid by the sender.
// The caption may carry a description and @mentions to narrow the split.
func (b *Bot) handlePhotoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || len(update.Message.Photo) == 0 {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if b.receipts == nil {
		b.reply(ctx, tg, chatID, "📷 Receipt reading is not configured. Please add the expense with <code>/add &lt;amount&gt; &lt;description&gt;</code>")
		return
	}

	description, mentions := ParseCaption(update.Message.Caption, update.Message.CaptionEntities)
	participants, errText, err := b.participants(ctx, chatID, userID, mentions)
	if err != nil {
		b.replyError(ctx, tg, chatID, "add expense", err)
		return
	}
	if errText != "" {
		b.reply(ctx, tg, chatID, errText)
		return
	}

	largestPhoto := update.Message.Photo[len(update.Message.Photo)-1]
	b.reply(ctx, tg, chatID, "📷 Reading receipt...")

	imageBytes, err := b.downloadFile(ctx, tg, largestPhoto.FileID)
	if errors.Is(err, errPhotoTooLarge) {
		logger.Log.Warn().Str("chat_hash", logger.HashChatID(chatID)).Int64("limit", b.photoLimit).Msg("Photo exceeds download limit")
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ This photo is larger than %d MB. Please send a smaller one.", b.photoLimit>>20))
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to download photo")
		b.reply(ctx, tg, chatID, "❌ Failed to download photo. Please try again.")
		return
	}

	receipt, err := b.receipts.ParseReceipt(ctx, imageBytes, "image/jpeg")
	if err != nil {
		logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to parse receipt")
		if errors.Is(err, gemini.ErrParseTimeout) {
			b.reply(ctx, tg, chatID, "⏱️ Reading the receipt timed out. Please try again or add it with <code>/add &lt;amount&gt; &lt;description&gt;</code>")
			return
		}
		b.reply(ctx, tg, chatID, "❌ Could not read a total from this receipt. Please add it with <code>/add &lt;amount&gt; &lt;description&gt;</code>")
		return
	}

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("amount", receipt.Total.String()).
		Str("merchant", logger.SanitizeDescription(receipt.Merchant)).
		Float64("confidence", receipt.Confidence).
		Msg("Receipt parsed")

	if receipt.Total.GreaterThan(MaxAmount) {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ The receipt total %s is too large. The maximum is %s.",
			b.money(receipt.Total), b.money(MaxAmount)))
		return
	}

	if description == "" {
		description = receipt.Description()
	}

	expense, err := b.ledger.AddExpense(ctx, ledger.ExpenseRequest{
		GroupID:        chatID,
		PayerID:        userID,
		Amount:         receipt.Total,
		Description:    description,
		ParticipantIDs: participants,
		ReceiptFileID:  largestPhoto.FileID,
	})
	if err != nil {
		b.replyError(ctx, tg, chatID, "add expense", err)
		return
	}

	text := b.formatExpenseAdded(ctx, expense)
	if !receipt.Date.IsZero() {
		text += "\n🗓️ Receipt dated " + receipt.Date.Format("2 Jan 2006")
	}
	if receipt.Currency != "" && receipt.Currency != b.cfg.Currency {
		text += fmt.Sprintf("\n\n⚠️ The receipt looks like it is in %s. The amount was recorded as-is in %s.",
			escapeHTML(receipt.Currency), b.cfg.Currency)
	}
	text += fmt.Sprintf("\n\nWrong total? <code>/delete %d</code> and add it manually.", expense.GroupExpenseNumber)

	b.reply(ctx, tg, chatID, text)
}

// downloadFile fetches a Telegram file by ID.
func (b *Bot) downloadFile(ctx context.Context, tg TelegramAPI, fileID string) ([]byte, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tg.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.photoLimit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > b.photoLimit {
		return nil, errPhotoTooLarge
	}
	return data, nil
}
