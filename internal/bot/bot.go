// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/split-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/split-bot/internal/config"
	"gitlab.com/yelinaung/split-bot/internal/gemini"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// MemberDirectory stores member profiles and group membership.
type MemberDirectory interface {
	UpsertMember(ctx context.Context, m *models.Member) error
	AddToGroup(ctx context.Context, groupID, userID int64, role string) error
	RemoveFromGroup(ctx context.Context, groupID, userID int64) error
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	GetByUsernameInGroup(ctx context.Context, groupID int64, username string) (*models.Member, error)
	SetNickname(ctx context.Context, id int64, nickname string) error
	ListByGroup(ctx context.Context, groupID int64) ([]models.Member, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]models.Member, error)
}

// GroupDirectory stores group chats.
type GroupDirectory interface {
	UpsertGroup(ctx context.Context, g *models.Group) error
	ListIDs(ctx context.Context) ([]int64, error)
}

// ExpenseHistory lists stored expenses for display.
type ExpenseHistory interface {
	ListRecent(ctx context.Context, groupID int64, limit int) ([]models.Expense, error)
	ListByGroupWithShares(ctx context.Context, groupID int64) ([]models.Expense, error)
}

// SettlementHistory lists stored settlements for display.
type SettlementHistory interface {
	ListRecent(ctx context.Context, groupID int64, limit int) ([]models.Settlement, error)
}

// ReceiptParser reads a receipt photo.
type ReceiptParser interface {
	ParseReceipt(ctx context.Context, imageBytes []byte, mimeType string) (*gemini.ReceiptData, error)
}

// UsageRecorder counts bot activity.
type UsageRecorder interface {
	CommandHandled(command string)
	ReminderSent()
}

type nopUsage struct{}

func (nopUsage) CommandHandled(string) {}
func (nopUsage) ReminderSent()         {}

// Deps are the collaborators of a Bot.
type Deps struct {
	Ledger      *ledger.Service
	Members     MemberDirectory
	Groups      GroupDirectory
	Expenses    ExpenseHistory
	Settlements SettlementHistory
	// Receipts is optional; photo expenses are disabled without it.
	Receipts ReceiptParser
	// Usage is optional.
	Usage UsageRecorder
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot           *bot.Bot
	cfg           *config.Config
	ledger        *ledger.Service
	members       MemberDirectory
	groups        GroupDirectory
	expenses      ExpenseHistory
	settlements   SettlementHistory
	receipts      ReceiptParser
	usage         UsageRecorder
	messageSender TelegramAPI
	httpClient    *http.Client
	photoLimit    int64

	// avatarsLooked holds the user IDs whose profile photo was fetched.
	avatarsLooked sync.Map
}

// TelegramAPI is the Telegram client surface the handlers need. It is
// declared in mocks so that package does not import bot.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*bot.Bot)(nil)

// coreHandler is the testable form of a handler.
type coreHandler func(ctx context.Context, tg TelegramAPI, update *tgmodels.Update)

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b := newBot(cfg, deps)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.messageSender = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, deps Deps) *Bot {
	b := &Bot{
		cfg:         cfg,
		ledger:      deps.Ledger,
		members:     deps.Members,
		groups:      deps.Groups,
		expenses:    deps.Expenses,
		settlements: deps.Settlements,
		receipts:    deps.Receipts,
		usage:       deps.Usage,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		photoLimit:  maxPhotoBytes,
	}
	if b.usage == nil {
		b.usage = nopUsage{}
	}
	return b
}

// Start begins polling for updates and runs the settle-up reminder loop
// until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	go b.startSettleReminderLoop(ctx)

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// commands maps each command name to its handler.
func (b *Bot) commands() map[string]coreHandler {
	return map[string]coreHandler{
		"start":       b.handleStartCore,
		"help":        b.handleHelpCore,
		"add":         b.handleAddCore,
		"paidfor":     b.handlePaidForCore,
		"expenses":    b.handleExpensesCore,
		"delete":      b.handleDeleteCore,
		"balance":     b.handleBalanceCore,
		"debts":       b.handleDebtsCore,
		"settle":      b.handleSettleCore,
		"settlements": b.handleSettlementsCore,
		"members":     b.handleMembersCore,
		"nick":        b.handleNickCore,
		"chart":       b.handleChartCore,
		"report":      b.handleReportCore,
	}
}

// registerHandlers sets up command and photo handlers.
func (b *Bot) registerHandlers() {
	for name, core := range b.commands() {
		b.bot.RegisterHandlerMatchFunc(matchCommand(name), b.wrap(name, core))
	}
	b.bot.RegisterHandlerMatchFunc(isPhotoMessage, b.wrap("photo", b.handlePhotoCore))
}

func (b *Bot) wrap(name string, core coreHandler) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		b.usage.CommandHandled(name)
		core(ctx, tgBot, update)
	}
}

func matchCommand(name string) bot.MatchFunc {
	return func(update *tgmodels.Update) bool {
		return update.Message != nil && commandName(update.Message.Text) == name
	}
}

func isPhotoMessage(update *tgmodels.Update) bool {
	return update.Message != nil && len(update.Message.Photo) > 0
}

// whitelistMiddleware drops updates from chats the bot is not enabled for
// and registers the sender as a group member before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.admit(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// admit reports whether the update should reach a handler.
func (b *Bot) admit(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return false
	}

	chatID := msg.Chat.ID
	if !b.cfg.IsChatAllowed(chatID) {
		logger.Log.Warn().
			Str("chat_hash", logger.HashChatID(chatID)).
			Str("user_hash", logger.HashUserID(msg.From.ID)).
			Msg("Blocked update from non-allowed chat")
		if commandName(msg.Text) != "" {
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "⛔ Sorry, this bot is not enabled for this chat.",
			})
		}
		return false
	}

	logUserAction(update)

	if err := b.ensureMemberRegistered(ctx, tg, msg); err != nil {
		logger.Log.Error().
			Str("chat_hash", logger.HashChatID(chatID)).
			Str("user_hash", logger.HashUserID(msg.From.ID)).
			Err(err).
			Msg("Failed to register member")
	}
	b.handleMembershipChanges(ctx, tg, msg)

	return true
}

// logUserAction logs the shape of the input without its content.
func logUserAction(update *tgmodels.Update) {
	msg := update.Message
	event := logger.Log.Info().
		Str("user_hash", logger.HashUserID(msg.From.ID)).
		Str("chat_hash", logger.HashChatID(msg.Chat.ID))

	switch {
	case commandName(msg.Text) != "":
		event = event.Str("command", commandName(msg.Text))
	case len(msg.Photo) > 0:
		event = event.Str("type", "photo")
	case len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil:
		event = event.Str("type", "membership")
	default:
		event = event.Str("type", "text").Str("text", logger.SanitizeText(msg.Text))
	}
	event.Msg("User input")
}

func memberFromUser(u *tgmodels.User) *models.Member {
	return &models.Member{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// ensureMemberRegistered creates or refreshes the group and sender records
// and adds the sender to the group.
func (b *Bot) ensureMemberRegistered(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message) error {
	if err := b.groups.UpsertGroup(ctx, &models.Group{ID: msg.Chat.ID, Title: msg.Chat.Title}); err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	m := memberFromUser(msg.From)
	m.AvatarFileID = b.lookupAvatar(ctx, tg, m.ID)
	if err := b.members.UpsertMember(ctx, m); err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	if err := b.members.AddToGroup(ctx, msg.Chat.ID, msg.From.ID, models.RoleMember); err != nil {
		return fmt.Errorf("failed to add member to group: %w", err)
	}
	return nil
}

// lookupAvatar returns the file ID of the smallest size of the user's current
// profile photo. Each user is looked up once per process; later calls and
// users without a photo return "", which keeps the stored value.
func (b *Bot) lookupAvatar(ctx context.Context, tg TelegramAPI, userID int64) string {
	if _, seen := b.avatarsLooked.LoadOrStore(userID, struct{}{}); seen {
		return ""
	}

	photos, err := tg.GetUserProfilePhotos(ctx, &bot.GetUserProfilePhotosParams{UserID: userID, Limit: 1})
	if err != nil {
		b.avatarsLooked.Delete(userID)
		logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(userID)).Msg("Failed to fetch profile photo")
		return ""
	}
	if len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return ""
	}
	return photos.Photos[0][0].FileID
}

// handleMembershipChanges registers users who join the chat and removes
// users who leave it, unless they still have open debts in the group.
func (b *Bot) handleMembershipChanges(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message) {
	for i := range msg.NewChatMembers {
		u := &msg.NewChatMembers[i]
		if u.IsBot {
			continue
		}
		m := memberFromUser(u)
		m.AvatarFileID = b.lookupAvatar(ctx, tg, u.ID)
		if err := b.members.UpsertMember(ctx, m); err != nil {
			logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(u.ID)).Msg("Failed to register new chat member")
			continue
		}
		if err := b.members.AddToGroup(ctx, msg.Chat.ID, u.ID, models.RoleMember); err != nil {
			logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(u.ID)).Msg("Failed to add new chat member")
		}
	}

	left := msg.LeftChatMember
	if left == nil || left.IsBot {
		return
	}
	open, err := b.hasOpenDebts(ctx, msg.Chat.ID, left.ID)
	if err != nil {
		logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(left.ID)).Msg("Failed to check debts of leaving member")
		return
	}
	if open {
		logger.Log.Info().Str("user_hash", logger.HashUserID(left.ID)).Msg("Leaving member keeps membership until debts are settled")
		return
	}
	if err := b.members.RemoveFromGroup(ctx, msg.Chat.ID, left.ID); err != nil {
		logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(left.ID)).Msg("Failed to remove member")
	}
}

func (b *Bot) hasOpenDebts(ctx context.Context, groupID, userID int64) (bool, error) {
	debts, err := b.ledger.GroupDebts(ctx, groupID)
	if err != nil {
		return false, err
	}
	for _, d := range debts {
		if d.DebtorID == userID || d.CreditorID == userID {
			return true, nil
		}
	}
	return false, nil
}

// defaultHandler answers unknown commands. Ordinary chat is ignored.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || commandName(update.Message.Text) == "" {
		return
	}
	b.reply(ctx, tg, update.Message.Chat.ID, "I don't know that command. Use /help to see what I can do.")
}

// reply sends an HTML message and logs delivery failures.
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// replyError turns a ledger error into a user-facing message.
func (b *Bot) replyError(ctx context.Context, tg TelegramAPI, chatID int64, action string, err error) {
	var notMember *ledger.NotAMemberError
	switch {
	case errors.As(err, &notMember):
		b.reply(ctx, tg, chatID, "❌ Everyone involved must have sent a message in this group first.")
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, ledger.ErrDataIntegrity):
		b.reply(ctx, tg, chatID, "❌ "+escapeHTML(err.Error()))
	default:
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msgf("Failed to %s", action)
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ Failed to %s. Please try again.", action))
	}
}
