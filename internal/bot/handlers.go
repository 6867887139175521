package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/split-bot/internal/models"
	"gitlab.com/yelinaung/split-bot/internal/repository"
)

// handleStartCore greets the chat.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I keep track of shared expenses in this group and work out who owes whom.

<b>Quick Start:</b>
• Log an expense you paid for everyone: <code>/add 60 Dinner</code>
• Split with some people only: <code>/add 30 Taxi @bob @carol</code>
• See where you stand: /balance
• Record a payment: <code>/settle @bob</code>

Use /help to see all available commands.`,
		formatGreeting(firstName))

	logger.Log.Debug().Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).Msg("Sending /start response")
	b.reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleHelpCore lists the commands.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Expenses:</b>
• <code>/add &lt;amount&gt; &lt;description&gt; [@user ...]</code> - You paid; split equally with everyone, or with you and the mentioned members
• <code>/paidfor &lt;amount&gt; @user [description]</code> - You paid a member back directly
• Send a receipt photo (caption with @mentions optional) to add it automatically
• <code>/expenses</code> - Show recent expenses
• <code>/delete &lt;number&gt;</code> - Delete an expense you paid

<b>Balances:</b>
• <code>/balance</code> - Who you owe and who owes you
• <code>/debts</code> - Every open debt in the group
• <code>/chart</code> - Chart of your balances
• <code>/report</code> - CSV of every expense share

<b>Settling Up:</b>
• <code>/settle @user [amount] [note]</code> - Record a payment between you and a member (defaults to the full amount)
• <code>/settlements</code> - Show recent settlements

<b>Members:</b>
• <code>/members</code> - List group members
• <code>/nick &lt;name&gt;</code> - Set your display name (<code>/nick clear</code> to reset)

<b>Other:</b>
• <code>/help</code> - Show this help message`

	b.reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleMembersCore lists the group's members.
func (b *Bot) handleMembersCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	members, err := b.members.ListByGroup(ctx, chatID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to list members")
		b.reply(ctx, tg, chatID, "❌ Failed to fetch members. Please try again.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 <b>Members</b> (%d)\n\n", len(members))
	for i := range members {
		m := &members[i]
		sb.WriteString("• " + escapeHTML(m.DisplayName()))
		if m.Username != "" && m.DisplayName() != "@"+m.Username {
			sb.WriteString(" (@" + escapeHTML(m.Username) + ")")
		}
		sb.WriteString("\n")
	}

	b.reply(ctx, tg, chatID, sb.String())
}

// handleNickCore sets or clears the sender's nickname.
func (b *Bot) handleNickCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	nick := extractCommandArgs(update.Message.Text)
	if nick == "" {
		b.reply(ctx, tg, chatID, "❌ Please provide a nickname.\n\nUsage: <code>/nick &lt;name&gt;</code> or <code>/nick clear</code>")
		return
	}
	if strings.EqualFold(nick, "clear") {
		nick = ""
	}
	if utf8.RuneCountInString(nick) > appmodels.MaxNicknameLength {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ Nickname is too long (max %d characters).", appmodels.MaxNicknameLength))
		return
	}

	err := b.members.SetNickname(ctx, userID, nick)
	if errors.Is(err, repository.ErrMemberNotFound) {
		b.reply(ctx, tg, chatID, "❌ Please send a message in this group first.")
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("user_hash", logger.HashUserID(userID)).Msg("Failed to set nickname")
		b.reply(ctx, tg, chatID, "❌ Failed to update nickname. Please try again.")
		return
	}

	if nick == "" {
		b.reply(ctx, tg, chatID, "✅ Nickname cleared.")
		return
	}
	b.reply(ctx, tg, chatID, fmt.Sprintf("✅ You'll now appear as <b>%s</b>.", escapeHTML(nick)))
}

// resolveMentions maps mentions to member ids of the group. It returns a
// user-facing message when a mention cannot be resolved.
func (b *Bot) resolveMentions(ctx context.Context, groupID int64, mentions []Mention) ([]int64, string, error) {
	ids := make([]int64, 0, len(mentions))
	for _, m := range mentions {
		if m.Username != "" {
			member, err := b.members.GetByUsernameInGroup(ctx, groupID, m.Username)
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil, notJoinedText(m), nil
			}
			if err != nil {
				return nil, "", err
			}
			ids = append(ids, member.ID)
			continue
		}
		ok, err := b.members.IsMember(ctx, groupID, m.UserID)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, notJoinedText(m), nil
		}
		ids = append(ids, m.UserID)
	}
	return ids, "", nil
}

func notJoinedText(m Mention) string {
	return fmt.Sprintf("❌ %s hasn't joined the split yet. They need to send a message in this group first.", escapeHTML(m.String()))
}
