package bot

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// escapeHTML escapes text for Telegram's HTML parse mode.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// money formats an amount with the configured currency symbol.
func (b *Bot) money(d decimal.Decimal) string {
	return b.cfg.CurrencySymbol() + d.StringFixed(ledger.MinorUnitPlaces)
}

// names resolves display names for the given member ids. Unknown ids fall
// back to a generic label so a lookup failure never blocks a reply.
type names map[int64]models.Member

func (n names) plain(id int64) string {
	if m, ok := n[id]; ok {
		return m.DisplayName()
	}
	return "Member"
}

func (n names) of(id int64) string {
	return escapeHTML(n.plain(id))
}

func (b *Bot) lookupNames(ctx context.Context, ids ...int64) names {
	members, err := b.members.GetMany(ctx, ids)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to look up member names")
		return names{}
	}
	return names(members)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
