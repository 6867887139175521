package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single expense or settlement may carry.
// It matches the NUMERIC(12,2) columns.
var MaxAmount = decimal.RequireFromString("9999999999.99")

var (
	errNoAmount      = errors.New("amount is required")
	errInvalidAmount = errors.New("amount must be a positive number with at most 2 decimal places")
	errAmountTooHigh = errors.New("amount is too large")
	errNoMention     = errors.New("mention the member with @username")
)

// amountRegex matches amounts like "5", "5.50", "5,50", "S$5.50".
var amountRegex = regexp.MustCompile(`^(?:[A-Z]{0,2}[$€£¥₹₩₱₫฿]|RM|Rp)?(\d{1,12}(?:[.,]\d{1,2})?)$`)

// usernameRegex matches a Telegram @username.
var usernameRegex = regexp.MustCompile(`^@([A-Za-z0-9_]{3,32})$`)

// parseAmount parses a positive money amount. A leading currency symbol is
// tolerated and ignored.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errNoAmount
	}
	m := amountRegex.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, errInvalidAmount
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return decimal.Zero, errInvalidAmount
	}
	if !amount.IsPositive() {
		return decimal.Zero, errInvalidAmount
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, errAmountTooHigh
	}
	return amount, nil
}

// commandName returns the lower-cased command of a message without the
// slash or @botname suffix, or "" when the text is not a command.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

// extractCommandArgs strips the /command token (with any @botname suffix)
// and returns the remaining trimmed arguments.
func extractCommandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	idx := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' })
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(text[idx:])
}

// Mention is a reference to another member, either by @username or, for
// users without a username, by the Telegram user ID from a text_mention.
type Mention struct {
	Username string
	UserID   int64
	Label    string
}

// String returns the mention as it was written.
func (m Mention) String() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	return m.Label
}

// mentionToken is the single-word placeholder a text_mention is rewritten to.
const mentionToken = "tg://user?id="

// replaceTextMentions rewrites every text_mention span of text into a
// single-word token so that multi-word names survive field splitting.
func replaceTextMentions(text string, entities []models.MessageEntity) (string, map[string]Mention) {
	byToken := make(map[string]Mention)
	if len(entities) == 0 {
		return text, byToken
	}
	units := utf16.Encode([]rune(text))
	var out []uint16
	pos := 0
	for _, e := range entities {
		if e.Type != models.MessageEntityTypeTextMention || e.User == nil {
			continue
		}
		if e.Offset < pos || e.Length <= 0 || e.Offset+e.Length > len(units) {
			continue
		}
		label := string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
		token := mentionToken + strconv.FormatInt(e.User.ID, 10)
		byToken[token] = Mention{UserID: e.User.ID, Label: label}

		out = append(out, units[pos:e.Offset]...)
		out = append(out, utf16.Encode([]rune(" "+token+" "))...)
		pos = e.Offset + e.Length
	}
	if pos == 0 {
		return text, byToken
	}
	out = append(out, units[pos:]...)
	return string(utf16.Decode(out)), byToken
}

// splitMentions separates @username tokens and text mentions from the rest
// of the words. Duplicate mentions are dropped.
func splitMentions(words []string, byToken map[string]Mention) ([]Mention, []string) {
	var mentions []Mention
	var rest []string
	seen := make(map[string]bool)
	for _, w := range words {
		if m := usernameRegex.FindStringSubmatch(w); m != nil {
			key := "@" + strings.ToLower(m[1])
			if !seen[key] {
				seen[key] = true
				mentions = append(mentions, Mention{Username: m[1]})
			}
			continue
		}
		if tm, ok := byToken[w]; ok {
			key := "#" + strconv.FormatInt(tm.UserID, 10)
			if !seen[key] {
				seen[key] = true
				mentions = append(mentions, tm)
			}
			continue
		}
		rest = append(rest, w)
	}
	return mentions, rest
}

// ParsedAdd is the parsed form of /add and of photo captions.
type ParsedAdd struct {
	Amount      decimal.Decimal
	Description string
	Mentions    []Mention
}

// ParseAddCommand parses "/add <amount> <description> [@user ...]".
func ParseAddCommand(text string, entities []models.MessageEntity) (*ParsedAdd, error) {
	text, byToken := replaceTextMentions(text, entities)
	words := strings.Fields(extractCommandArgs(text))
	if len(words) == 0 {
		return nil, errNoAmount
	}
	amount, err := parseAmount(words[0])
	if err != nil {
		return nil, err
	}
	mentions, rest := splitMentions(words[1:], byToken)
	return &ParsedAdd{
		Amount:      amount,
		Description: strings.Join(rest, " "),
		Mentions:    mentions,
	}, nil
}

// ParseCaption parses the optional mentions and description of a receipt
// photo caption.
func ParseCaption(caption string, entities []models.MessageEntity) (string, []Mention) {
	caption, byToken := replaceTextMentions(caption, entities)
	mentions, rest := splitMentions(strings.Fields(caption), byToken)
	return strings.Join(rest, " "), mentions
}

// ParsedPaidFor is the parsed form of /paidfor.
type ParsedPaidFor struct {
	Amount      decimal.Decimal
	Beneficiary Mention
	Description string
}

// ParsePaidForCommand parses "/paidfor <amount> @user [description]".
func ParsePaidForCommand(text string, entities []models.MessageEntity) (*ParsedPaidFor, error) {
	text, byToken := replaceTextMentions(text, entities)
	words := strings.Fields(extractCommandArgs(text))
	if len(words) == 0 {
		return nil, errNoAmount
	}
	amount, err := parseAmount(words[0])
	if err != nil {
		return nil, err
	}
	mentions, rest := splitMentions(words[1:], byToken)
	if len(mentions) == 0 {
		return nil, errNoMention
	}
	if len(mentions) > 1 {
		return nil, fmt.Errorf("only one member can be paid for at a time")
	}
	return &ParsedPaidFor{
		Amount:      amount,
		Beneficiary: mentions[0],
		Description: strings.Join(rest, " "),
	}, nil
}

// ParsedSettle is the parsed form of /settle. A zero Amount means the full
// owed amount.
type ParsedSettle struct {
	Counterparty Mention
	Amount       decimal.Decimal
	Note         string
}

// ParseSettleCommand parses "/settle @user [amount] [note]".
func ParseSettleCommand(text string, entities []models.MessageEntity) (*ParsedSettle, error) {
	text, byToken := replaceTextMentions(text, entities)
	words := strings.Fields(extractCommandArgs(text))
	mentions, rest := splitMentions(words, byToken)
	if len(mentions) == 0 {
		return nil, errNoMention
	}
	if len(mentions) > 1 {
		return nil, fmt.Errorf("settle with one member at a time")
	}
	parsed := &ParsedSettle{Counterparty: mentions[0]}
	if len(rest) > 0 {
		amount, err := parseAmount(rest[0])
		if err != nil {
			return nil, err
		}
		parsed.Amount = amount
		rest = rest[1:]
	}
	parsed.Note = strings.Join(rest, " ")
	return parsed, nil
}

// parseExpenseNumber parses "12" or "#12".
func parseExpenseNumber(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid expense number %q", s)
	}
	return n, nil
}
