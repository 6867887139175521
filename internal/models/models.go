// Package models defines the domain entities for the group expense splitter.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the display currency when none is configured.
const DefaultCurrency = "SGD"

// MaxNicknameLength is the maximum allowed length for member nicknames.
const MaxNicknameLength = 32

// MaxDescriptionLength is the maximum stored length of an expense description.
const MaxDescriptionLength = 200

// SupportedCurrencies maps currency codes to their display symbols.
// Amounts are never converted; the group currency is a display label.
var SupportedCurrencies = map[string]string{
	"SGD": "S$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"MYR": "RM",
	"THB": "฿",
	"IDR": "Rp",
	"PHP": "₱",
	"VND": "₫",
	"KRW": "₩",
	"INR": "₹",
	"AUD": "A$",
	"NZD": "NZ$",
	"HKD": "HK$",
	"TWD": "NT$",
}

// Member represents a Telegram user taking part in shared expenses.
type Member struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Nickname     string
	AvatarFileID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the nickname if set, then the full name, then the @username.
func (m *Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	full := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if full != "" {
		return full
	}
	if m.Username != "" {
		return "@" + m.Username
	}
	return "User"
}

// Member roles within a group.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group represents a Telegram chat whose members share expenses.
type Group struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// GroupMember links a member to a group.
type GroupMember struct {
	GroupID  int64
	UserID   int64
	Role     string
	JoinedAt time.Time
}

// Expense represents one payment event within a group.
type Expense struct {
	ID                 int
	GroupExpenseNumber int64
	GroupID            int64
	PayerID            int64
	Amount             decimal.Decimal
	Description        string
	ReceiptFileID      string
	Shares             []ExpenseShare
	CreatedAt          time.Time
}

// ExpenseShare is one participant's portion of an expense.
type ExpenseShare struct {
	ExpenseID     int
	ParticipantID int64
	Amount        decimal.Decimal
}

// Settlement is a confirmed payment from one member to another.
type Settlement struct {
	ID        uuid.UUID
	GroupID   int64
	FromID    int64
	ToID      int64
	Amount    decimal.Decimal
	Note      string
	CreatedBy int64
	CreatedAt time.Time
}

// DebtEdge means Debtor owes Creditor Amount.
type DebtEdge struct {
	DebtorID   int64
	CreditorID int64
	Amount     decimal.Decimal
}

// Direction describes a balance from the viewer's perspective.
type Direction string

// Balance directions.
const (
	DirectionYouOwe  Direction = "you_owe"
	DirectionOwesYou Direction = "owes_you"
	DirectionSettled Direction = "settled"
)

// BalanceLine is the viewer's net position with one counterparty.
type BalanceLine struct {
	CounterpartyID int64
	Amount         decimal.Decimal
	Direction      Direction
}
