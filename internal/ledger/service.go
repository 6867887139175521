package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gitlab.com/yelinaung/split-bot/internal/ledger"

// ExpenseStore provides durable expenses and their shares.
type ExpenseStore interface {
	// ListByGroupWithShares returns every expense in the group with its
	// shares, oldest first.
	ListByGroupWithShares(ctx context.Context, groupID int64) ([]models.Expense, error)
	// Create persists the expense and its shares atomically and fills in
	// ID, GroupExpenseNumber and CreatedAt.
	Create(ctx context.Context, expense *models.Expense) error
	// GetByGroupAndNumber returns ErrExpenseNotFound when no such expense exists.
	GetByGroupAndNumber(ctx context.Context, groupID, number int64) (*models.Expense, error)
	// Delete removes the expense together with its shares.
	Delete(ctx context.Context, id int) error
}

// SettlementStore provides durable settlements.
type SettlementStore interface {
	ListByGroup(ctx context.Context, groupID int64) ([]models.Settlement, error)
	Create(ctx context.Context, settlement *models.Settlement) error
}

// MemberStore answers membership questions.
type MemberStore interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Observer receives ledger events for metrics.
type Observer interface {
	ViewComputed(d time.Duration)
	SettlementRecorded()
	SettlementRejected(reason string)
	IntegrityIssues(n int)
	Overpayments(n int)
	ExpenseCreated(kind string)
}

type nopObserver struct{}

func (nopObserver) ViewComputed(time.Duration) {}
func (nopObserver) SettlementRecorded()        {}
func (nopObserver) SettlementRejected(string)  {}
func (nopObserver) IntegrityIssues(int)        {}
func (nopObserver) Overpayments(int)           {}
func (nopObserver) ExpenseCreated(string)      {}

// Service computes settlement views and guards writes. It keeps no state
// between calls; every read is recomputed from the stores.
type Service struct {
	expenses    ExpenseStore
	settlements SettlementStore
	members     MemberStore
	observer    Observer
	tracer      trace.Tracer
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithObserver reports ledger events to o.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService creates a Service backed by the given stores.
func NewService(expenses ExpenseStore, settlements SettlementStore, members MemberStore, opts ...Option) *Service {
	s := &Service{
		expenses:    expenses,
		settlements: settlements,
		members:     members,
		observer:    nopObserver{},
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is a member's settlement view of a group.
type View struct {
	Lines        []models.BalanceLine
	Summary      Summary
	Issues       []*IntegrityError
	Overpayments []Overpayment
}

// Snapshot is the reduced debt graph of a group at one point in time.
type Snapshot struct {
	Graph        *Graph
	Issues       []*IntegrityError
	Overpayments []Overpayment
}

// Snapshot loads the group's history and reduces it to a canonical graph.
func (s *Service) Snapshot(ctx context.Context, groupID int64) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Snapshot",
		trace.WithAttributes(attribute.Int64("group.id", groupID)))
	defer span.End()

	expenses, err := s.expenses.ListByGroupWithShares(ctx, groupID)
	if err != nil {
		span.SetStatus(codes.Error, "list expenses")
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	settlements, err := s.settlements.ListByGroup(ctx, groupID)
	if err != nil {
		span.SetStatus(codes.Error, "list settlements")
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}

	l := BuildLedger(expenses)
	g, over := ApplySettlements(l, settlements)

	span.SetAttributes(
		attribute.Int("ledger.expenses", len(expenses)),
		attribute.Int("ledger.settlements", len(settlements)),
		attribute.Int("ledger.edges", g.Len()),
		attribute.Int("ledger.issues", len(l.Issues)),
	)

	if len(l.Issues) > 0 {
		s.observer.IntegrityIssues(len(l.Issues))
		for _, issue := range l.Issues {
			logger.Log.Warn().
				Str("group_hash", logger.HashChatID(groupID)).
				Int("expense_id", issue.ExpenseID).
				Str("reason", issue.Reason).
				Msg("Expense excluded from ledger")
		}
	}
	if len(over) > 0 {
		s.observer.Overpayments(len(over))
	}

	return &Snapshot{Graph: g, Issues: l.Issues, Overpayments: over}, nil
}

// ComputeSettlementView returns the viewer's net position with every other
// member of the group.
func (s *Service) ComputeSettlementView(ctx context.Context, groupID, viewerID int64) (*View, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "ledger.ComputeSettlementView",
		trace.WithAttributes(attribute.Int64("group.id", groupID)))
	defer span.End()

	if err := s.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}

	lines := Project(snap.Graph, viewerID)
	view := &View{
		Lines:        lines,
		Summary:      Summarize(lines),
		Issues:       snap.Issues,
		Overpayments: snap.Overpayments,
	}

	s.observer.ViewComputed(s.now().Sub(start))
	return view, nil
}

// GroupDebts returns every outstanding debt in the group.
func (s *Service) GroupDebts(ctx context.Context, groupID int64) ([]models.DebtEdge, error) {
	snap, err := s.Snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	edges := snap.Graph.Edges()
	out := edges[:0]
	for _, e := range edges {
		if e.Amount.GreaterThanOrEqual(SettledThreshold) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SettlementRequest describes a payment from FromID to ToID.
type SettlementRequest struct {
	GroupID   int64
	FromID    int64
	ToID      int64
	Amount    decimal.Decimal
	Note      string
	CreatedBy int64
}

// RecordSettlement validates the payment against the current debt from
// FromID to ToID and appends it. Nothing is written when validation fails.
func (s *Service) RecordSettlement(ctx context.Context, req SettlementRequest) (*models.Settlement, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.RecordSettlement",
		trace.WithAttributes(attribute.Int64("group.id", req.GroupID)))
	defer span.End()

	if err := s.validateSettlement(ctx, req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	settlement := &models.Settlement{
		GroupID:   req.GroupID,
		FromID:    req.FromID,
		ToID:      req.ToID,
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		CreatedBy: req.CreatedBy,
	}
	if err := s.settlements.Create(ctx, settlement); err != nil {
		return nil, fmt.Errorf("failed to create settlement: %w", err)
	}

	s.observer.SettlementRecorded()
	logger.Log.Info().
		Str("group_hash", logger.HashChatID(req.GroupID)).
		Str("from_hash", logger.HashUserID(req.FromID)).
		Str("to_hash", logger.HashUserID(req.ToID)).
		Str("amount", req.Amount.StringFixed(MinorUnitPlaces)).
		Msg("Settlement recorded")

	return settlement, nil
}

func (s *Service) validateSettlement(ctx context.Context, req SettlementRequest) error {
	reject := func(reason string, err error) error {
		s.observer.SettlementRejected(reason)
		return err
	}

	if !req.Amount.IsPositive() {
		return reject("non_positive", invalid("amount", "settlement amount must be greater than zero"))
	}
	if !req.Amount.Equal(req.Amount.Round(MinorUnitPlaces)) {
		return reject("precision", invalid("amount", "settlement amount cannot have more than %d decimal places", MinorUnitPlaces))
	}
	if req.FromID == req.ToID {
		return reject("self", invalid("to", "cannot settle with yourself"))
	}
	for _, id := range []int64{req.FromID, req.ToID} {
		if err := s.requireMember(ctx, req.GroupID, id); err != nil {
			var nm *NotAMemberError
			if errors.As(err, &nm) {
				return reject("not_member", err)
			}
			return err
		}
	}

	snap, err := s.Snapshot(ctx, req.GroupID)
	if err != nil {
		return err
	}
	owed := Owed(snap.Graph, req.FromID, req.ToID)
	if req.Amount.GreaterThan(owed.Add(SettleTolerance)) {
		if owed.LessThan(SettledThreshold) {
			return reject("exceeds_owed", invalid("amount", "nothing is owed in that direction"))
		}
		return reject("exceeds_owed", invalid("amount",
			"cannot settle %s, only %s is owed", req.Amount.StringFixed(MinorUnitPlaces), owed.StringFixed(MinorUnitPlaces)))
	}

	return nil
}

// ExpenseRequest describes a new expense split equally among ParticipantIDs.
type ExpenseRequest struct {
	GroupID        int64
	PayerID        int64
	Amount         decimal.Decimal
	Description    string
	ParticipantIDs []int64
	ReceiptFileID  string
}

// AddExpense splits the amount among the participants and persists the
// expense with its shares in one write.
func (s *Service) AddExpense(ctx context.Context, req ExpenseRequest) (*models.Expense, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.AddExpense",
		trace.WithAttributes(attribute.Int64("group.id", req.GroupID)))
	defer span.End()

	if !req.Amount.Equal(req.Amount.Round(MinorUnitPlaces)) {
		return nil, invalid("amount", "amount cannot have more than %d decimal places", MinorUnitPlaces)
	}

	shares, err := SplitEqually(req.Amount, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	if err := s.requireMember(ctx, req.GroupID, req.PayerID); err != nil {
		return nil, err
	}
	for _, id := range req.ParticipantIDs {
		if id == req.PayerID {
			continue
		}
		if err := s.requireMember(ctx, req.GroupID, id); err != nil {
			return nil, err
		}
	}

	desc := strings.TrimSpace(req.Description)
	if r := []rune(desc); len(r) > models.MaxDescriptionLength {
		desc = string(r[:models.MaxDescriptionLength])
	}

	expense := &models.Expense{
		GroupID:       req.GroupID,
		PayerID:       req.PayerID,
		Amount:        req.Amount,
		Description:   desc,
		ReceiptFileID: req.ReceiptFileID,
		Shares:        shares,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	kind := Classify(*expense)
	span.SetAttributes(attribute.String("expense.kind", kind.String()))
	s.observer.ExpenseCreated(kind.String())

	return expense, nil
}

// DeleteExpense removes an expense. Only its payer may delete it.
func (s *Service) DeleteExpense(ctx context.Context, groupID, number, requesterID int64) (*models.Expense, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.DeleteExpense",
		trace.WithAttributes(attribute.Int64("group.id", groupID)))
	defer span.End()

	expense, err := s.expenses.GetByGroupAndNumber(ctx, groupID, number)
	if errors.Is(err, ErrExpenseNotFound) {
		return nil, invalid("number", "expense #%d not found", number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if expense.PayerID != requesterID {
		return nil, invalid("number", "only the payer can delete expense #%d", number)
	}
	if err := s.expenses.Delete(ctx, expense.ID); err != nil {
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	return expense, nil
}

func (s *Service) requireMember(ctx context.Context, groupID, userID int64) error {
	ok, err := s.members.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return &NotAMemberError{GroupID: groupID, UserID: userID}
	}
	return nil
}
