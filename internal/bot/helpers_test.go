package bot

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/split-bot/internal/config"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	appmodels "gitlab.com/yelinaung/split-bot/internal/models"
	"gitlab.com/yelinaung/split-bot/internal/repository"
)

const (
	testGroupID = int64(-100500)
	aliceID     = int64(1)
	bobID       = int64(2)
	carolID     = int64(3)
)

// fakeStore is an in-memory stand-in for the Postgres repositories.
type fakeStore struct {
	mu          sync.Mutex
	members     map[int64]appmodels.Member
	groups      map[int64]appmodels.Group
	memberships map[int64][]int64
	expenses    []appmodels.Expense
	settlements []appmodels.Settlement
	seq         map[int64]int64
	nextID      int
	clock       time.Time

	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:     make(map[int64]appmodels.Member),
		groups:      make(map[int64]appmodels.Group),
		memberships: make(map[int64][]int64),
		seq:         make(map[int64]int64),
		clock:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *fakeStore) UpsertMember(_ context.Context, m *appmodels.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.members[m.ID]
	cp := *m
	if ok {
		cp.Nickname = existing.Nickname
		if cp.AvatarFileID == "" {
			cp.AvatarFileID = existing.AvatarFileID
		}
	}
	s.members[m.ID] = cp
	return nil
}

func (s *fakeStore) AddToGroup(_ context.Context, groupID, userID int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.memberships[groupID], userID) {
		s.memberships[groupID] = append(s.memberships[groupID], userID)
	}
	return nil
}

func (s *fakeStore) RemoveFromGroup(_ context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[groupID] = slices.DeleteFunc(s.memberships[groupID], func(id int64) bool { return id == userID })
	return nil
}

func (s *fakeStore) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.memberships[groupID], userID), nil
}

func (s *fakeStore) GetByUsernameInGroup(_ context.Context, groupID int64, username string) (*appmodels.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username = strings.TrimPrefix(username, "@")
	for _, id := range s.memberships[groupID] {
		m := s.members[id]
		if m.Username != "" && strings.EqualFold(m.Username, username) {
			return &m, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (s *fakeStore) SetNickname(_ context.Context, id int64, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return repository.ErrMemberNotFound
	}
	m.Nickname = nickname
	s.members[id] = m
	return nil
}

func (s *fakeStore) ListByGroup(_ context.Context, groupID int64) ([]appmodels.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []appmodels.Member
	for _, id := range s.memberships[groupID] {
		out = append(out, s.members[id])
	}
	return out, nil
}

func (s *fakeStore) GetMany(_ context.Context, ids []int64) (map[int64]appmodels.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]appmodels.Member)
	for _, id := range ids {
		if m, ok := s.members[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertGroup(_ context.Context, g *appmodels.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = *g
	return nil
}

func (s *fakeStore) ListIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

type fakeExpenses struct{ *fakeStore }

func (s fakeExpenses) Create(_ context.Context, e *appmodels.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.seq[e.GroupID]++
	e.ID = s.nextID
	e.GroupExpenseNumber = s.seq[e.GroupID]
	e.CreatedAt = s.tick()
	for i := range e.Shares {
		e.Shares[i].ExpenseID = e.ID
	}
	cp := *e
	cp.Shares = slices.Clone(e.Shares)
	s.expenses = append(s.expenses, cp)
	return nil
}

func (s fakeExpenses) ListByGroupWithShares(_ context.Context, groupID int64) ([]appmodels.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []appmodels.Expense
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s fakeExpenses) ListRecent(ctx context.Context, groupID int64, limit int) ([]appmodels.Expense, error) {
	all, err := s.ListByGroupWithShares(ctx, groupID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s fakeExpenses) GetByGroupAndNumber(_ context.Context, groupID, number int64) (*appmodels.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenses {
		if s.expenses[i].GroupID == groupID && s.expenses[i].GroupExpenseNumber == number {
			e := s.expenses[i]
			return &e, nil
		}
	}
	return nil, ledger.ErrExpenseNotFound
}

func (s fakeExpenses) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.expenses)
	s.expenses = slices.DeleteFunc(s.expenses, func(e appmodels.Expense) bool { return e.ID == id })
	if len(s.expenses) == n {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

type fakeSettlements struct{ *fakeStore }

func (s fakeSettlements) Create(_ context.Context, st *appmodels.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.CreatedAt = s.tick()
	s.settlements = append(s.settlements, *st)
	return nil
}

func (s fakeSettlements) ListByGroup(_ context.Context, groupID int64) ([]appmodels.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appmodels.Settlement
	for _, st := range s.settlements {
		if st.GroupID == groupID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s fakeSettlements) ListRecent(ctx context.Context, groupID int64, limit int) ([]appmodels.Settlement, error) {
	all, err := s.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type countingUsage struct {
	mu        sync.Mutex
	commands  map[string]int
	reminders int
}

func (c *countingUsage) CommandHandled(command string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commands == nil {
		c.commands = make(map[string]int)
	}
	c.commands[command]++
}

func (c *countingUsage) ReminderSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reminders++
}

// setupTestBot creates a Bot backed by an in-memory store that serves
// testGroupID.
func setupTestBot(t *testing.T) (*Bot, *fakeStore) {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken: "test-token",
		DatabaseURL:      "test-url",
		AllowedChatIDs:   []int64{testGroupID},
		Currency:         "SGD",
		ReminderHour:     20,
		ReminderTimezone: "UTC",
	}

	store := newFakeStore()
	svc := ledger.NewService(fakeExpenses{store}, fakeSettlements{store}, store)
	b := newBot(cfg, Deps{
		Ledger:      svc,
		Members:     store,
		Groups:      store,
		Expenses:    fakeExpenses{store},
		Settlements: fakeSettlements{store},
	})
	return b, store
}

// send runs one group message from the given sender through the middleware
// and the matching handler, like the registered handlers do.
func send(t *testing.T, b *Bot, userID int64, username, text string) *mocks.MockBot {
	t.Helper()
	return dispatch(t, b, mocks.CommandUpdate(testGroupID, userID, username, text))
}

func dispatch(t *testing.T, b *Bot, update *models.Update) *mocks.MockBot {
	t.Helper()
	return dispatchWith(t, b, mocks.NewMockBot(), update)
}

func dispatchWith(t *testing.T, b *Bot, mockBot *mocks.MockBot, update *models.Update) *mocks.MockBot {
	t.Helper()
	ctx := context.Background()
	if !b.admit(ctx, mockBot, update) {
		return mockBot
	}
	name := commandName(update.Message.Text)
	if core, ok := b.commands()[name]; ok {
		b.usage.CommandHandled(name)
		core(ctx, mockBot, update)
		return mockBot
	}
	if isPhotoMessage(update) {
		b.handlePhotoCore(ctx, mockBot, update)
		return mockBot
	}
	b.defaultHandlerCore(ctx, mockBot, update)
	return mockBot
}

// lastText returns the text of the last reply.
func lastText(t *testing.T, m *mocks.MockBot) string {
	t.Helper()
	msg := m.LastSentMessage()
	if msg == nil {
		t.Fatalf("no message was sent")
	}
	return msg.Text
}

// joinAll registers alice, bob and carol in the test group.
func joinAll(t *testing.T, b *Bot) {
	t.Helper()
	send(t, b, aliceID, "alice", "hi")
	send(t, b, bobID, "bob", "hi")
	send(t, b, carolID, "carol", "hi")
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var errStore = errors.New("store unavailable")

// commandFrom builds a group command update from the given sender.
func commandFrom(userID int64, username, text string) *models.Update {
	return mocks.CommandUpdate(testGroupID, userID, username, text)
}

// newFailingFileBot returns a MockBot whose photo and document uploads fail.
func newFailingFileBot() *mocks.MockBot {
	m := mocks.NewMockBot()
	m.SendFileError = errors.New("upload failed")
	return m
}
