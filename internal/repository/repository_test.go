package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

const testGroupID int64 = -100500

type fixture struct {
	ctx         context.Context
	members     *MemberRepository
	groups      *GroupRepository
	expenses    *ExpenseRepository
	settlements *SettlementRepository
}

// setupFixture opens a rolled-back transaction with one group and the given
// members already registered.
func setupFixture(t *testing.T, memberIDs ...int64) *fixture {
	t.Helper()

	tx := database.TestTx(t)
	f := &fixture{
		ctx:         context.Background(),
		members:     NewMemberRepository(tx),
		groups:      NewGroupRepository(tx),
		expenses:    NewExpenseRepository(tx),
		settlements: NewSettlementRepository(tx),
	}

	require.NoError(t, f.groups.UpsertGroup(f.ctx, &models.Group{ID: testGroupID, Title: "Flat 4B"}))
	for _, id := range memberIDs {
		m := &models.Member{ID: id, Username: usernameFor(id), FirstName: "User"}
		require.NoError(t, f.members.UpsertMember(f.ctx, m))
		require.NoError(t, f.members.AddToGroup(f.ctx, testGroupID, id, ""))
	}
	return f
}

func usernameFor(id int64) string {
	return map[int64]string{1: "alice", 2: "bob", 3: "carol"}[id]
}
