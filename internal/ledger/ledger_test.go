package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/split-bot/internal/models"
	"pgregory.net/rapid"
)

const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
)

func equalExpense(t *testing.T, id int, payer int64, total string, participants ...int64) models.Expense {
	t.Helper()
	shares, err := SplitEqually(d(total), participants)
	require.NoError(t, err)
	return models.Expense{ID: id, GroupExpenseNumber: int64(id), PayerID: payer, Amount: d(total), Shares: shares}
}

func settle(from, to int64, amt string) models.Settlement {
	return models.Settlement{FromID: from, ToID: to, Amount: d(amt)}
}

func reduce(expenses []models.Expense, settlements []models.Settlement) (*Graph, []Overpayment) {
	return ApplySettlements(BuildLedger(expenses), settlements)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func requireEdges(t *testing.T, want, got []models.DebtEdge) {
	t.Helper()
	require.Len(t, got, len(want), "edges: %v", got)
	for i := range want {
		require.Equal(t, want[i].DebtorID, got[i].DebtorID, "edge %d debtor", i)
		require.Equal(t, want[i].CreditorID, got[i].CreditorID, "edge %d creditor", i)
		require.True(t, want[i].Amount.Equal(got[i].Amount), "edge %d: want %s, got %s", i, want[i].Amount, got[i].Amount)
	}
}

func requireLines(t *testing.T, want, got []models.BalanceLine) {
	t.Helper()
	require.Len(t, got, len(want), "lines: %v", got)
	for i := range want {
		require.Equal(t, want[i].CounterpartyID, got[i].CounterpartyID, "line %d counterparty", i)
		require.Equal(t, want[i].Direction, got[i].Direction, "line %d direction", i)
		require.True(t, want[i].Amount.Equal(got[i].Amount), "line %d: want %s, got %s", i, want[i].Amount, got[i].Amount)
	}
}

func TestGraph_AddReduceOwed(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.Add(alice, bob, d("30"))
	g.Add(alice, bob, d("20"))
	g.Add(alice, alice, d("99"))
	g.Add(bob, carol, decimal.Zero)

	requireDecimal(t, "50", g.Owed(alice, bob))
	require.Equal(t, 1, g.Len())

	requireDecimal(t, "0", g.Reduce(alice, bob, d("15")))
	requireDecimal(t, "35", g.Owed(alice, bob))

	requireDecimal(t, "5", g.Reduce(alice, bob, d("40")))
	require.Equal(t, 0, g.Len())
	requireDecimal(t, "7", g.Reduce(bob, alice, d("7")))
}

func TestGraph_Canonicalize(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.Add(alice, bob, d("50"))
	g.Add(bob, alice, d("30"))
	g.Add(bob, carol, d("10"))
	g.Add(carol, bob, d("10"))
	g.Add(carol, alice, d("5"))
	g.Canonicalize()

	requireEdges(t, []models.DebtEdge{
		{DebtorID: alice, CreditorID: bob, Amount: d("20")},
		{DebtorID: carol, CreditorID: alice, Amount: d("5")},
	}, g.Edges())
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.Add(alice, bob, d("10"))
	c := g.Clone()
	c.Reduce(alice, bob, d("10"))

	requireDecimal(t, "10", g.Owed(alice, bob))
	require.Equal(t, 0, c.Len())
}

func TestBuildLedger_SharedExpense(t *testing.T) {
	t.Parallel()

	l := BuildLedger([]models.Expense{equalExpense(t, 1, alice, "90", alice, bob, carol)})

	require.Empty(t, l.Issues)
	require.Empty(t, l.Reductions)
	requireDecimal(t, "30", l.Raw.Owed(bob, alice))
	requireDecimal(t, "30", l.Raw.Owed(carol, alice))
	requireDecimal(t, "0", l.Raw.Owed(alice, alice))
}

func TestBuildLedger_DirectTransferBecomesReduction(t *testing.T) {
	t.Parallel()

	l := BuildLedger([]models.Expense{equalExpense(t, 1, alice, "40", bob)})

	require.Equal(t, 0, l.Raw.Len())
	require.Len(t, l.Reductions, 1)
	require.Equal(t, alice, l.Reductions[0].FromID)
	require.Equal(t, bob, l.Reductions[0].ToID)
	requireDecimal(t, "40", l.Reductions[0].Amount)
}

func TestBuildLedger_ExcludesInvalidExpenses(t *testing.T) {
	t.Parallel()

	broken := models.Expense{
		ID: 2, GroupExpenseNumber: 2, PayerID: alice, Amount: d("100"),
		Shares: []models.ExpenseShare{{ParticipantID: bob, Amount: d("10")}, {ParticipantID: alice, Amount: d("10")}},
	}
	empty := models.Expense{ID: 3, GroupExpenseNumber: 3, PayerID: alice, Amount: d("10")}

	l := BuildLedger([]models.Expense{equalExpense(t, 1, alice, "20", alice, bob), broken, empty})

	require.Len(t, l.Issues, 2)
	require.Equal(t, 2, l.Issues[0].ExpenseID)
	require.Equal(t, 3, l.Issues[1].ExpenseID)
	requireDecimal(t, "10", l.Raw.Owed(bob, alice))
}

func TestApplySettlements_ClampsOverpayment(t *testing.T) {
	t.Parallel()

	g, over := reduce(
		[]models.Expense{equalExpense(t, 1, alice, "100", alice, bob)},
		[]models.Settlement{settle(bob, alice, "70")},
	)

	require.Equal(t, 0, g.Len(), "overpayment must not create a reverse debt")
	require.Len(t, over, 1)
	require.Equal(t, bob, over[0].FromID)
	require.Equal(t, alice, over[0].ToID)
	requireDecimal(t, "20", over[0].Amount)
}

func TestApplySettlements_PartialSettlement(t *testing.T) {
	t.Parallel()

	g, over := reduce(
		[]models.Expense{equalExpense(t, 1, alice, "100", alice, bob)},
		[]models.Settlement{settle(bob, alice, "20"), settle(bob, alice, "5.50")},
	)

	require.Empty(t, over)
	requireDecimal(t, "24.5", g.Owed(bob, alice))
}

func TestApplySettlements_NetsAfterNewExpenses(t *testing.T) {
	t.Parallel()

	g, _ := reduce(
		[]models.Expense{
			equalExpense(t, 1, alice, "100", alice, bob),
			equalExpense(t, 2, bob, "60", alice, bob),
		},
		[]models.Settlement{settle(bob, alice, "10")},
	)

	requireEdges(t, []models.DebtEdge{{DebtorID: bob, CreditorID: alice, Amount: d("10")}}, g.Edges())
}

func TestApplySettlements_DoesNotMutateLedger(t *testing.T) {
	t.Parallel()

	l := BuildLedger([]models.Expense{equalExpense(t, 1, alice, "100", alice, bob)})
	_, _ = ApplySettlements(l, []models.Settlement{settle(bob, alice, "50")})

	requireDecimal(t, "50", l.Raw.Owed(bob, alice))
}

func TestProject(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.Add(bob, alice, d("30"))
	g.Add(alice, carol, d("12.5"))
	g.Add(carol, bob, d("0.004"))

	requireLines(t, []models.BalanceLine{
		{CounterpartyID: bob, Amount: d("30"), Direction: models.DirectionOwesYou},
		{CounterpartyID: carol, Amount: d("12.5"), Direction: models.DirectionYouOwe},
	}, Project(g, alice))
	requireLines(t, []models.BalanceLine{
		{CounterpartyID: alice, Amount: d("12.5"), Direction: models.DirectionOwesYou},
	}, Project(g, carol))
	require.Empty(t, Project(g, 99))
	require.NotNil(t, Project(g, 99))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize([]models.BalanceLine{
		{CounterpartyID: bob, Amount: d("30"), Direction: models.DirectionOwesYou},
		{CounterpartyID: carol, Amount: d("12.5"), Direction: models.DirectionYouOwe},
	})
	requireDecimal(t, "12.5", s.TotalYouOwe)
	requireDecimal(t, "30", s.TotalOwedToYou)
	requireDecimal(t, "17.5", s.Net)
	require.Equal(t, models.DirectionOwesYou, s.Direction)

	require.Equal(t, models.DirectionSettled, Summarize(nil).Direction)
	require.Equal(t, models.DirectionYouOwe, Summarize([]models.BalanceLine{
		{CounterpartyID: bob, Amount: d("1"), Direction: models.DirectionYouOwe},
	}).Direction)
}

// genHistory draws a random group history among a handful of members.
func genHistory(t *rapid.T) ([]models.Expense, []models.Settlement) {
	members := []int64{1, 2, 3, 4}
	n := rapid.IntRange(0, 12).Draw(t, "expenses")

	var expenses []models.Expense
	for i := range n {
		payer := rapid.SampledFrom(members).Draw(t, "payer")
		k := rapid.IntRange(1, len(members)).Draw(t, "participants")
		perm := rapid.Permutation(members).Draw(t, "perm")
		cents := rapid.Int64Range(1, 100_000).Draw(t, "cents")
		total := decimal.New(cents, -MinorUnitPlaces)
		shares, err := SplitEqually(total, perm[:k])
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		expenses = append(expenses, models.Expense{
			ID: i + 1, GroupExpenseNumber: int64(i + 1), PayerID: payer, Amount: total, Shares: shares,
		})
	}

	m := rapid.IntRange(0, 8).Draw(t, "settlements")
	var settlements []models.Settlement
	for range m {
		from := rapid.SampledFrom(members).Draw(t, "from")
		to := rapid.SampledFrom(members).Filter(func(v int64) bool { return v != from }).Draw(t, "to")
		cents := rapid.Int64Range(1, 50_000).Draw(t, "settle_cents")
		settlements = append(settlements, models.Settlement{FromID: from, ToID: to, Amount: decimal.New(cents, -MinorUnitPlaces)})
	}
	return expenses, settlements
}

func TestProperty_PairwiseExclusivity(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		expenses, settlements := genHistory(t)
		g, _ := reduce(expenses, settlements)

		for _, e := range g.Edges() {
			if !e.Amount.IsPositive() {
				t.Fatalf("non-positive edge %+v", e)
			}
			if g.Owed(e.CreditorID, e.DebtorID).IsPositive() {
				t.Fatalf("both directions active between %d and %d", e.DebtorID, e.CreditorID)
			}
		}
	})
}

func TestProperty_SettlementOrderIndependence(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		expenses, settlements := genHistory(t)
		shuffled := rapid.Permutation(settlements).Draw(t, "shuffled")

		l := BuildLedger(expenses)
		g1, over1 := ApplySettlements(l, settlements)
		g2, over2 := ApplySettlements(l, shuffled)

		if len(g1.Edges()) != len(g2.Edges()) {
			t.Fatalf("edge count differs: %v vs %v", g1.Edges(), g2.Edges())
		}
		for i, e := range g1.Edges() {
			o := g2.Edges()[i]
			if e.DebtorID != o.DebtorID || e.CreditorID != o.CreditorID || !e.Amount.Equal(o.Amount) {
				t.Fatalf("edge %d differs: %+v vs %+v", i, e, o)
			}
		}
		if len(over1) != len(over2) {
			t.Fatalf("overpayments differ: %v vs %v", over1, over2)
		}
	})
}

func TestProperty_ExpenseOrderIndependence(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		expenses, settlements := genHistory(t)
		shuffled := rapid.Permutation(expenses).Draw(t, "shuffled")

		g1, _ := reduce(expenses, settlements)
		g2, _ := reduce(shuffled, settlements)

		for _, viewer := range []int64{1, 2, 3, 4} {
			v1, v2 := Project(g1, viewer), Project(g2, viewer)
			if len(v1) != len(v2) {
				t.Fatalf("viewer %d: %v vs %v", viewer, v1, v2)
			}
			for i := range v1 {
				if v1[i].CounterpartyID != v2[i].CounterpartyID || v1[i].Direction != v2[i].Direction || !v1[i].Amount.Equal(v2[i].Amount) {
					t.Fatalf("viewer %d line %d: %+v vs %+v", viewer, i, v1[i], v2[i])
				}
			}
		}
	})
}

func TestProperty_ProjectionIsAntisymmetric(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		expenses, settlements := genHistory(t)
		g, _ := reduce(expenses, settlements)

		for _, line := range Project(g, 1) {
			var mirrored *models.BalanceLine
			for _, other := range Project(g, line.CounterpartyID) {
				if other.CounterpartyID == 1 {
					mirrored = &other
					break
				}
			}
			if mirrored == nil || !mirrored.Amount.Equal(line.Amount) || mirrored.Direction == line.Direction {
				t.Fatalf("line %+v has no mirror (got %+v)", line, mirrored)
			}
		}
	})
}
