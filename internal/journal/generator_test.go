package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mortuwu/Accounts-easing/internal/categorizer"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

func testAccounts() AccountMap {
	return AccountMap{
		Bank:     "Bank Account",
		Suspense: "Suspense Account",
		Categories: map[string]string{
			"Food":   "Food Expense",
			"Salary": "Salary Income",
		},
	}
}

func classified(desc, category string, method categorizer.Method, direction parser.Direction, cents int64) categorizer.Classified {
	return categorizer.Classified{
		RawTransaction: parser.RawTransaction{
			Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Description: desc,
			Amount:      money.New(cents, money.INR),
			Direction:   direction,
			Page:        1,
			Line:        3,
		},
		Category:   category,
		Method:     method,
		Confidence: 0.8,
	}
}

func TestGenerateMoneyOut(t *testing.T) {
	g := New(testAccounts(), nil)

	result := g.Generate([]categorizer.Classified{
		classified("GROCERY MART", "Food", categorizer.MethodKeywordRule, parser.DirectionDebit, 4520),
	})

	require.Len(t, result.Entries, 1)
	entry := result.Entries[0]

	assert.Equal(t, "Paid for GROCERY MART", entry.Narration)
	require.Len(t, entry.Postings, 2)
	assert.Equal(t, "Food Expense", entry.Postings[0].Account)
	assert.Equal(t, SideDebit, entry.Postings[0].Side)
	assert.Equal(t, int64(4520), entry.Postings[0].Amount.Amount())
	assert.Equal(t, "Bank Account", entry.Postings[1].Account)
	assert.Equal(t, SideCredit, entry.Postings[1].Side)
	assert.Equal(t, int64(4520), entry.Postings[1].Amount.Amount())

	assert.Equal(t, 1, result.Mapped)
	assert.Zero(t, result.Suspense)
	assert.NoError(t, Validate(result.Entries))
}

func TestGenerateMoneyIn(t *testing.T) {
	g := New(testAccounts(), nil)

	result := g.Generate([]categorizer.Classified{
		classified("NEFT SALARY FEB", "Salary", categorizer.MethodKeywordRule, parser.DirectionCredit, 5000000),
	})

	require.Len(t, result.Entries, 1)
	entry := result.Entries[0]

	assert.Equal(t, "Received from NEFT SALARY FEB", entry.Narration)
	assert.Equal(t, "Bank Account", entry.Postings[0].Account)
	assert.Equal(t, SideDebit, entry.Postings[0].Side)
	assert.Equal(t, "Salary Income", entry.Postings[1].Account)
	assert.Equal(t, SideCredit, entry.Postings[1].Side)
	assert.NoError(t, Validate(result.Entries))
}

func TestGenerateSuspenseFallback(t *testing.T) {
	g := New(testAccounts(), nil)

	t.Run("unclassified transaction", func(t *testing.T) {
		result := g.Generate([]categorizer.Classified{
			classified("UNKNOWN PARTY", categorizer.CategoryUncategorized, categorizer.MethodUnclassified, parser.DirectionDebit, 1000),
		})

		require.Len(t, result.Entries, 1)
		assert.Equal(t, "Suspense Account", result.Entries[0].Postings[0].Account)
		require.Len(t, result.MappingErrors, 1)
		assert.Equal(t, categorizer.CategoryUncategorized, result.MappingErrors[0].Category)
		assert.Equal(t, 1, result.Suspense)
		assert.NoError(t, Validate(result.Entries))
	})

	t.Run("classified but unmapped category", func(t *testing.T) {
		result := g.Generate([]categorizer.Classified{
			classified("OLA TRIP", "Transport", categorizer.MethodKeywordRule, parser.DirectionDebit, 2500),
		})

		require.Len(t, result.Entries, 1)
		assert.Equal(t, "Suspense Account", result.Entries[0].Postings[0].Account)
		require.Len(t, result.MappingErrors, 1)
		assert.Contains(t, result.MappingErrors[0].Error(), "Transport")
	})
}

func TestGenerateNoMergingAndOrder(t *testing.T) {
	g := New(testAccounts(), nil)

	same := classified("GROCERY MART", "Food", categorizer.MethodKeywordRule, parser.DirectionDebit, 4520)
	other := same
	other.Line = 4

	result := g.Generate([]categorizer.Classified{same, other, same})

	require.Len(t, result.Entries, 3, "identical transactions are never merged")
	assert.Equal(t, result.Entries[0].ID, result.Entries[2].ID,
		"same line yields the same stable id")
	assert.NotEqual(t, result.Entries[0].ID, result.Entries[1].ID)
}

func TestGenerateDeterministicIDs(t *testing.T) {
	g := New(testAccounts(), nil)
	txs := []categorizer.Classified{
		classified("GROCERY MART", "Food", categorizer.MethodKeywordRule, parser.DirectionDebit, 4520),
		classified("NEFT SALARY", "Salary", categorizer.MethodKeywordRule, parser.DirectionCredit, 5000000),
	}

	first := g.Generate(txs)
	second := g.Generate(txs)

	assert.Equal(t, first, second, "generation is idempotent")
}

func TestGenerateBatchStaysBalanced(t *testing.T) {
	g := New(testAccounts(), nil)

	txs := []categorizer.Classified{
		classified("GROCERY MART", "Food", categorizer.MethodKeywordRule, parser.DirectionDebit, 4520),
		classified("NEFT SALARY", "Salary", categorizer.MethodKeywordRule, parser.DirectionCredit, 5000000),
		classified("MYSTERY", categorizer.CategoryUncategorized, categorizer.MethodUnclassified, parser.DirectionDebit, 999),
	}

	result := g.Generate(txs)

	require.Len(t, result.Entries, 3)
	assert.NoError(t, Validate(result.Entries))

	var debits, credits int64
	for _, e := range result.Entries {
		for _, p := range e.Postings {
			if p.Side == SideDebit {
				debits += p.Amount.Amount()
			} else {
				credits += p.Amount.Amount()
			}
		}
	}
	assert.Equal(t, debits, credits)
}

func TestValidateRejectsBrokenEntries(t *testing.T) {
	good := Entry{
		Postings: []Posting{
			{Account: "A", Side: SideDebit, Amount: money.New(100, money.INR)},
			{Account: "B", Side: SideCredit, Amount: money.New(100, money.INR)},
		},
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Validate([]Entry{good}))
	})

	t.Run("one posting", func(t *testing.T) {
		bad := good
		bad.Postings = bad.Postings[:1]
		assert.Error(t, Validate([]Entry{bad}))
	})

	t.Run("same side", func(t *testing.T) {
		bad := good
		bad.Postings = []Posting{
			{Account: "A", Side: SideDebit, Amount: money.New(100, money.INR)},
			{Account: "B", Side: SideDebit, Amount: money.New(100, money.INR)},
		}
		assert.Error(t, Validate([]Entry{bad}))
	})

	t.Run("unequal amounts", func(t *testing.T) {
		bad := good
		bad.Postings = []Posting{
			{Account: "A", Side: SideDebit, Amount: money.New(100, money.INR)},
			{Account: "B", Side: SideCredit, Amount: money.New(90, money.INR)},
		}
		assert.Error(t, Validate([]Entry{bad}))
	})

	t.Run("zero amount", func(t *testing.T) {
		bad := good
		bad.Postings = []Posting{
			{Account: "A", Side: SideDebit, Amount: money.Zero(money.INR)},
			{Account: "B", Side: SideCredit, Amount: money.Zero(money.INR)},
		}
		assert.Error(t, Validate([]Entry{bad}))
	})
}
