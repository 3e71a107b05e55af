package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Mortuwu/Accounts-easing/internal/categorizer"
	"github.com/Mortuwu/Accounts-easing/internal/journal"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
	"github.com/Mortuwu/Accounts-easing/internal/pipeline"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

func fixtureResult(t *testing.T) *pipeline.Result {
	t.Helper()

	txs := []categorizer.Classified{
		{
			RawTransaction: parser.RawTransaction{
				Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Description: "GROCERY MART",
				Amount:      money.New(4520, money.INR),
				Direction:   parser.DirectionDebit,
				Page:        1,
				Line:        3,
			},
			Category:   "Food",
			Method:     categorizer.MethodKeywordRule,
			Confidence: 0.8,
		},
		{
			RawTransaction: parser.RawTransaction{
				Date:        time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
				Description: "NEFT SALARY",
				Amount:      money.New(5000000, money.INR),
				Direction:   parser.DirectionCredit,
				Balance:     money.New(5495480, money.INR),
				Page:        1,
				Line:        4,
			},
			Category:   "Salary",
			Method:     categorizer.MethodKeywordRule,
			Confidence: 0.8,
		},
	}

	gen := journal.New(journal.AccountMap{
		Bank:     "Bank Account",
		Suspense: "Suspense Account",
		Categories: map[string]string{
			"Food":   "Food Expense",
			"Salary": "Salary Income",
		},
	}, nil)
	generated := gen.Generate(txs)
	require.NoError(t, journal.Validate(generated.Entries))

	return &pipeline.Result{
		State:        pipeline.StateDone,
		Transactions: txs,
		Entries:      generated.Entries,
		Diagnostics: pipeline.Diagnostics{
			Pages:       2,
			OCRPages:    1,
			LinesParsed: 2,
			Entries:     len(generated.Entries),
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	result := fixtureResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(result, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Transactions", "Journal Entries", "Summary"}, f.GetSheetList())

	t.Run("transactions sheet", func(t *testing.T) {
		rows, err := f.GetRows(sheetTransactions)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Date", rows[0][0])
		assert.Equal(t, "05/01/2024", rows[1][0])
		assert.Equal(t, "GROCERY MART", rows[1][1])
		assert.Equal(t, "debit", rows[1][2])
		assert.Equal(t, "Food", rows[1][5])
	})

	t.Run("journal sheet has two postings per entry", func(t *testing.T) {
		rows, err := f.GetRows(sheetJournal)
		require.NoError(t, err)
		require.Len(t, rows, 5, "header plus two postings per entry")

		assert.Equal(t, rows[1][0], rows[2][0], "postings of one entry share an id")
		assert.Equal(t, "Food Expense", rows[1][3])
		assert.Equal(t, "Bank Account", rows[2][3])
	})

	t.Run("summary sheet", func(t *testing.T) {
		rows, err := f.GetRows(sheetSummary)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(rows), 3)
		// Categories are sorted.
		assert.Equal(t, "Food", rows[1][0])
		assert.Equal(t, "Salary", rows[2][0])
	})
}

func TestWriteTransactionsCSV(t *testing.T) {
	result := fixtureResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(result, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,description,direction,amount,balance,category,method,confidence,page,line", lines[0])
	assert.Contains(t, lines[1], "GROCERY MART")
	assert.Contains(t, lines[1], "45.20")
	assert.Contains(t, lines[2], "54954.80", "balance column carries the running balance")
}

func TestWriteEntriesCSV(t *testing.T) {
	result := fixtureResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteEntriesCSV(result, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5, "header plus two postings per entry")
	assert.Equal(t, "entry_id,date,narration,account,debit,credit,category", lines[0])
	assert.Contains(t, lines[1], "Food Expense")
	assert.Contains(t, lines[1], "45.20")
	assert.Contains(t, lines[2], "Bank Account")
}

func TestWriteEmptyResult(t *testing.T) {
	empty := &pipeline.Result{State: pipeline.StateDone}

	var wb, csv bytes.Buffer
	require.NoError(t, WriteWorkbook(empty, &wb))
	require.NoError(t, WriteTransactionsCSV(empty, &csv))

	f, err := excelize.OpenReader(&wb)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetTransactions)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
