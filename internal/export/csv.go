package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/Mortuwu/Accounts-easing/internal/journal"
	"github.com/Mortuwu/Accounts-easing/internal/pipeline"
)

// transactionRow is the CSV shape of one classified transaction.
type transactionRow struct {
	Date        string  `csv:"date"`
	Description string  `csv:"description"`
	Direction   string  `csv:"direction"`
	Amount      string  `csv:"amount"`
	Balance     string  `csv:"balance"`
	Category    string  `csv:"category"`
	Method      string  `csv:"method"`
	Confidence  float64 `csv:"confidence"`
	Page        int     `csv:"page"`
	Line        int     `csv:"line"`
}

// postingRow is the CSV shape of one journal posting; entries span two rows
// sharing an entry id.
type postingRow struct {
	EntryID   string `csv:"entry_id"`
	Date      string `csv:"date"`
	Narration string `csv:"narration"`
	Account   string `csv:"account"`
	Debit     string `csv:"debit"`
	Credit    string `csv:"credit"`
	Category  string `csv:"category"`
}

// WriteTransactionsCSV writes the classified transaction list to w.
func WriteTransactionsCSV(result *pipeline.Result, w io.Writer) error {
	rows := make([]transactionRow, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		balance := ""
		if tx.Balance != nil {
			balance = tx.Balance.String()
		}
		rows = append(rows, transactionRow{
			Date:        tx.Date.Format(dateLayout),
			Description: tx.Description,
			Direction:   string(tx.Direction),
			Amount:      tx.Amount.String(),
			Balance:     balance,
			Category:    tx.Category,
			Method:      string(tx.Method),
			Confidence:  tx.Confidence,
			Page:        tx.Page,
			Line:        tx.Line,
		})
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write transactions csv: %w", err)
	}
	return nil
}

// WriteEntriesCSV writes the journal entries to w, one posting per row.
func WriteEntriesCSV(result *pipeline.Result, w io.Writer) error {
	rows := make([]postingRow, 0, len(result.Entries)*2)
	for _, entry := range result.Entries {
		for _, posting := range entry.Postings {
			row := postingRow{
				EntryID:   entry.ID.String(),
				Date:      entry.Date.Format(dateLayout),
				Narration: entry.Narration,
				Account:   posting.Account,
				Category:  entry.Category,
			}
			if posting.Side == journal.SideDebit {
				row.Debit = posting.Amount.String()
			} else {
				row.Credit = posting.Amount.String()
			}
			rows = append(rows, row)
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write entries csv: %w", err)
	}
	return nil
}
