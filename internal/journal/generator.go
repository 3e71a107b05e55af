// Package journal turns classified transactions into balanced double-entry
// journal entries. Every entry carries exactly two postings of equal amount:
// money out debits the category account and credits the bank account, money
// in mirrors that. Transactions whose category has no mapped account land on
// the suspense account rather than being dropped.
package journal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mortuwu/Accounts-easing/internal/categorizer"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

// Side of a posting.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Posting is one leg of an entry.
type Posting struct {
	Account string
	Side    Side
	Amount  *money.Money
}

// Entry is one balanced journal entry, two postings, same amount.
type Entry struct {
	ID        uuid.UUID
	Date      time.Time
	Narration string
	Postings  []Posting
	Category  string
	Method    categorizer.Method
	Page      int
	Line      int
}

// AccountMap maps classifier categories to ledger accounts.
type AccountMap struct {
	Bank       string
	Suspense   string
	Categories map[string]string
}

// DefaultAccountMap returns a minimal mapping so the generator works with
// zero configuration.
func DefaultAccountMap() AccountMap {
	return AccountMap{
		Bank:     "Bank Account",
		Suspense: "Suspense Account",
	}
}

// MappingError records a transaction that fell through to the suspense
// account. It is diagnostic, never fatal.
type MappingError struct {
	Category string
	Page     int
	Line     int
}

func (e MappingError) Error() string {
	return fmt.Sprintf("no account mapped for category %q (page %d line %d), posted to suspense",
		e.Category, e.Page, e.Line)
}

// Result is the outcome of one generation run.
type Result struct {
	Entries       []Entry
	MappingErrors []MappingError
	Mapped        int
	Suspense      int
}

// Generator builds entries. Safe for concurrent use.
type Generator struct {
	accounts AccountMap
	logger   *slog.Logger
}

// New builds a Generator over an account mapping.
func New(accounts AccountMap, logger *slog.Logger) *Generator {
	if accounts.Bank == "" {
		accounts.Bank = "Bank Account"
	}
	if accounts.Suspense == "" {
		accounts.Suspense = "Suspense Account"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{accounts: accounts, logger: logger}
}

// Generate emits one entry per transaction, in input order. Nothing is
// merged or netted; a statement with two identical lines yields two entries.
func (g *Generator) Generate(txs []categorizer.Classified) *Result {
	result := &Result{Entries: make([]Entry, 0, len(txs))}

	for _, tx := range txs {
		categoryAccount, mapped := g.resolveAccount(tx)
		if mapped {
			result.Mapped++
		} else {
			result.Suspense++
			result.MappingErrors = append(result.MappingErrors, MappingError{
				Category: tx.Category,
				Page:     tx.Page,
				Line:     tx.Line,
			})
		}

		result.Entries = append(result.Entries, g.buildEntry(tx, categoryAccount))
	}

	g.logger.Debug("entries generated",
		slog.Int("entries", len(result.Entries)),
		slog.Int("suspense", result.Suspense))

	return result
}

// resolveAccount picks the category-side account. Unclassified transactions
// and unmapped categories go to suspense.
func (g *Generator) resolveAccount(tx categorizer.Classified) (string, bool) {
	if tx.Method == categorizer.MethodUnclassified {
		return g.accounts.Suspense, false
	}
	if account, ok := g.accounts.Categories[tx.Category]; ok && account != "" {
		return account, true
	}
	return g.accounts.Suspense, false
}

func (g *Generator) buildEntry(tx categorizer.Classified, categoryAccount string) Entry {
	amount := tx.Amount.Abs()

	var postings []Posting
	var narration string
	switch tx.Direction {
	case parser.DirectionDebit:
		// Money out: the spend account receives value, the bank gives it.
		narration = "Paid for " + tx.Description
		postings = []Posting{
			{Account: categoryAccount, Side: SideDebit, Amount: amount},
			{Account: g.accounts.Bank, Side: SideCredit, Amount: amount},
		}
	default:
		narration = "Received from " + tx.Description
		postings = []Posting{
			{Account: g.accounts.Bank, Side: SideDebit, Amount: amount},
			{Account: categoryAccount, Side: SideCredit, Amount: amount},
		}
	}

	return Entry{
		ID:        entryID(tx),
		Date:      tx.Date,
		Narration: narration,
		Postings:  postings,
		Category:  tx.Category,
		Method:    tx.Method,
		Page:      tx.Page,
		Line:      tx.Line,
	}
}

// entryID derives a stable UUID from the transaction's identifying fields,
// so converting the same document twice yields identical entries.
func entryID(tx categorizer.Classified) uuid.UUID {
	seed := fmt.Sprintf("%s|%s|%d|%s|%d|%d",
		tx.Date.Format("2006-01-02"),
		tx.Description,
		tx.Amount.Amount(),
		tx.Direction,
		tx.Page,
		tx.Line,
	)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// Validate re-checks the accounting equation over a batch of entries:
// every entry has exactly two postings of equal amount on opposite sides,
// and total debits equal total credits to the paisa.
func Validate(entries []Entry) error {
	var totalDebit, totalCredit int64

	for _, e := range entries {
		if len(e.Postings) != 2 {
			return fmt.Errorf("entry %s: expected 2 postings, got %d", e.ID, len(e.Postings))
		}
		a, b := e.Postings[0], e.Postings[1]
		if a.Side == b.Side {
			return fmt.Errorf("entry %s: postings on the same side", e.ID)
		}
		if !a.Amount.Equals(b.Amount) {
			return fmt.Errorf("entry %s: unbalanced postings %s vs %s", e.ID, a.Amount, b.Amount)
		}
		for _, p := range e.Postings {
			if !p.Amount.IsPositive() {
				return fmt.Errorf("entry %s: non-positive posting amount %s", e.ID, p.Amount)
			}
			if p.Side == SideDebit {
				totalDebit += p.Amount.Amount()
			} else {
				totalCredit += p.Amount.Amount()
			}
		}
	}

	if totalDebit != totalCredit {
		return fmt.Errorf("ledger out of balance: debits %d, credits %d", totalDebit, totalCredit)
	}
	return nil
}
