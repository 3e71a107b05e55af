// Package parser recognizes transaction lines in extracted statement text
// and normalizes them into dated, directed amounts. Banks print three broad
// layout families: a single amount with an explicit CR/DR marker, separate
// withdrawal/deposit columns, and a single amount next to a running balance.
// The family in use is detected per page by a majority vote over its
// candidate lines; pages without a clear majority try the families in
// declared order. Lines that belong to none of them (headers, footers,
// summaries) are skipped without comment.
package parser

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Mortuwu/Accounts-easing/internal/extractor"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

// Direction is the flow of money relative to the account holder.
type Direction string

const (
	// DirectionDebit is money out of the account.
	DirectionDebit Direction = "debit"
	// DirectionCredit is money into the account.
	DirectionCredit Direction = "credit"
)

// RawTransaction is one recognized statement line. Amount is always
// positive; Direction carries the sign. Balance is the running balance when
// the layout prints one.
type RawTransaction struct {
	Date        time.Time
	Description string
	Amount      *money.Money
	Direction   Direction
	Balance     *money.Money
	Page        int
	Line        int
	Source      extractor.Source
}

// Warning kinds recorded while parsing.
const (
	WarnDirectionConflict = "direction_conflict"
	WarnDigitCorrection   = "digit_correction"
	WarnBadDate           = "bad_date"
	WarnZeroAmount        = "zero_amount"
	WarnAmbiguousColumns  = "ambiguous_columns"
	WarnBalanceGap        = "balance_gap"
)

// Warning is a non-fatal parsing observation tied to a source line.
type Warning struct {
	Kind    string
	Page    int
	Line    int
	Message string
}

// Result aggregates recognized transactions and line accounting for a parse
// run.
type Result struct {
	Transactions []RawTransaction
	Warnings     []Warning
	LinesSeen    int
	LinesParsed  int
	LinesSkipped int
}

// Config controls parsing behavior.
type Config struct {
	// Currency for all parsed amounts.
	Currency string
	// BalanceTolerance is the largest acceptable gap, in major units, when
	// reconciling a running balance against the previous one.
	BalanceTolerance float64
}

// DefaultConfig returns settings suitable for INR passbooks.
func DefaultConfig() Config {
	return Config{
		Currency:         money.DefaultCurrency,
		BalanceTolerance: 0.015,
	}
}

// Parser recognizes transaction lines. Safe for concurrent use; all state
// for a run lives on the stack.
type Parser struct {
	cfg    Config
	logger *slog.Logger
}

// New builds a Parser.
func New(cfg Config, logger *slog.Logger) *Parser {
	if cfg.Currency == "" {
		cfg.Currency = money.DefaultCurrency
	}
	if cfg.BalanceTolerance <= 0 {
		cfg.BalanceTolerance = 0.015
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{cfg: cfg, logger: logger}
}

// Parse walks the per-page blocks in order and returns every recognized
// transaction, preserving statement order. Failed blocks contribute nothing.
func (p *Parser) Parse(blocks []extractor.TextBlock) *Result {
	result := &Result{}

	// Running balance carries across pages so the balance-delta family can
	// classify the first line of a new page.
	run := &parseRun{
		parser: p,
		result: result,
	}

	for _, block := range blocks {
		if block.Failed {
			continue
		}
		run.parseBlock(block)
	}

	result.LinesSkipped = result.LinesSeen - result.LinesParsed
	p.logger.Debug("parse complete",
		slog.Int("lines_seen", result.LinesSeen),
		slog.Int("transactions", len(result.Transactions)),
		slog.Int("warnings", len(result.Warnings)))

	return result
}

// parseRun holds the mutable state of one Parse call.
type parseRun struct {
	parser      *Parser
	result      *Result
	prevBalance *money.Money

	// Position of the most recent transaction (or its continuation), used
	// to keep wrapped-description stitching to adjacent lines.
	lastTxPage int
	lastTxLine int
}

func (r *parseRun) parseBlock(block extractor.TextBlock) {
	lines := strings.Split(block.Text, "\n")
	family := detectFamily(lines, block.Source)
	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		r.result.LinesSeen++

		if bal, ok := matchOpeningBalance(trimmed, r.parser.cfg.Currency); ok {
			r.prevBalance = bal
			continue
		}
		if isSummaryLine(trimmed) {
			continue
		}

		fields, corrected := matchLine(trimmed, block.Source, family)
		if fields == nil {
			r.maybeContinueDescription(block.Page, lineNum, trimmed)
			continue
		}

		r.emit(block, lineNum, fields, corrected)
	}
}

// maybeContinueDescription appends wrapped description text to the
// transaction recognized on the previous line. Passbooks wrap long
// narrations onto a second line with no date and no amount.
func (r *parseRun) maybeContinueDescription(page, lineNum int, line string) {
	n := len(r.result.Transactions)
	if n == 0 {
		return
	}
	if page != r.lastTxPage || lineNum != r.lastTxLine+1 {
		return
	}
	if hasDateToken(line) || hasAmountToken(line) {
		return
	}
	last := &r.result.Transactions[n-1]
	last.Description = last.Description + " " + normalizeSpace(line)
	r.lastTxLine = lineNum
}

// emit converts matched line fields into a transaction, resolving direction
// and recording warnings.
func (r *parseRun) emit(block extractor.TextBlock, lineNum int, fields *lineFields, corrected bool) {
	warn := func(kind, message string) {
		r.result.Warnings = append(r.result.Warnings, Warning{
			Kind:    kind,
			Page:    block.Page,
			Line:    lineNum,
			Message: message,
		})
	}

	if corrected {
		warn(WarnDigitCorrection, "confusable characters corrected in date or amount")
	}
	if fields.ambiguous {
		warn(WarnAmbiguousColumns, "both withdrawal and deposit columns populated")
		return
	}

	date, err := parseDate(fields.date)
	if err != nil {
		warn(WarnBadDate, err.Error())
		return
	}

	amount, err := money.NewFromString(fields.amount, r.parser.cfg.Currency)
	if err != nil || amount.IsZero() {
		warn(WarnZeroAmount, "line amount missing or zero")
		return
	}

	var balance *money.Money
	if fields.balance != "" {
		if b, err := money.NewFromString(fields.balance, r.parser.cfg.Currency); err == nil {
			balance = b
		}
	}

	direction, ok := r.resolveDirection(fields, amount, balance, warn)
	if !ok {
		return
	}

	r.result.Transactions = append(r.result.Transactions, RawTransaction{
		Date:        date,
		Description: normalizeSpace(fields.description),
		Amount:      amount.Abs(),
		Direction:   direction,
		Balance:     balance,
		Page:        block.Page,
		Line:        lineNum,
		Source:      block.Source,
	})
	r.result.LinesParsed++
	r.lastTxPage = block.Page
	r.lastTxLine = lineNum

	if balance != nil {
		r.prevBalance = balance
	}
}

// resolveDirection picks the money flow for a line. An explicit signal (a
// CR/DR marker, a populated withdrawal/deposit column, or a signed amount)
// always wins over balance-delta inference; disagreement is recorded but
// does not change the outcome.
func (r *parseRun) resolveDirection(fields *lineFields, amount, balance *money.Money, warn func(kind, message string)) (Direction, bool) {
	inferred, inferredOK := r.inferFromBalance(amount, balance)

	if fields.explicit != "" {
		if inferredOK && inferred != fields.explicit {
			warn(WarnDirectionConflict,
				"explicit "+string(fields.explicit)+" marker disagrees with running balance; marker kept")
		}
		return fields.explicit, true
	}

	if inferredOK {
		return inferred, true
	}
	if balance != nil && r.prevBalance != nil {
		// A balance was printed but reconciles with neither direction:
		// a line is missing or the balance was misread.
		warn(WarnBalanceGap, "running balance does not reconcile with previous balance")
	}

	return inferFromKeywords(fields.description), true
}

// inferFromBalance classifies by comparing the printed running balance with
// the previous one, within tolerance.
func (r *parseRun) inferFromBalance(amount, balance *money.Money) (Direction, bool) {
	if balance == nil || r.prevBalance == nil {
		return "", false
	}

	prev := r.prevBalance.ToDecimal()
	amt := amount.Abs().ToDecimal()
	bal := balance.ToDecimal()

	tolerance := r.parser.cfg.BalanceTolerance
	if prev.Sub(amt).Sub(bal).Abs().InexactFloat64() < tolerance {
		return DirectionDebit, true
	}
	if prev.Add(amt).Sub(bal).Abs().InexactFloat64() < tolerance {
		return DirectionCredit, true
	}
	return "", false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
